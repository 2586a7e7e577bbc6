package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"medicare-now/internal/domain/sessions"
	"medicare-now/internal/platform/credentials"
	"medicare-now/internal/ports/auth"
)

const MinPasswordLength = 6

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrEmailTaken      = errors.New("email is already registered")
	ErrWeakPassword    = errors.New("password must be at least 6 characters long")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
)

// SessionIssuer es lo que accounts necesita de sessions.
type SessionIssuer interface {
	Issue(ctx context.Context, sub sessions.Subject) (sessions.Issued, error)
	Revoke(ctx context.Context, token string) error
}

type Service struct {
	repo     Repository
	hasher   credentials.Hasher
	sessions SessionIssuer
	now      func() time.Time
}

func NewService(repo Repository, hasher credentials.Hasher, issuer SessionIssuer) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: issuer,
		now:      time.Now,
	}
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// AuthResult es lo que devuelven Register y Login.
type AuthResult struct {
	User    User
	Session sessions.Issued
}

// Register crea una cuenta USER y abre sesión.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	u, err := s.Create(ctx, in, auth.RoleUser)
	if err != nil {
		return AuthResult{}, err
	}
	return s.openSession(ctx, u)
}

// Create crea una cuenta con el rol indicado, sin sesión (CLI / seeds).
func (s *Service) Create(ctx context.Context, in RegisterInput, role string) (User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := NormalizeEmail(in.Email)
	password := strings.TrimSpace(in.Password)

	if fullName == "" || email == "" || password == "" {
		return User{}, ErrInvalidInput
	}
	if len(password) < MinPasswordLength {
		return User{}, ErrWeakPassword
	}
	if role != auth.RoleUser && role != auth.RoleMedic {
		return User{}, ErrInvalidInput
	}

	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return User{}, ErrEmailTaken
	case !errors.Is(err, ErrNotFound):
		return User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, credentials.ErrPasswordTooLong) {
			return User{}, ErrInvalidInput
		}
		return User{}, err
	}

	first, last := SplitFullName(fullName)
	u := User{
		ID:           uuid.NewString(),
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = NormalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return AuthResult{}, ErrInvalidInput
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return AuthResult{}, ErrUserNotFound
	}
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, credentials.ErrMismatch) || errors.Is(err, credentials.ErrMalformedHash) {
			return AuthResult{}, ErrInvalidPassword
		}
		return AuthResult{}, err
	}

	return s.openSession(ctx, u)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) openSession(ctx context.Context, u User) (AuthResult, error) {
	issued, err := s.sessions.Issue(ctx, sessions.Subject{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Session: issued}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitFullName separa en el primer espacio: "Ana Maria Pop" => ("Ana", "Maria Pop").
func SplitFullName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	first, last, _ = strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}
