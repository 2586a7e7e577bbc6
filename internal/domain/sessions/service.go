package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medicare-now/internal/ports/auth"
)

const (
	DefaultIssuer = "medicare-now"
	DefaultTTL    = 24 * time.Hour
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("session revoked")
)

var _ auth.AuthVerifier = (*Service)(nil)

type Options struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type Service struct {
	repo   Repository
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewService(repo Repository, opts Options) (*Service, error) {
	if repo == nil {
		return nil, errors.New("sessions: repository is required")
	}
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, errors.New("sessions: secret is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Service{
		repo:   repo,
		secret: []byte(opts.Secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue crea la sesión y firma un JWT HS256 (jti = id de sesión, sub = usuario).
func (s *Service) Issue(ctx context.Context, sub Subject) (Issued, error) {
	sub.UserID = strings.TrimSpace(sub.UserID)
	if sub.UserID == "" {
		return Issued{}, ErrInvalidInput
	}

	// jwt trabaja a precisión de segundos
	now := s.now().UTC().Truncate(time.Second)
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    sub.UserID,
		Email:     strings.TrimSpace(sub.Email),
		Role:      sub.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Email: sess.Email,
		Role:  sess.Role,
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return Issued{}, err
	}

	return Issued{Token: signed, SessionID: sess.ID, ExpiresAt: sess.ExpiresAt}, nil
}

// Verify implementa auth.AuthVerifier.
func (s *Service) Verify(ctx context.Context, token string) (auth.Claims, error) {
	c, err := s.parse(token,
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return auth.Claims{}, err
	}

	sess, err := s.repo.Get(ctx, c.ID)
	if errors.Is(err, ErrNotFound) {
		return auth.Claims{}, ErrRevoked
	}
	if err != nil {
		return auth.Claims{}, err
	}
	if sess.UserID != c.Subject {
		return auth.Claims{}, ErrInvalidToken
	}

	return auth.Claims{
		UserID:    c.Subject,
		Email:     c.Email,
		Role:      c.Role,
		SessionID: c.ID,
	}, nil
}

// Revoke borra la sesión del token. Acepta tokens expirados; la firma sí se valida.
func (s *Service) Revoke(ctx context.Context, token string) error {
	c, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, c.ID)
}

func (s *Service) parse(token string, opts ...jwt.ParserOption) (tokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return tokenClaims{}, ErrInvalidToken
	}

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var c tokenClaims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return tokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.ID == "" || c.Subject == "" {
		return tokenClaims{}, ErrInvalidToken
	}
	return c, nil
}
