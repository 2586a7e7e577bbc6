package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"medicare-now/internal/domain/sessions"
	"medicare-now/internal/platform/credentials"
	"medicare-now/internal/ports/auth"
)

type testRepo struct {
	byID map[string]User
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]User{}}
}

func (r *testRepo) Create(_ context.Context, u User) error {
	for _, other := range r.byID {
		if other.Email == u.Email {
			return ErrEmailTaken
		}
	}
	r.byID[u.ID] = u
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (User, error) {
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *testRepo) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

type fakeSessions struct {
	issued  []sessions.Subject
	revoked []string
}

func (f *fakeSessions) Issue(_ context.Context, sub sessions.Subject) (sessions.Issued, error) {
	f.issued = append(f.issued, sub)
	return sessions.Issued{Token: "tok-" + sub.UserID, SessionID: "s1"}, nil
}

func (f *fakeSessions) Revoke(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return nil
}

func newTestService() (*Service, *testRepo, *fakeSessions) {
	repo := newTestRepo()
	fs := &fakeSessions{}
	svc := NewService(repo, credentials.NewBcrypt(bcrypt.MinCost), fs)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo, fs
}

func TestService_Register(t *testing.T) {
	svc, repo, fs := newTestService()

	res, err := svc.Register(context.Background(), RegisterInput{
		FullName: "  Ana Maria Pop ",
		Email:    " Ana@Example.RO ",
		Password: " secret1 ",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	u := res.User
	if u.FirstName != "Ana" || u.LastName != "Maria Pop" {
		t.Fatalf("unexpected name split %q / %q", u.FirstName, u.LastName)
	}
	if u.Email != "ana@example.ro" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.Role != auth.RoleUser {
		t.Fatalf("expected USER role, got %q", u.Role)
	}
	if u.PasswordHash == "secret1" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) != nil {
		t.Fatalf("password must be stored as a bcrypt hash of the trimmed value")
	}
	if _, ok := repo.byID[u.ID]; !ok {
		t.Fatalf("user not stored")
	}
	if res.Session.Token != "tok-"+u.ID || len(fs.issued) != 1 {
		t.Fatalf("expected a session to be issued")
	}
}

func TestService_Register_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing name", RegisterInput{Email: "a@x.ro", Password: "secret1"}, ErrInvalidInput},
		{"missing email", RegisterInput{FullName: "Ana", Password: "secret1"}, ErrInvalidInput},
		{"blank password", RegisterInput{FullName: "Ana", Email: "a@x.ro", Password: "   "}, ErrInvalidInput},
		{"short password", RegisterInput{FullName: "Ana", Email: "a@x.ro", Password: "12345"}, ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestService_Register_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{FullName: "Ana", Email: "ana@x.ro", Password: "secret1"}); err != nil {
		t.Fatalf("Register #1: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{FullName: "Ana B", Email: "ANA@x.ro", Password: "secret2"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestService_Login(t *testing.T) {
	svc, _, fs := newTestService()
	ctx := context.Background()

	reg, _ := svc.Register(ctx, RegisterInput{FullName: "Ana", Email: "ana@x.ro", Password: "secret1"})

	if _, err := svc.Login(ctx, "nobody@x.ro", "secret1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.Login(ctx, "ana@x.ro", "wrong-pass"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	res, err := svc.Login(ctx, " ANA@x.ro ", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != reg.User.ID {
		t.Fatalf("logged in as wrong user")
	}
	if len(fs.issued) != 2 {
		t.Fatalf("expected a new session per login, got %d", len(fs.issued))
	}

	if err := svc.Logout(ctx, res.Session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(fs.revoked) != 1 || fs.revoked[0] != res.Session.Token {
		t.Fatalf("expected token to be revoked")
	}
}

func TestService_CreateMedic(t *testing.T) {
	svc, _, fs := newTestService()

	u, err := svc.Create(context.Background(), RegisterInput{FullName: "Dr House", Email: "house@x.ro", Password: "secret1"}, auth.RoleMedic)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Role != auth.RoleMedic {
		t.Fatalf("expected MEDIC, got %q", u.Role)
	}
	if len(fs.issued) != 0 {
		t.Fatalf("Create must not open a session")
	}

	if _, err := svc.Create(context.Background(), RegisterInput{FullName: "X", Email: "x@x.ro", Password: "secret1"}, "ADMIN"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestUser_WelcomeMessage(t *testing.T) {
	cases := []struct {
		u    User
		want string
	}{
		{User{FirstName: "Ana", LastName: "Pop", Email: "a@x.ro"}, "Welcome, Ana Pop"},
		{User{FirstName: "Ana", Email: "a@x.ro"}, "Welcome, Ana"},
		{User{Email: "a@x.ro"}, "Welcome, a@x.ro"},
	}
	for _, tc := range cases {
		if got := tc.u.WelcomeMessage(); got != tc.want {
			t.Fatalf("WelcomeMessage() = %q, want %q", got, tc.want)
		}
	}
}
