package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type testRepo struct {
	byID map[string]Session
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Session{}}
}

func (r *testRepo) Create(_ context.Context, s Session) error {
	r.byID[s.ID] = s
	return nil
}

func (r *testRepo) Get(_ context.Context, id string) (Session, error) {
	s, ok := r.byID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *testRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, Options{Secret: "test-secret", TTL: time.Hour})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestService_IssueAndVerify(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	issued, err := svc.Issue(context.Background(), Subject{UserID: "u1", Email: "ana@x.ro", Role: "USER"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.Token == "" || issued.SessionID == "" {
		t.Fatalf("expected token and session id, got %#v", issued)
	}
	if !issued.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
	}
	if _, ok := repo.byID[issued.SessionID]; !ok {
		t.Fatalf("session was not stored")
	}

	claims, err := svc.Verify(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ana@x.ro" || claims.Role != "USER" || claims.SessionID != issued.SessionID {
		t.Fatalf("unexpected claims %#v", claims)
	}
}

func TestService_Verify_Expired(t *testing.T) {
	svc := newTestService(t, newTestRepo())

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	issued, _ := svc.Issue(context.Background(), Subject{UserID: "u1"})

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := svc.Verify(context.Background(), issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	// Revoke acepta tokens expirados
	if err := svc.Revoke(context.Background(), issued.Token); err != nil {
		t.Fatalf("Revoke expired: %v", err)
	}
}

func TestService_Revoke(t *testing.T) {
	svc := newTestService(t, newTestRepo())
	issued, _ := svc.Issue(context.Background(), Subject{UserID: "u1"})

	if err := svc.Revoke(context.Background(), issued.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := svc.Revoke(context.Background(), issued.Token); err != nil {
		t.Fatalf("Revoke must be idempotent, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), issued.Token); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestService_Verify_RejectsForeignTokens(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(t, repo)
	issued, _ := svc.Issue(context.Background(), Subject{UserID: "u1"})

	other, _ := NewService(repo, Options{Secret: "other-secret"})
	if _, err := other.Verify(context.Background(), issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	wrongIssuer, _ := NewService(repo, Options{Secret: "test-secret", Issuer: "someone-else"})
	if _, err := wrongIssuer.Verify(context.Background(), issued.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}

	// alg none
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: issued.SessionID, Subject: "u1"})
	raw, _ := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := svc.Verify(context.Background(), raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg none, got %v", err)
	}

	if _, err := svc.Verify(context.Background(), "  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(nil, Options{Secret: "x"}); err == nil {
		t.Fatalf("expected error without repo")
	}
	if _, err := NewService(newTestRepo(), Options{}); err == nil {
		t.Fatalf("expected error without secret")
	}

	svc := newTestService(t, newTestRepo())
	if _, err := svc.Issue(context.Background(), Subject{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
