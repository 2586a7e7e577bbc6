package gatewayrepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"medicare-now/internal/adapters/storage/memory"
	"medicare-now/internal/domain/accounts"
	"medicare-now/internal/domain/careaccess"
	"medicare-now/internal/domain/readings"
	"medicare-now/internal/domain/recommendations"
	"medicare-now/internal/domain/sessions"
	"medicare-now/internal/gateway"
	"medicare-now/internal/platform/credentials"
)

func newStore(t *testing.T) (*gateway.Gateway, *memory.Tree, *memory.Documents) {
	t.Helper()
	tree := memory.NewTree()
	docs := memory.NewDocuments()
	g, err := gateway.New(gateway.Options{Realtime: tree, Document: docs})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return g, tree, docs
}

func TestUsersRepo(t *testing.T) {
	g, _, docs := newStore(t)
	repo := NewUsersRepo(g)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	u := accounts.User{
		ID:           "u1",
		FirstName:    "Ana",
		LastName:     "Pop",
		Email:        "ana@example.com",
		PasswordHash: "$2a$hash",
		Role:         "USER",
		CreatedAt:    created,
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	raw, err := docs.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if raw["password"] != "$2a$hash" || raw["firstName"] != "Ana" {
		t.Fatalf("unexpected stored fields %#v", raw)
	}

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != "u1" || !byEmail.CreatedAt.Equal(created) || byEmail.PasswordHash != u.PasswordHash {
		t.Fatalf("unexpected user %#v", byEmail)
	}

	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, accounts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, accounts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersRepo_EmailIsClaimedOnce(t *testing.T) {
	g, _, _ := newStore(t)
	repo := NewUsersRepo(g)
	ctx := context.Background()

	if err := repo.Create(ctx, accounts.User{ID: "u1", Email: "ana@example.com", Role: "USER"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.Create(ctx, accounts.User{ID: "u2", Email: "ana@example.com", Role: "USER"})
	if !errors.Is(err, accounts.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "u2"); !errors.Is(err, accounts.ErrNotFound) {
		t.Fatalf("rejected user must not be stored, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "ana@example.com")
	if err != nil || got.ID != "u1" {
		t.Fatalf("email must still resolve to u1, got %#v err=%v", got, err)
	}
	// repetir la misma alta (reintento) no es un conflicto
	if err := repo.Create(ctx, accounts.User{ID: "u1", Email: "ana@example.com", Role: "USER"}); err != nil {
		t.Fatalf("repeating the same user must succeed, got %v", err)
	}
}

func TestUsersRepo_ConcurrentRegistrationSameEmail(t *testing.T) {
	g, _, _ := newStore(t)
	svc := accounts.NewService(NewUsersRepo(g), credentials.NewBcrypt(bcrypt.MinCost), nil)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		created int
		taken   int
		others  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Create(ctx, accounts.RegisterInput{
				FullName: "Ana Pop",
				Email:    "ana@example.com",
				Password: "secret1",
			}, "USER")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, accounts.ErrEmailTaken):
				taken++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if created != 1 || taken != workers-1 || len(others) != 0 {
		t.Fatalf("expected 1 account and %d rejections, got created=%d taken=%d others=%v", workers-1, created, taken, others)
	}

	stored, err := g.List(ctx, "users", gateway.Query{Field: "email", Equals: "ana@example.com"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected one stored user for the email, got %d", len(stored))
	}
}

func TestSessionsRepo(t *testing.T) {
	g, _, _ := newStore(t)
	repo := NewSessionsRepo(g)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := sessions.Session{ID: "s1", UserID: "u1", Email: "a@b.c", Role: "USER", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" || !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Fatalf("unexpected session %#v", got)
	}

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := repo.Get(ctx, "s1"); !errors.Is(err, sessions.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadingsRepo_UsesRealtimeTree(t *testing.T) {
	g, tree, docs := newStore(t)
	repo := NewReadingsRepo(g)
	ctx := context.Background()

	stamps := []string{"2025-03-01 10:00:00", "2025-03-01 10:00:05", "2025-03-01 10:00:10"}
	for i, ts := range stamps {
		r := readings.Reading{
			ID:          "2025-03-01_10:00:" + ts[len(ts)-2:],
			UserID:      "u1",
			Pulse:       70 + i,
			Temperature: 36.6,
			Humidity:    40,
			Timestamp:   ts,
		}
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	if _, err := tree.Get(ctx, "health_data/u1", "2025-03-01_10:00:05"); err != nil {
		t.Fatalf("reading must be stored in the tree: %v", err)
	}
	if list, _ := docs.List(ctx, "health_data/u1", gateway.Query{}); len(list) != 0 {
		t.Fatalf("reading must not reach the document store")
	}

	latest, err := repo.ListLatest(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(latest) != 2 || latest[0].Pulse != 72 || latest[1].Pulse != 71 {
		t.Fatalf("unexpected latest %#v", latest)
	}
	if latest[0].UserID != "u1" || latest[0].Timestamp != stamps[2] {
		t.Fatalf("unexpected reading %#v", latest[0])
	}

	if err := repo.Delete(ctx, "u1", "2025-03-01_10:00:10"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "u1", "2025-03-01_10:00:10"); !errors.Is(err, readings.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.Save(ctx, readings.Reading{ID: "r1", UserID: "bad.id"}); !errors.Is(err, readings.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for invalid path, got %v", err)
	}
}

func TestRecommendationsRepo(t *testing.T) {
	g, _, _ := newStore(t)
	repo := NewRecommendationsRepo(g)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := recommendations.Recommendation{
		ID: "r1", PatientID: "p1", MedicID: "m1",
		Description: "Plimbare zilnică", Type: "activitate",
		Status: recommendations.StatusActive, Progress: 20, CreatedAt: created,
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = repo.Create(ctx, recommendations.Recommendation{ID: "r2", PatientID: "p2", MedicID: "m1", CreatedAt: created})

	rec.Progress = 100
	rec.Status = recommendations.StatusCompleted
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.Update(ctx, recommendations.Recommendation{ID: "missing"}); !errors.Is(err, recommendations.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	list, err := repo.ListByPatient(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Progress != 100 || list[0].Status != recommendations.StatusCompleted {
		t.Fatalf("unexpected list %#v", list)
	}
	if !list[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected created at %v", list[0].CreatedAt)
	}
}

func TestGrantsRepo(t *testing.T) {
	g, _, _ := newStore(t)
	repo := NewGrantsRepo(g)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	grant := careaccess.Grant{
		ID: "g1", PatientID: "p1", MedicID: "m1",
		Scopes: careaccess.DefaultScopes(), Status: careaccess.StatusInvited,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Create(ctx, grant); err != nil {
		t.Fatalf("create: %v", err)
	}

	revokedAt := now.Add(time.Hour)
	grant.Status = careaccess.StatusRevoked
	grant.RevokedAt = &revokedAt
	if err := repo.Update(ctx, grant); err != nil {
		t.Fatalf("update: %v", err)
	}

	byMedic, err := repo.ListByMedic(ctx, "m1")
	if err != nil {
		t.Fatalf("list by medic: %v", err)
	}
	if len(byMedic) != 1 || byMedic[0].RevokedAt == nil || !byMedic[0].RevokedAt.Equal(revokedAt) {
		t.Fatalf("unexpected grants %#v", byMedic)
	}
	if len(byMedic[0].Scopes) != 2 || byMedic[0].Scopes[0] != careaccess.ScopeReadingsRead {
		t.Fatalf("unexpected scopes %#v", byMedic[0].Scopes)
	}

	byPatient, _ := repo.ListByPatient(ctx, "p2")
	if len(byPatient) != 0 {
		t.Fatalf("expected no grants for p2, got %#v", byPatient)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, careaccess.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
