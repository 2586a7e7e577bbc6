package careaccess

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type InviteInput struct {
	PatientID string
	MedicID   string
	Scopes    []Scope
}

// Invite crea una invitación o, si ya hay una no revocada para el mismo
// par paciente/médico, le actualiza los scopes.
func (s *Service) Invite(ctx context.Context, in InviteInput) (Grant, error) {
	patientID := strings.TrimSpace(in.PatientID)
	medicID := strings.TrimSpace(in.MedicID)

	if patientID == "" || medicID == "" || patientID == medicID {
		return Grant{}, ErrInvalidInput
	}

	scopes := DefaultScopes()
	if len(in.Scopes) > 0 {
		var err error
		scopes, err = normalizeScopes(in.Scopes)
		if err != nil {
			return Grant{}, err
		}
		if len(scopes) == 0 {
			return Grant{}, ErrInvalidInput
		}
	}

	now := s.now()

	existing, matches, err := s.latestMatch(ctx, patientID, medicID)
	if err != nil {
		return Grant{}, err
	}
	if existing != nil && existing.Status != StatusRevoked {
		if err := s.revokeOthers(ctx, existing.ID, matches, now); err != nil {
			return Grant{}, err
		}
		existing.Scopes = scopes
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, *existing); err != nil {
			return Grant{}, err
		}
		return *existing, nil
	}

	g := Grant{
		ID:        uuid.NewString(),
		PatientID: patientID,
		MedicID:   medicID,
		Scopes:    scopes,
		Status:    StatusInvited,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Accept lo hace el médico invitado; idempotente.
func (s *Service) Accept(ctx context.Context, grantID, medicID string) (Grant, error) {
	g, err := s.load(ctx, grantID, medicID)
	if err != nil {
		return Grant{}, err
	}
	if g.MedicID != strings.TrimSpace(medicID) {
		return Grant{}, ErrForbidden
	}

	switch g.Status {
	case StatusActive:
		return g, nil
	case StatusInvited:
	default:
		return Grant{}, ErrBadState
	}

	g.Status = StatusActive
	g.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// Revoke lo hace el paciente; idempotente.
func (s *Service) Revoke(ctx context.Context, grantID, patientID string) (Grant, error) {
	g, err := s.load(ctx, grantID, patientID)
	if err != nil {
		return Grant{}, err
	}
	if g.PatientID != strings.TrimSpace(patientID) {
		return Grant{}, ErrForbidden
	}
	if g.Status == StatusRevoked {
		return g, nil
	}

	now := s.now()
	g.Status = StatusRevoked
	g.UpdatedAt = now
	g.RevokedAt = &now
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}
	return g, nil
}

// ActiveGrant devuelve el grant activo más reciente entre paciente y médico.
func (s *Service) ActiveGrant(ctx context.Context, patientID, medicID string) (Grant, error) {
	patientID = strings.TrimSpace(patientID)
	medicID = strings.TrimSpace(medicID)
	if patientID == "" || medicID == "" {
		return Grant{}, ErrInvalidInput
	}

	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return Grant{}, err
	}

	var winner *Grant
	for i := range items {
		g := items[i]
		if g.MedicID != medicID || g.Status != StatusActive {
			continue
		}
		if winner == nil || g.UpdatedAt.After(winner.UpdatedAt) {
			winner = &g
		}
	}
	if winner == nil {
		return Grant{}, ErrNotFound
	}
	return *winner, nil
}

// Authorize: nil si el médico tiene un grant activo con el scope pedido.
func (s *Service) Authorize(ctx context.Context, patientID, medicID string, scope Scope) error {
	g, err := s.ActiveGrant(ctx, patientID, medicID)
	if errors.Is(err, ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if !HasScope(g, scope) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Grant, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByMedic(ctx context.Context, medicID string) ([]Grant, error) {
	medicID = strings.TrimSpace(medicID)
	if medicID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByMedic(ctx, medicID)
}

func HasScope(g Grant, scope Scope) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (s *Service) load(ctx context.Context, grantID, userID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	if grantID == "" || strings.TrimSpace(userID) == "" {
		return Grant{}, ErrInvalidInput
	}
	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}
	return g, nil
}

func (s *Service) latestMatch(ctx context.Context, patientID, medicID string) (*Grant, []Grant, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}

	var (
		matches []Grant
		winner  *Grant
	)
	for i := range items {
		g := items[i]
		if g.MedicID != medicID {
			continue
		}
		matches = append(matches, g)
		if winner == nil || g.UpdatedAt.After(winner.UpdatedAt) {
			winner = &g
		}
	}
	return winner, matches, nil
}

func (s *Service) revokeOthers(ctx context.Context, winnerID string, matches []Grant, now time.Time) error {
	for _, g := range matches {
		if g.ID == winnerID || g.Status == StatusRevoked {
			continue
		}
		g.Status = StatusRevoked
		g.UpdatedAt = now
		g.RevokedAt = &now
		if err := s.repo.Update(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func normalizeScopes(in []Scope) ([]Scope, error) {
	allowed := map[Scope]struct{}{
		ScopeReadingsRead:         {},
		ScopeRecommendationsWrite: {},
	}

	seen := map[Scope]struct{}{}
	out := make([]Scope, 0, len(in))
	for _, raw := range in {
		sc := Scope(strings.TrimSpace(string(raw)))
		if sc == "" {
			continue
		}
		if _, ok := allowed[sc]; !ok {
			return nil, ErrInvalidInput
		}
		if _, ok := seen[sc]; ok {
			continue
		}
		seen[sc] = struct{}{}
		out = append(out, sc)
	}
	return out, nil
}
