package recommendations

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"medicare-now/internal/domain/careaccess"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

// Authorizer evita depender del service completo de careaccess.
type Authorizer interface {
	Authorize(ctx context.Context, patientID, medicID string, scope careaccess.Scope) error
}

type Service struct {
	repo   Repository
	grants Authorizer
	now    func() time.Time
}

func NewService(repo Repository, grants Authorizer) *Service {
	return &Service{
		repo:   repo,
		grants: grants,
		now:    time.Now,
	}
}

// Overview arma el resumen del paciente. Sin recomendaciones devuelve el
// resumen genérico (Personalized=false) con DefaultTips.
func (s *Service) Overview(ctx context.Context, patientID string) (Overview, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return Overview{}, ErrInvalidInput
	}

	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return Overview{}, err
	}
	if len(items) == 0 {
		return Overview{Items: []Recommendation{}, Tips: DefaultTips()}, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	ov := Overview{Personalized: true, Items: items, Tips: GeneralTips()}
	for _, r := range items {
		if r.Status == StatusActive {
			ov.Active++
		} else {
			ov.Completed++
		}
	}
	ov.Total = ov.Active + ov.Completed
	return ov, nil
}

type CreateInput struct {
	MedicID     string
	PatientID   string
	Description string
	Type        string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Recommendation, error) {
	medicID := strings.TrimSpace(in.MedicID)
	patientID := strings.TrimSpace(in.PatientID)
	desc := strings.TrimSpace(in.Description)
	typ := strings.ToLower(strings.TrimSpace(in.Type))

	if medicID == "" || patientID == "" || desc == "" || typ == "" {
		return Recommendation{}, ErrInvalidInput
	}
	if err := s.authorize(ctx, patientID, medicID); err != nil {
		return Recommendation{}, err
	}

	r := Recommendation{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		MedicID:     medicID,
		Description: desc,
		Type:        typ,
		Status:      StatusActive,
		Progress:    0,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Recommendation{}, err
	}
	return r, nil
}

// UpdateProgress: solo el médico autor; 100 marca la recomendación como completada.
func (s *Service) UpdateProgress(ctx context.Context, medicID, id string, progress int) (Recommendation, error) {
	medicID = strings.TrimSpace(medicID)
	id = strings.TrimSpace(id)
	if medicID == "" || id == "" || progress < 0 || progress > 100 {
		return Recommendation{}, ErrInvalidInput
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Recommendation{}, err
	}
	if r.MedicID != medicID {
		return Recommendation{}, ErrForbidden
	}
	if err := s.authorize(ctx, r.PatientID, medicID); err != nil {
		return Recommendation{}, err
	}

	r.Progress = progress
	if progress == 100 {
		r.Status = StatusCompleted
	} else {
		r.Status = StatusActive
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return Recommendation{}, err
	}
	return r, nil
}

func (s *Service) authorize(ctx context.Context, patientID, medicID string) error {
	err := s.grants.Authorize(ctx, patientID, medicID, careaccess.ScopeRecommendationsWrite)
	if errors.Is(err, careaccess.ErrForbidden) {
		return ErrForbidden
	}
	return err
}
