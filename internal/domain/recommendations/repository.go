package recommendations

import "context"

type Repository interface {
	Create(ctx context.Context, r Recommendation) error
	Update(ctx context.Context, r Recommendation) error
	GetByID(ctx context.Context, id string) (Recommendation, error)
	ListByPatient(ctx context.Context, patientID string) ([]Recommendation, error)
}
