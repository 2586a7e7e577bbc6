package gatewayrepo

import (
	"context"
	"time"

	"medicare-now/internal/domain/recommendations"
	"medicare-now/internal/gateway"
)

var _ recommendations.Repository = (*RecommendationsRepo)(nil)

type recommendationRecord struct {
	PacientID      string    `json:"pacientID"`
	MedicID        string    `json:"medicID"`
	Descriere      string    `json:"descriere"`
	TipRecomandare string    `json:"tipRecomandare"`
	Status         string    `json:"status"`
	Progres        int       `json:"progres"`
	DataCreare     time.Time `json:"dataCreare"`
}

type RecommendationsRepo struct {
	store Store
}

func NewRecommendationsRepo(store Store) *RecommendationsRepo {
	return &RecommendationsRepo{store: store}
}

func (r *RecommendationsRepo) Create(ctx context.Context, rec recommendations.Recommendation) error {
	return r.put(ctx, rec)
}

func (r *RecommendationsRepo) Update(ctx context.Context, rec recommendations.Recommendation) error {
	if _, err := r.GetByID(ctx, rec.ID); err != nil {
		return err
	}
	return r.put(ctx, rec)
}

func (r *RecommendationsRepo) GetByID(ctx context.Context, id string) (recommendations.Recommendation, error) {
	var rec recommendationRecord
	if err := r.store.GetInto(ctx, recommendationsCollection, id, &rec); err != nil {
		return recommendations.Recommendation{}, mapErr(err, recommendations.ErrNotFound, recommendations.ErrInvalidInput)
	}
	return rec.toDomain(id), nil
}

func (r *RecommendationsRepo) ListByPatient(ctx context.Context, patientID string) ([]recommendations.Recommendation, error) {
	out := make([]recommendations.Recommendation, 0)
	err := listInto(ctx, r.store, recommendationsCollection, gateway.Query{Field: "pacientID", Equals: patientID},
		func(id string, rec recommendationRecord) error {
			out = append(out, rec.toDomain(id))
			return nil
		})
	if err != nil {
		return nil, mapErr(err, recommendations.ErrNotFound, recommendations.ErrInvalidInput)
	}
	return out, nil
}

func (r *RecommendationsRepo) put(ctx context.Context, rec recommendations.Recommendation) error {
	err := r.store.Put(ctx, recommendationsCollection, rec.ID, recommendationRecord{
		PacientID:      rec.PatientID,
		MedicID:        rec.MedicID,
		Descriere:      rec.Description,
		TipRecomandare: rec.Type,
		Status:         string(rec.Status),
		Progres:        rec.Progress,
		DataCreare:     rec.CreatedAt,
	})
	return mapErr(err, recommendations.ErrNotFound, recommendations.ErrInvalidInput)
}

func (rec recommendationRecord) toDomain(id string) recommendations.Recommendation {
	return recommendations.Recommendation{
		ID:          id,
		PatientID:   rec.PacientID,
		MedicID:     rec.MedicID,
		Description: rec.Descriere,
		Type:        rec.TipRecomandare,
		Status:      recommendations.Status(rec.Status),
		Progress:    rec.Progres,
		CreatedAt:   rec.DataCreare,
	}
}
