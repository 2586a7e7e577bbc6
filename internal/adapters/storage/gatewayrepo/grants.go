package gatewayrepo

import (
	"context"
	"time"

	"medicare-now/internal/domain/careaccess"
	"medicare-now/internal/gateway"
)

var _ careaccess.Repository = (*GrantsRepo)(nil)

type grantRecord struct {
	PatientID string             `json:"patientId"`
	MedicID   string             `json:"medicId"`
	Scopes    []careaccess.Scope `json:"scopes"`
	Status    careaccess.Status  `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	RevokedAt *time.Time         `json:"revokedAt,omitempty"`
}

type GrantsRepo struct {
	store Store
}

func NewGrantsRepo(store Store) *GrantsRepo {
	return &GrantsRepo{store: store}
}

func (r *GrantsRepo) Create(ctx context.Context, g careaccess.Grant) error {
	return r.put(ctx, g)
}

func (r *GrantsRepo) Update(ctx context.Context, g careaccess.Grant) error {
	if _, err := r.GetByID(ctx, g.ID); err != nil {
		return err
	}
	return r.put(ctx, g)
}

func (r *GrantsRepo) GetByID(ctx context.Context, id string) (careaccess.Grant, error) {
	var rec grantRecord
	if err := r.store.GetInto(ctx, grantsCollection, id, &rec); err != nil {
		return careaccess.Grant{}, mapErr(err, careaccess.ErrNotFound, careaccess.ErrInvalidInput)
	}
	return rec.toDomain(id), nil
}

func (r *GrantsRepo) ListByPatient(ctx context.Context, patientID string) ([]careaccess.Grant, error) {
	return r.listBy(ctx, "patientId", patientID)
}

func (r *GrantsRepo) ListByMedic(ctx context.Context, medicID string) ([]careaccess.Grant, error) {
	return r.listBy(ctx, "medicId", medicID)
}

func (r *GrantsRepo) listBy(ctx context.Context, field, value string) ([]careaccess.Grant, error) {
	out := make([]careaccess.Grant, 0)
	err := listInto(ctx, r.store, grantsCollection, gateway.Query{Field: field, Equals: value},
		func(id string, rec grantRecord) error {
			out = append(out, rec.toDomain(id))
			return nil
		})
	if err != nil {
		return nil, mapErr(err, careaccess.ErrNotFound, careaccess.ErrInvalidInput)
	}
	return out, nil
}

func (r *GrantsRepo) put(ctx context.Context, g careaccess.Grant) error {
	err := r.store.Put(ctx, grantsCollection, g.ID, grantRecord{
		PatientID: g.PatientID,
		MedicID:   g.MedicID,
		Scopes:    g.Scopes,
		Status:    g.Status,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
		RevokedAt: g.RevokedAt,
	})
	return mapErr(err, careaccess.ErrNotFound, careaccess.ErrInvalidInput)
}

func (rec grantRecord) toDomain(id string) careaccess.Grant {
	return careaccess.Grant{
		ID:        id,
		PatientID: rec.PatientID,
		MedicID:   rec.MedicID,
		Scopes:    rec.Scopes,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		RevokedAt: rec.RevokedAt,
	}
}
