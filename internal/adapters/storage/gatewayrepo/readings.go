package gatewayrepo

import (
	"context"

	"medicare-now/internal/domain/readings"
	"medicare-now/internal/gateway"
)

var _ readings.Repository = (*ReadingsRepo)(nil)

type readingRecord struct {
	Pulse       int     `json:"pulse"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// ReadingsRepo guarda en health_data/{userID}/{readingID}.
type ReadingsRepo struct {
	store Store
}

func NewReadingsRepo(store Store) *ReadingsRepo {
	return &ReadingsRepo{store: store}
}

// ReadingsCollection es el path de las lecturas de un usuario (también el topic del feed realtime).
func ReadingsCollection(userID string) string {
	return healthDataCollection + "/" + userID
}

func (r *ReadingsRepo) Save(ctx context.Context, rd readings.Reading) error {
	err := r.store.Put(ctx, ReadingsCollection(rd.UserID), rd.ID, readingRecord{
		Pulse:       rd.Pulse,
		Temperature: rd.Temperature,
		Humidity:    rd.Humidity,
		Timestamp:   rd.Timestamp,
	})
	return mapErr(err, readings.ErrNotFound, readings.ErrInvalidInput)
}

func (r *ReadingsRepo) Get(ctx context.Context, userID, id string) (readings.Reading, error) {
	var rec readingRecord
	if err := r.store.GetInto(ctx, ReadingsCollection(userID), id, &rec); err != nil {
		return readings.Reading{}, mapErr(err, readings.ErrNotFound, readings.ErrInvalidInput)
	}
	return rec.toReading(userID, id), nil
}

func (r *ReadingsRepo) ListLatest(ctx context.Context, userID string, limit int) ([]readings.Reading, error) {
	out := make([]readings.Reading, 0)
	err := listInto(ctx, r.store, ReadingsCollection(userID), gateway.Query{Descending: true, Limit: limit},
		func(id string, rec readingRecord) error {
			out = append(out, rec.toReading(userID, id))
			return nil
		})
	if err != nil {
		return nil, mapErr(err, readings.ErrNotFound, readings.ErrInvalidInput)
	}
	return out, nil
}

func (r *ReadingsRepo) Delete(ctx context.Context, userID, id string) error {
	return mapErr(r.store.Delete(ctx, ReadingsCollection(userID), id), readings.ErrNotFound, readings.ErrInvalidInput)
}

func (rec readingRecord) toReading(userID, id string) readings.Reading {
	return readings.Reading{
		ID:          id,
		UserID:      userID,
		Pulse:       rec.Pulse,
		Temperature: rec.Temperature,
		Humidity:    rec.Humidity,
		Timestamp:   rec.Timestamp,
	}
}
