package readings

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo       Repository
	thresholds Thresholds
	now        func() time.Time
}

func NewService(repo Repository, thresholds Thresholds) *Service {
	return &Service{
		repo:       repo,
		thresholds: thresholds,
		now:        time.Now,
	}
}

type Recorded struct {
	Reading Reading
	Alerts  []Alert
}

// Evaluate no guarda nada.
func (s *Service) Evaluate(f Frame) []Alert {
	return s.thresholds.Evaluate(f)
}

// Record guarda el frame bajo health_data/{userID}/{timestamp}. Dos frames en el
// mismo segundo comparten id; gana el último.
func (s *Service) Record(ctx context.Context, userID string, f Frame) (Recorded, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Recorded{}, ErrInvalidInput
	}

	ts := s.now().Format(TimestampLayout)
	r := Reading{
		ID:          strings.ReplaceAll(ts, " ", "_"),
		UserID:      userID,
		Pulse:       f.Pulse,
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
		Timestamp:   ts,
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return Recorded{}, err
	}
	return Recorded{Reading: r, Alerts: s.thresholds.Evaluate(f)}, nil
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]Reading, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.repo.ListLatest(ctx, userID, limit)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Reading, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return Reading{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, userID, id)
}

// Delete es idempotente.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, userID, id)
}
