// Package gatewayrepo implementa los repositorios de dominio sobre el
// gateway de persistencia. Cada repo conoce su colección y los nombres de
// campo que se guardan; el gateway decide en qué backend vive cada una.
package gatewayrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medicare-now/internal/gateway"
)

const (
	usersCollection           = "users"
	userEmailsCollection      = "user_emails"
	sessionsCollection        = "sessions"
	healthDataCollection      = "health_data"
	recommendationsCollection = "recomandari"
	grantsCollection          = "care_grants"
)

// Store es el subconjunto de *gateway.Gateway que usan los repos.
type Store interface {
	Put(ctx context.Context, collection, id string, value any) error
	Create(ctx context.Context, collection, id string, value any) error
	GetInto(ctx context.Context, collection, id string, out any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, q gateway.Query) ([]gateway.Entry, error)
}

var _ Store = (*gateway.Gateway)(nil)

// mapErr traduce los errores del gateway a los sentinels del dominio.
func mapErr(err, notFound, invalid error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrNotFound):
		return notFound
	case errors.Is(err, gateway.ErrValidation):
		return fmt.Errorf("%w: %v", invalid, err)
	default:
		return err
	}
}

func listInto[T any](ctx context.Context, s Store, collection string, q gateway.Query, convert func(id string, rec T) error) error {
	entries, err := s.List(ctx, collection, q)
	if err != nil {
		return err
	}
	for _, e := range entries {
		var rec T
		if err := gateway.Decode(e.Value, &rec); err != nil {
			return err
		}
		if err := convert(e.ID, rec); err != nil {
			return err
		}
	}
	return nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
