package readings

import "context"

type Repository interface {
	Save(ctx context.Context, r Reading) error
	Get(ctx context.Context, userID, id string) (Reading, error)
	// ListLatest devuelve las lecturas más nuevas primero.
	ListLatest(ctx context.Context, userID string, limit int) ([]Reading, error)
	Delete(ctx context.Context, userID, id string) error
}
