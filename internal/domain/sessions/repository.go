package sessions

import "context"

type Repository interface {
	Create(ctx context.Context, s Session) error
	// Get devuelve ErrNotFound si la sesión no existe (o fue revocada).
	Get(ctx context.Context, id string) (Session, error)
	// Delete es idempotente.
	Delete(ctx context.Context, id string) error
}
