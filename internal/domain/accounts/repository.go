package accounts

import "context"

type Repository interface {
	// Create reserva el email de forma atómica: ErrEmailTaken si ya tiene dueño.
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	// GetByEmail recibe el email ya normalizado; ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (User, error)
}
