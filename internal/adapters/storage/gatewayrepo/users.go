package gatewayrepo

import (
	"context"
	"encoding/base64"
	"errors"

	"medicare-now/internal/domain/accounts"
	"medicare-now/internal/gateway"
)

var _ accounts.Repository = (*UsersRepo)(nil)

type userRecord struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"` // unix ms
}

// emailClaim es el índice único email -> usuario en user_emails/{emailKey}.
type emailClaim struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
}

type UsersRepo struct {
	store Store
}

func NewUsersRepo(store Store) *UsersRepo {
	return &UsersRepo{store: store}
}

// Create primero reserva el email con un insert-if-absent y recién después
// escribe el usuario. Si la escritura falla, libera la reserva.
func (r *UsersRepo) Create(ctx context.Context, u accounts.User) error {
	key := emailKey(u.Email)
	err := r.store.Create(ctx, userEmailsCollection, key, emailClaim{
		UserID:    u.ID,
		Email:     u.Email,
		CreatedAt: millis(u.CreatedAt),
	})
	if errors.Is(err, gateway.ErrConflict) && !r.claimedBy(ctx, key, u.ID) {
		return accounts.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gateway.ErrConflict) {
		return mapErr(err, accounts.ErrNotFound, accounts.ErrInvalidInput)
	}

	err = r.store.Put(ctx, usersCollection, u.ID, userRecord{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      u.Role,
		CreatedAt: millis(u.CreatedAt),
	})
	if err == nil {
		return nil
	}

	_ = r.store.Delete(ctx, userEmailsCollection, key)
	// índice único de email en Mongo
	if errors.Is(err, gateway.ErrConflict) {
		return accounts.ErrEmailTaken
	}
	return mapErr(err, accounts.ErrNotFound, accounts.ErrInvalidInput)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (accounts.User, error) {
	var rec userRecord
	if err := r.store.GetInto(ctx, usersCollection, id, &rec); err != nil {
		return accounts.User{}, mapErr(err, accounts.ErrNotFound, accounts.ErrInvalidInput)
	}
	return rec.toUser(id), nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (accounts.User, error) {
	var claim emailClaim
	if err := r.store.GetInto(ctx, userEmailsCollection, emailKey(email), &claim); err != nil {
		return accounts.User{}, mapErr(err, accounts.ErrNotFound, accounts.ErrInvalidInput)
	}
	return r.GetByID(ctx, claim.UserID)
}

// claimedBy: un reintento del gateway puede chocar con su propia reserva.
func (r *UsersRepo) claimedBy(ctx context.Context, key, userID string) bool {
	var claim emailClaim
	if err := r.store.GetInto(ctx, userEmailsCollection, key, &claim); err != nil {
		return false
	}
	return claim.UserID == userID
}

// emailKey: el email tiene "." y no puede ser id de registro tal cual.
func emailKey(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(email))
}

func (rec userRecord) toUser(id string) accounts.User {
	return accounts.User{
		ID:           id,
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		Email:        rec.Email,
		PasswordHash: rec.Password,
		Role:         rec.Role,
		CreatedAt:    fromMillis(rec.CreatedAt),
	}
}
