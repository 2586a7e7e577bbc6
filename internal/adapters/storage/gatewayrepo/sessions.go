package gatewayrepo

import (
	"context"

	"medicare-now/internal/domain/sessions"
)

var _ sessions.Repository = (*SessionsRepo)(nil)

type sessionRecord struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"issuedAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

type SessionsRepo struct {
	store Store
}

func NewSessionsRepo(store Store) *SessionsRepo {
	return &SessionsRepo{store: store}
}

func (r *SessionsRepo) Create(ctx context.Context, s sessions.Session) error {
	err := r.store.Put(ctx, sessionsCollection, s.ID, sessionRecord{
		UserID:    s.UserID,
		Email:     s.Email,
		Role:      s.Role,
		IssuedAt:  millis(s.IssuedAt),
		ExpiresAt: millis(s.ExpiresAt),
	})
	return mapErr(err, sessions.ErrNotFound, sessions.ErrInvalidInput)
}

func (r *SessionsRepo) Get(ctx context.Context, id string) (sessions.Session, error) {
	var rec sessionRecord
	if err := r.store.GetInto(ctx, sessionsCollection, id, &rec); err != nil {
		return sessions.Session{}, mapErr(err, sessions.ErrNotFound, sessions.ErrInvalidInput)
	}
	return sessions.Session{
		ID:        id,
		UserID:    rec.UserID,
		Email:     rec.Email,
		Role:      rec.Role,
		IssuedAt:  fromMillis(rec.IssuedAt),
		ExpiresAt: fromMillis(rec.ExpiresAt),
	}, nil
}

func (r *SessionsRepo) Delete(ctx context.Context, id string) error {
	return mapErr(r.store.Delete(ctx, sessionsCollection, id), sessions.ErrNotFound, sessions.ErrInvalidInput)
}
