package sessions

import "time"

// Session es el registro server-side detrás de cada token emitido.
// Borrarlo revoca el token aunque todavía no haya expirado.
type Session struct {
	ID     string
	UserID string
	Email  string
	Role   string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Subject es la identidad para la que se emite un token.
type Subject struct {
	UserID string
	Email  string
	Role   string
}

type Issued struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}
