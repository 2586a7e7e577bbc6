package careaccess

import "time"

type Scope string

const (
	ScopeReadingsRead         Scope = "readings:read"
	ScopeRecommendationsWrite Scope = "recommendations:write"
)

// DefaultScopes se aplica cuando la invitación no trae scopes.
func DefaultScopes() []Scope {
	return []Scope{ScopeReadingsRead, ScopeRecommendationsWrite}
}

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Grant: un paciente comparte sus datos con un médico.
type Grant struct {
	ID string

	PatientID string // quien comparte
	MedicID   string

	Scopes []Scope
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
