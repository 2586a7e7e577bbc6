package auth

// Roles de cuenta.
const (
	RoleUser  = "USER"
	RoleMedic = "MEDIC"
)

// Claims representa la información extraída del token.
type Claims struct {
	UserID    string
	Email     string
	Role      string
	SessionID string // vacío si el token no viene de una sesión local
}

func (c Claims) IsMedic() bool { return c.Role == RoleMedic }
