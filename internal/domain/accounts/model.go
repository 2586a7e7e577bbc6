package accounts

import "time"

type User struct {
	ID string

	FirstName string
	LastName  string
	Email     string // siempre en minúsculas

	PasswordHash string
	Role         string // auth.RoleUser / auth.RoleMedic

	CreatedAt time.Time
}

// WelcomeMessage: nombre completo, solo nombre o, si no hay nombre, el email.
func (u User) WelcomeMessage() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return "Welcome, " + u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return "Welcome, " + u.FirstName
	default:
		return "Welcome, " + u.Email
	}
}
