package entity

import (
	"time"
)

// User is the aggregate root for the user domain.
// Password holds the bcrypt hash, never the plaintext, and must not leave
// the service boundary; use Public to build a response projection.
type User struct {
	ID        string
	Name      string
	Email     string
	Password  string
	IsActive  bool
	Roles     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser builds a fresh, active user carrying the default roles.
func NewUser(name, email, passwordHash string) *User {
	return &User{
		Name:     name,
		Email:    email,
		Password: passwordHash,
		IsActive: true,
		Roles:    DefaultRoles(),
	}
}

// PublicUser is the password-stripped projection returned across trust boundaries.
type PublicUser struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	IsActive bool     `json:"isActive"`
	Roles    []string `json:"roles"`
}

func (u *User) Public() PublicUser {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		IsActive: u.IsActive,
		Roles:    roles,
	}
}
