package domain

import (
	"strings"
	"time"
)

// Roles a user can hold. The role is fixed at registration.
const (
	RoleAgent  = "agent"
	RoleClient = "client"
)

// User represents a marketplace account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidRole reports whether role is one of the supported roles.
func ValidRole(role string) bool {
	return role == RoleAgent || role == RoleClient
}

// NormalizeEmail trims and lower-cases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserView is the public projection of a user. It never carries the password hash.
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// View returns the public projection of u.
func (u *User) View() *UserView {
	if u == nil {
		return nil
	}
	return &UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
