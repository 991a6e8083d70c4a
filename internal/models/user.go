package models

import (
	"strings"
	"time"
)

// Role names seeded in the roles table.
const (
	RoleCustomer = "Customer"
	RoleStaff    = "Staff"
	RoleManager  = "Manager"
	RoleAdmin    = "Admin"
)

// SelfRegistrableRoles lists the roles a new account may request.
var SelfRegistrableRoles = []string{RoleCustomer, RoleStaff}

// CanonicalSelfRegistrableRole returns the canonical spelling of name when it
// is a role open to self-registration.
func CanonicalSelfRegistrableRole(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, role := range SelfRegistrableRoles {
		if strings.EqualFold(role, name) {
			return role, true
		}
	}
	return "", false
}

// User represents an account stored in the users table.
type User struct {
	ID               string    `db:"id" json:"id"`
	Username         string    `db:"username" json:"username"`
	Email            string    `db:"email" json:"email"`
	PasswordHash     *string   `db:"password_hash" json:"-"`
	FullName         *string   `db:"full_name" json:"full_name,omitempty"`
	Phone            *string   `db:"phone" json:"phone,omitempty"`
	Address          *string   `db:"address" json:"address,omitempty"`
	Active           bool      `db:"active" json:"active"`
	ExternalProvider *string   `db:"external_provider" json:"external_provider,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// HasLocalPassword reports whether password login is possible.
func (u *User) HasLocalPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
