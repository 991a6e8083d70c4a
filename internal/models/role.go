package models

import "time"

// Role is static reference data seeded out-of-band.
type Role struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// UserRole links a user to a role.
type UserRole struct {
	UserID string `db:"user_id" json:"user_id"`
	RoleID int64  `db:"role_id" json:"role_id"`
}

// Permission is a named capability.
type Permission struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// UserPermission records a capability granted to a user.
type UserPermission struct {
	UserID       string    `db:"user_id" json:"user_id"`
	PermissionID int64     `db:"permission_id" json:"permission_id"`
	AssignedBy   string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt   time.Time `db:"assigned_at" json:"assigned_at"`
}

// UserPermissionDetail is the read model returned to the current user.
type UserPermissionDetail struct {
	PermissionID   int64   `db:"permission_id" json:"permission_id"`
	PermissionName string  `db:"permission_name" json:"permission_name"`
	Description    *string `db:"description" json:"description,omitempty"`
	AssignedBy     *string `db:"assigned_by_name" json:"assigned_by,omitempty"`
}
