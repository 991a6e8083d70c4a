package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionRegister      = "REGISTER"
	AuditActionLogin         = "LOGIN"
	AuditActionExternalLogin = "EXTERNAL_LOGIN"
	AuditActionRefresh       = "REFRESH"
	AuditActionLogout        = "LOGOUT"
	AuditActionBan           = "BAN"
	AuditActionUnban         = "UNBAN"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
