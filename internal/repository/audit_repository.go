package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

// AuditRepository appends security audit records.
type AuditRepository struct {
	db Queryer
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db Queryer) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit record.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, actor_id, action, resource, resource_id, details, ip_address, created_at) VALUES (:id, :user_id, :actor_id, :action, :resource, :resource_id, :details, :ip_address, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
