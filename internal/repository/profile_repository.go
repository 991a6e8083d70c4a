package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

// ProfileRepository writes the role-specific profile rows.
type ProfileRepository struct {
	db Queryer
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db Queryer) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateCustomer inserts a customer profile.
func (r *ProfileRepository) CreateCustomer(ctx context.Context, profile *models.CustomerProfile) error {
	const query = `INSERT INTO customers (user_id, registration_date, customer_point) VALUES (:user_id, :registration_date, :customer_point)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, profile); err != nil {
		return fmt.Errorf("create customer profile: %w", err)
	}
	return nil
}

// CreateStaff inserts a staff profile.
func (r *ProfileRepository) CreateStaff(ctx context.Context, profile *models.StaffProfile) error {
	const query = `INSERT INTO staff (user_id, staff_point) VALUES (:user_id, :staff_point)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, profile); err != nil {
		return fmt.Errorf("create staff profile: %w", err)
	}
	return nil
}
