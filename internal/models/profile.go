package models

import "time"

// CustomerProfile is created alongside every Customer account.
type CustomerProfile struct {
	UserID           string    `db:"user_id" json:"user_id"`
	RegistrationDate time.Time `db:"registration_date" json:"registration_date"`
	Points           int       `db:"customer_point" json:"customer_point"`
}

// StaffProfile is created alongside every Staff account.
type StaffProfile struct {
	UserID string `db:"user_id" json:"user_id"`
	Points int    `db:"staff_point" json:"staff_point"`
}
