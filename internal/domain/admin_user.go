package domain

import "time"

// AdminUser is an operator account allowed to issue batches and read reports.
// Verification itself is public and needs no account.
type AdminUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
