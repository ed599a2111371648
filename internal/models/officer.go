package models

import "time"

// OfficerStatus gates whether an officer may vote.
type OfficerStatus string

const (
	OfficerActive    OfficerStatus = "ACTIVE"
	OfficerInactive  OfficerStatus = "INACTIVE"
	OfficerSuspended OfficerStatus = "SUSPENDED"
)

// Valid reports whether the status is a known value.
func (s OfficerStatus) Valid() bool {
	switch s {
	case OfficerActive, OfficerInactive, OfficerSuspended:
		return true
	}
	return false
}

// Officer is a reviewer entitled to one vote per proposal. Created and
// managed by admins. Only ACTIVE officers count toward threshold evaluation,
// and the active count is read fresh on every evaluation.
type Officer struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Status       OfficerStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}
