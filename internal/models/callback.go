package models

import "time"

// CallbackStatus tracks a scheduled follow-up meeting.
type CallbackStatus string

const (
	CallbackScheduled CallbackStatus = "SCHEDULED"
	CallbackCompleted CallbackStatus = "COMPLETED"
	CallbackCancelled CallbackStatus = "CANCELLED"
)

// CallbackSchedule is the follow-up meeting created when a proposal is
// approved. Managing the meeting itself is out of scope; the decision engine
// only records the date.
type CallbackSchedule struct {
	ID            string         `db:"id" json:"id"`
	ProposalID    string         `db:"proposal_id" json:"proposal_id"`
	OrganizerID   string         `db:"organizer_id" json:"organizer_id"`
	ScheduledDate time.Time      `db:"scheduled_date" json:"scheduled_date"`
	Status        CallbackStatus `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
