package models

import "time"

// OutcomeNotification is the payload handed to the notification queue when a
// proposal reaches a terminal state. It is assembled inside the decision
// transaction but only enqueued after commit.
type OutcomeNotification struct {
	ProposalID   string         `json:"proposal_id"`
	EventTitle   string         `json:"event_title"`
	OrganizerID  string         `json:"organizer_id"`
	Status       ProposalStatus `json:"status"`
	AcceptVotes  int            `json:"accept_votes"`
	TotalVotes   int            `json:"total_votes"`
	Threshold    int            `json:"threshold"`
	CallbackDate *time.Time     `json:"callback_date,omitempty"`
	ReapplyDate  *time.Time     `json:"reapply_date,omitempty"`
	Overridden   bool           `json:"overridden"`
}
