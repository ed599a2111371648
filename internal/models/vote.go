package models

import "time"

// VoteDecision is an officer's verdict on a proposal.
type VoteDecision string

const (
	DecisionAccept VoteDecision = "ACCEPT"
	DecisionReject VoteDecision = "REJECT"
)

// Valid reports whether the decision is one of the two known values.
func (d VoteDecision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// Vote is one officer's vote on one proposal. Rows are immutable once
// inserted; locked/archived are the only columns ever updated, and only by
// the post-decision workflows.
type Vote struct {
	ID             string       `db:"id" json:"id"`
	ProposalID     string       `db:"proposal_id" json:"proposal_id"`
	OfficerID      string       `db:"officer_id" json:"officer_id"`
	Decision       VoteDecision `db:"decision" json:"decision"`
	RiskAssessment string       `db:"risk_assessment" json:"risk_assessment"`
	RevenueComment string       `db:"revenue_comment" json:"revenue_comment"`
	Notes          string       `db:"notes" json:"notes,omitempty"`
	Locked         bool         `db:"locked" json:"locked"`
	Archived       bool         `db:"archived" json:"archived"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

// VoteWithOfficer joins officer identity for review detail listings.
type VoteWithOfficer struct {
	Vote
	OfficerName  string `db:"officer_name" json:"officer_name"`
	OfficerEmail string `db:"officer_email" json:"officer_email"`
}

// VoteTally is the per-proposal vote count snapshot used by threshold
// evaluation. Always read inside the voting transaction.
type VoteTally struct {
	TotalVotes  int `db:"total_votes" json:"total_votes"`
	AcceptVotes int `db:"accept_votes" json:"accept_votes"`
	RejectVotes int `db:"reject_votes" json:"reject_votes"`
}

// VoteSummary is the externally visible tally with threshold context.
type VoteSummary struct {
	VoteTally
	Threshold    int  `json:"threshold"`
	ThresholdMet bool `json:"threshold_met"`
}
