package models

import "time"

// Audit action tags. Every state-affecting action writes exactly one audit
// row; the trail is the system of record for decision accountability.
const (
	AuditActionProposalSubmitted    = "PROPOSAL_SUBMITTED"
	AuditActionProposalViewed       = "PROPOSAL_VIEWED"
	AuditActionStatusChange         = "STATUS_CHANGE"
	AuditActionVoteSubmitted        = "VOTE_SUBMITTED"
	AuditActionProposalAccepted     = "PROPOSAL_ACCEPTED"
	AuditActionProposalAutoRejected = "PROPOSAL_AUTO_REJECTED"
	AuditActionAcceptanceWorkflow   = "ACCEPTANCE_WORKFLOW_TRIGGERED"
	AuditActionRejectionWorkflow    = "REJECTION_WORKFLOW_TRIGGERED"
	AuditActionAdminOverride        = "ADMIN_OVERRIDE"
	AuditActionInvestmentMade       = "INVESTMENT_MADE"
	AuditActionOfficerCreated       = "OFFICER_CREATED"
	AuditActionOfficerStatusChange  = "OFFICER_STATUS_CHANGED"
	AuditActionOfficerDeleted       = "OFFICER_DELETED"
	AuditActionConfigUpdated        = "CONFIG_UPDATED"
)

// SystemActor identifies audit rows written by the decision engine itself
// rather than a human actor.
const SystemActor = "SYSTEM"

// AuditEntry is one append-only audit trail record. ProposalID is nil for
// platform-wide actions such as officer management.
type AuditEntry struct {
	ID              string    `db:"id" json:"id"`
	ProposalID      *string   `db:"proposal_id" json:"proposal_id,omitempty"`
	Action          string    `db:"action" json:"action"`
	PerformedBy     string    `db:"performed_by" json:"performed_by"`
	PerformedByRole UserRole  `db:"performed_by_role" json:"performed_by_role"`
	Details         []byte    `db:"details" json:"details,omitempty"`
	Timestamp       time.Time `db:"timestamp" json:"timestamp"`
}
