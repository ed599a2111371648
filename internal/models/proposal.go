package models

import "time"

// ProposalStatus enumerates the proposal state machine.
type ProposalStatus string

const (
	StatusDraft       ProposalStatus = "DRAFT"
	StatusSubmitted   ProposalStatus = "SUBMITTED"
	StatusUnderReview ProposalStatus = "UNDER_REVIEW"
	StatusApproved    ProposalStatus = "APPROVED"
	StatusRejected    ProposalStatus = "REJECTED"
)

// transitions is the exhaustive organic transition table. The admin override
// path is intentionally absent: it may move any non-terminal status straight
// to a terminal one and is validated separately.
var transitions = map[ProposalStatus][]ProposalStatus{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {},
	StatusRejected:    {},
}

// Valid reports whether the value is a known status.
func (s ProposalStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether the status permits no further transitions.
func (s ProposalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Votable reports whether officer votes are accepted in this status.
func (s ProposalStatus) Votable() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

// CanTransitionTo reports whether the organic state machine allows moving to
// the target status.
func (s ProposalStatus) CanTransitionTo(target ProposalStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// FundingStage marks post-approval progress of a proposal.
type FundingStage string

const (
	StageNone             FundingStage = "NONE"
	StageAgreementPending FundingStage = "AGREEMENT_PENDING"
	StageFunded           FundingStage = "FUNDED"
)

// Proposal is a funding request submitted by an organizer.
type Proposal struct {
	ID                   string         `db:"id" json:"id"`
	OrganizerID          string         `db:"organizer_id" json:"organizer_id"`
	EventTitle           string         `db:"event_title" json:"event_title"`
	Description          string         `db:"description" json:"description"`
	EventType            string         `db:"event_type" json:"event_type"`
	BudgetRequested      float64        `db:"budget_requested" json:"budget_requested"`
	ExpectedRevenue      float64        `db:"expected_revenue" json:"expected_revenue"`
	Timeline             string         `db:"timeline" json:"timeline"`
	Status               ProposalStatus `db:"status" json:"status"`
	FundingStage         FundingStage   `db:"funding_stage" json:"funding_stage"`
	FundingRaised        float64        `db:"funding_raised" json:"funding_raised"`
	Locked               bool           `db:"locked" json:"locked"`
	LockedAt             *time.Time     `db:"locked_at" json:"locked_at,omitempty"`
	ReapplicationAllowed bool           `db:"reapplication_allowed" json:"reapplication_allowed"`
	ReapplicationDate    *time.Time     `db:"reapplication_date" json:"reapplication_date,omitempty"`
	CallbackScheduled    *time.Time     `db:"callback_scheduled" json:"callback_scheduled,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// OpenForInvestment reports whether the proposal still accepts investor
// funding. Only approved proposals short of their budget qualify.
func (p *Proposal) OpenForInvestment() bool {
	return p.Status == StatusApproved && p.FundingRaised < p.BudgetRequested
}

// ProposalFilter captures admin listing criteria.
type ProposalFilter struct {
	Status        *ProposalStatus
	OrganizerID   string
	ExcludeDrafts bool
	Page          int
	PageSize      int
}

// Normalize clamps pagination to sane bounds.
func (f *ProposalFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// StatusHistory is one append-only row per status transition.
type StatusHistory struct {
	ID         string         `db:"id" json:"id"`
	ProposalID string         `db:"proposal_id" json:"proposal_id"`
	Status     ProposalStatus `db:"status" json:"status"`
	Trigger    string         `db:"trigger_tag" json:"trigger,omitempty"`
	ChangedAt  time.Time      `db:"changed_at" json:"changed_at"`
}

// StatusHistory trigger annotations.
const (
	TriggerInitialSubmission = "INITIAL_SUBMISSION"
	TriggerFirstOfficerVote  = "FIRST_OFFICER_VOTE"
	TriggerThresholdMet      = "THRESHOLD_MET"
	TriggerAutoRejection     = "AUTO_REJECTION"
	TriggerAdminOverride     = "ADMIN_OVERRIDE"
)

// StatusCount aggregates proposals per status for platform stats.
type StatusCount struct {
	Status ProposalStatus `db:"status" json:"status"`
	Count  int            `db:"count" json:"count"`
}
