package models

import "time"

// InvestmentStatus tracks an investment over its lifetime.
type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "ACTIVE"
	InvestmentCompleted InvestmentStatus = "COMPLETED"
)

// Investment is one investor's stake in an approved proposal. An investor
// holds at most one investment per proposal.
type Investment struct {
	ID              string           `db:"id" json:"id"`
	InvestorID      string           `db:"investor_id" json:"investor_id"`
	ProposalID      string           `db:"proposal_id" json:"proposal_id"`
	Amount          float64          `db:"amount" json:"amount"`
	ProjectedReturn string           `db:"projected_return" json:"projected_return"`
	Status          InvestmentStatus `db:"status" json:"status"`
	Progress        int              `db:"progress" json:"progress"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// InvestmentOpportunity is an approved proposal presented to investors with
// its funding progress and organizer contact.
type InvestmentOpportunity struct {
	ProposalID      string       `db:"proposal_id" json:"proposal_id"`
	EventTitle      string       `db:"event_title" json:"event_title"`
	EventType       string       `db:"event_type" json:"event_type"`
	Description     string       `db:"description" json:"description"`
	BudgetRequested float64      `db:"budget_requested" json:"funding_target"`
	FundingRaised   float64      `db:"funding_raised" json:"funding_raised"`
	FundingStage    FundingStage `db:"funding_stage" json:"funding_stage"`
	OrganizerName   string       `db:"organizer_name" json:"organizer_name"`
	OrganizerEmail  string       `db:"organizer_email" json:"organizer_email"`
}

// PortfolioEntry is one investment joined with its proposal context.
type PortfolioEntry struct {
	Investment
	EventTitle     string         `db:"event_title" json:"event_title"`
	ProposalStatus ProposalStatus `db:"proposal_status" json:"proposal_status"`
	FundingStage   FundingStage   `db:"funding_stage" json:"funding_stage"`
	OrganizerName  string         `db:"organizer_name" json:"organizer_name"`
}

// InvestmentStats summarises an investor's portfolio.
type InvestmentStats struct {
	TotalInvestments     int     `db:"total_investments" json:"total_investments"`
	TotalInvested        float64 `db:"total_invested" json:"total_invested"`
	ActiveInvestments    int     `db:"active_investments" json:"active_investments"`
	CompletedInvestments int     `db:"completed_investments" json:"completed_investments"`
	AverageProgress      float64 `db:"average_progress" json:"average_progress"`
}
