package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/crawdwall/capital-review-api/internal/models"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

// InvestmentTx groups the persistence steps of placing one investment. All
// methods run on the same transaction; the proposal row is locked first so
// that concurrent investors serialize on the funding progress.
type InvestmentTx interface {
	ProposalForUpdate(ctx context.Context, id string) (*models.Proposal, error)
	InvestmentExists(ctx context.Context, proposalID, investorID string) (bool, error)
	InsertInvestment(ctx context.Context, investment *models.Investment) error
	AddFunding(ctx context.Context, proposalID string, amount float64) (float64, error)
	SetFundingStage(ctx context.Context, proposalID string, stage models.FundingStage) error
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
}

// InvestmentRepository owns the investments table and the transaction
// boundary of the invest operation.
type InvestmentRepository struct {
	db *sqlx.DB
}

// NewInvestmentRepository constructs the repository.
func NewInvestmentRepository(db *sqlx.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// InTx runs fn inside a single transaction so an investment row is never
// recorded without its funding-progress update.
func (r *InvestmentRepository) InTx(ctx context.Context, fn func(InvestmentTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin investment tx: %w", err)
	}
	if err := fn(&investmentTx{tx: tx}); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit investment tx: %w", err)
	}
	return nil
}

// ListOpportunities returns approved proposals that still accept funding,
// newest decisions first.
func (r *InvestmentRepository) ListOpportunities(ctx context.Context) ([]models.InvestmentOpportunity, error) {
	const query = `SELECT p.id AS proposal_id, p.event_title, p.event_type, p.description,
        p.budget_requested, p.funding_raised, p.funding_stage,
        u.name AS organizer_name, u.email AS organizer_email
        FROM proposals p
        JOIN users u ON p.organizer_id = u.id
        WHERE p.status = 'APPROVED' AND p.funding_raised < p.budget_requested
        ORDER BY p.updated_at DESC`
	var opportunities []models.InvestmentOpportunity
	if err := r.db.SelectContext(ctx, &opportunities, query); err != nil {
		return nil, fmt.Errorf("list investment opportunities: %w", err)
	}
	return opportunities, nil
}

// ListByInvestor returns the investor's portfolio, newest first.
func (r *InvestmentRepository) ListByInvestor(ctx context.Context, investorID string) ([]models.PortfolioEntry, error) {
	const query = `SELECT i.id, i.investor_id, i.proposal_id, i.amount, i.projected_return,
        i.status, i.progress, i.created_at, i.updated_at,
        p.event_title, p.status AS proposal_status, p.funding_stage,
        u.name AS organizer_name
        FROM investments i
        JOIN proposals p ON i.proposal_id = p.id
        JOIN users u ON p.organizer_id = u.id
        WHERE i.investor_id = $1
        ORDER BY i.created_at DESC`
	var entries []models.PortfolioEntry
	if err := r.db.SelectContext(ctx, &entries, query, investorID); err != nil {
		return nil, fmt.Errorf("list portfolio: %w", err)
	}
	return entries, nil
}

// Stats aggregates the investor's portfolio in one query.
func (r *InvestmentRepository) Stats(ctx context.Context, investorID string) (models.InvestmentStats, error) {
	const query = `SELECT
        COUNT(*) AS total_investments,
        COALESCE(SUM(amount), 0) AS total_invested,
        COUNT(*) FILTER (WHERE status = 'ACTIVE') AS active_investments,
        COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed_investments,
        COALESCE(AVG(progress), 0) AS average_progress
        FROM investments WHERE investor_id = $1`
	var stats models.InvestmentStats
	if err := r.db.GetContext(ctx, &stats, query, investorID); err != nil {
		return models.InvestmentStats{}, fmt.Errorf("investment stats: %w", err)
	}
	return stats, nil
}

type investmentTx struct {
	tx *sqlx.Tx
}

func (t *investmentTx) ProposalForUpdate(ctx context.Context, id string) (*models.Proposal, error) {
	const query = `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1 FOR UPDATE`
	var proposal models.Proposal
	if err := t.tx.GetContext(ctx, &proposal, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, fmt.Errorf("lock proposal %s: %w", id, err)
	}
	return &proposal, nil
}

func (t *investmentTx) InvestmentExists(ctx context.Context, proposalID, investorID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM investments WHERE proposal_id = $1 AND investor_id = $2)`
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, query, proposalID, investorID); err != nil {
		return false, fmt.Errorf("check existing investment: %w", err)
	}
	return exists, nil
}

// InsertInvestment inserts the investment row. The unique constraint on
// (proposal_id, investor_id) is the authoritative duplicate guard.
func (t *investmentTx) InsertInvestment(ctx context.Context, investment *models.Investment) error {
	if investment.ID == "" {
		investment.ID = uuid.NewString()
	}
	if investment.Status == "" {
		investment.Status = models.InvestmentActive
	}
	now := time.Now().UTC()
	if investment.CreatedAt.IsZero() {
		investment.CreatedAt = now
	}
	investment.UpdatedAt = now
	const query = `INSERT INTO investments (id, investor_id, proposal_id, amount, projected_return, status, progress, created_at, updated_at)
        VALUES (:id, :investor_id, :proposal_id, :amount, :projected_return, :status, :progress, :created_at, :updated_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, investment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return appErrors.ErrAlreadyInvested
		}
		return fmt.Errorf("insert investment: %w", err)
	}
	return nil
}

// AddFunding bumps the proposal's raised total and returns the new amount.
func (t *investmentTx) AddFunding(ctx context.Context, proposalID string, amount float64) (float64, error) {
	const query = `UPDATE proposals
        SET funding_raised = funding_raised + $1, updated_at = NOW()
        WHERE id = $2
        RETURNING funding_raised`
	var raised float64
	if err := t.tx.GetContext(ctx, &raised, query, amount, proposalID); err != nil {
		return 0, fmt.Errorf("add funding: %w", err)
	}
	return raised, nil
}

func (t *investmentTx) SetFundingStage(ctx context.Context, proposalID string, stage models.FundingStage) error {
	const query = `UPDATE proposals SET funding_stage = $1, updated_at = NOW() WHERE id = $2`
	if _, err := t.tx.ExecContext(ctx, query, stage, proposalID); err != nil {
		return fmt.Errorf("set funding stage: %w", err)
	}
	return nil
}

func (t *investmentTx) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO proposal_audit (id, proposal_id, action, performed_by, performed_by_role, details, timestamp)
        VALUES (:id, :proposal_id, :action, :performed_by, :performed_by_role, :details, :timestamp)`
	if _, err := t.tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
