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

// pqUniqueViolation is the PostgreSQL error code raised when the
// (proposal_id, officer_id) unique constraint rejects a duplicate vote.
const pqUniqueViolation = "23505"

// DecisionTx groups every persistence step of the vote-to-decision sequence.
// All methods run on the same database transaction; the proposal row is
// locked with SELECT ... FOR UPDATE before any write so that two concurrent
// voters serialize on the row and exactly one observes the threshold being
// crossed.
type DecisionTx interface {
	ProposalForUpdate(ctx context.Context, id string) (*models.Proposal, error)
	UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error
	AppendStatusHistory(ctx context.Context, proposalID string, status models.ProposalStatus, trigger string) error
	VoteExists(ctx context.Context, proposalID, officerID string) (bool, error)
	InsertVote(ctx context.Context, vote *models.Vote) error
	Tally(ctx context.Context, proposalID string) (models.VoteTally, error)
	CountActiveOfficers(ctx context.Context) (int, error)
	LockVotes(ctx context.Context, proposalID string) error
	ArchiveVotes(ctx context.Context, proposalID string) error
	SetAcceptanceOutcome(ctx context.Context, proposalID string, callbackDate time.Time) error
	LockForReapplication(ctx context.Context, proposalID string, reapplyAt time.Time) error
	ScheduleCallback(ctx context.Context, callback *models.CallbackSchedule) error
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
}

// DecisionRepository owns the transaction boundary of the decision engine.
type DecisionRepository struct {
	db *sqlx.DB
}

// NewDecisionRepository constructs the repository.
func NewDecisionRepository(db *sqlx.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// InTx runs fn inside a single transaction. Any error rolls the whole
// sequence back so a vote is never recorded without its status effects.
func (r *DecisionRepository) InTx(ctx context.Context, fn func(DecisionTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin decision tx: %w", err)
	}
	if err := fn(&decisionTx{tx: tx}); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit decision tx: %w", err)
	}
	return nil
}

type decisionTx struct {
	tx *sqlx.Tx
}

func (t *decisionTx) ProposalForUpdate(ctx context.Context, id string) (*models.Proposal, error) {
	const query = `SELECT id, organizer_id, event_title, description, event_type, budget_requested, expected_revenue,
        timeline, status, funding_stage, funding_raised, locked, locked_at, reapplication_allowed, reapplication_date,
        callback_scheduled, created_at, updated_at
        FROM proposals WHERE id = $1 FOR UPDATE`
	var proposal models.Proposal
	if err := t.tx.GetContext(ctx, &proposal, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, fmt.Errorf("lock proposal %s: %w", id, err)
	}
	return &proposal, nil
}

func (t *decisionTx) UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	const query = `UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := t.tx.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("update proposal status: %w", err)
	}
	return nil
}

func (t *decisionTx) AppendStatusHistory(ctx context.Context, proposalID string, status models.ProposalStatus, trigger string) error {
	const query = `INSERT INTO status_history (id, proposal_id, status, trigger_tag, changed_at)
        VALUES ($1, $2, $3, $4, NOW())`
	if _, err := t.tx.ExecContext(ctx, query, uuid.NewString(), proposalID, status, trigger); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func (t *decisionTx) VoteExists(ctx context.Context, proposalID, officerID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM votes WHERE proposal_id = $1 AND officer_id = $2)`
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, query, proposalID, officerID); err != nil {
		return false, fmt.Errorf("check existing vote: %w", err)
	}
	return exists, nil
}

// InsertVote inserts the vote row. The unique constraint on
// (proposal_id, officer_id) is the authoritative duplicate guard; the
// VoteExists fast path only exists to return a clean error without aborting
// the transaction in the common case.
func (t *decisionTx) InsertVote(ctx context.Context, vote *models.Vote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO votes (id, proposal_id, officer_id, decision, risk_assessment, revenue_comment, notes, locked, archived, created_at)
        VALUES (:id, :proposal_id, :officer_id, :decision, :risk_assessment, :revenue_comment, :notes, :locked, :archived, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, vote); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return appErrors.ErrAlreadyVoted
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (t *decisionTx) Tally(ctx context.Context, proposalID string) (models.VoteTally, error) {
	const query = `SELECT
        COUNT(*) AS total_votes,
        COUNT(*) FILTER (WHERE decision = 'ACCEPT') AS accept_votes,
        COUNT(*) FILTER (WHERE decision = 'REJECT') AS reject_votes
        FROM votes WHERE proposal_id = $1`
	var tally models.VoteTally
	if err := t.tx.GetContext(ctx, &tally, query, proposalID); err != nil {
		return models.VoteTally{}, fmt.Errorf("tally votes: %w", err)
	}
	return tally, nil
}

// CountActiveOfficers reads the live officer population. Deliberately not
// cached: officers can be deactivated mid-review and the auto-reject formula
// is defined over the count at evaluation time.
func (t *decisionTx) CountActiveOfficers(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM officers WHERE status = 'ACTIVE'`
	var count int
	if err := t.tx.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count active officers: %w", err)
	}
	return count, nil
}

func (t *decisionTx) LockVotes(ctx context.Context, proposalID string) error {
	const query = `UPDATE votes SET locked = true WHERE proposal_id = $1`
	if _, err := t.tx.ExecContext(ctx, query, proposalID); err != nil {
		return fmt.Errorf("lock votes: %w", err)
	}
	return nil
}

func (t *decisionTx) ArchiveVotes(ctx context.Context, proposalID string) error {
	const query = `UPDATE votes SET archived = true WHERE proposal_id = $1`
	if _, err := t.tx.ExecContext(ctx, query, proposalID); err != nil {
		return fmt.Errorf("archive votes: %w", err)
	}
	return nil
}

func (t *decisionTx) SetAcceptanceOutcome(ctx context.Context, proposalID string, callbackDate time.Time) error {
	const query = `UPDATE proposals
        SET funding_stage = $1, callback_scheduled = $2, updated_at = NOW()
        WHERE id = $3`
	if _, err := t.tx.ExecContext(ctx, query, models.StageAgreementPending, callbackDate, proposalID); err != nil {
		return fmt.Errorf("set acceptance outcome: %w", err)
	}
	return nil
}

func (t *decisionTx) LockForReapplication(ctx context.Context, proposalID string, reapplyAt time.Time) error {
	const query = `UPDATE proposals
        SET locked = true, locked_at = NOW(), reapplication_allowed = true, reapplication_date = $1, updated_at = NOW()
        WHERE id = $2`
	if _, err := t.tx.ExecContext(ctx, query, reapplyAt, proposalID); err != nil {
		return fmt.Errorf("lock proposal for reapplication: %w", err)
	}
	return nil
}

func (t *decisionTx) ScheduleCallback(ctx context.Context, callback *models.CallbackSchedule) error {
	if callback.ID == "" {
		callback.ID = uuid.NewString()
	}
	if callback.Status == "" {
		callback.Status = models.CallbackScheduled
	}
	if callback.CreatedAt.IsZero() {
		callback.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO callback_schedules (id, proposal_id, organizer_id, scheduled_date, status, created_at)
        VALUES (:id, :proposal_id, :organizer_id, :scheduled_date, :status, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, callback); err != nil {
		return fmt.Errorf("schedule callback: %w", err)
	}
	return nil
}

func (t *decisionTx) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
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
