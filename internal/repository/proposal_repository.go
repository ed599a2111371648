package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crawdwall/capital-review-api/internal/models"
)

const proposalColumns = `id, organizer_id, event_title, description, event_type, budget_requested, expected_revenue,
        timeline, status, funding_stage, funding_raised, locked, locked_at, reapplication_allowed, reapplication_date,
        callback_scheduled, created_at, updated_at`

// ProposalRepository handles proposal persistence outside the decision
// transaction.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository creates a new proposal repository.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// Create inserts a proposal together with its initial status history row.
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ID == "" {
		proposal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	proposal.CreatedAt = now
	proposal.UpdatedAt = now
	if proposal.FundingStage == "" {
		proposal.FundingStage = models.StageNone
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create proposal: %w", err)
	}
	const insert = `INSERT INTO proposals (id, organizer_id, event_title, description, event_type, budget_requested,
        expected_revenue, timeline, status, funding_stage, locked, reapplication_allowed, created_at, updated_at)
        VALUES (:id, :organizer_id, :event_title, :description, :event_type, :budget_requested,
        :expected_revenue, :timeline, :status, :funding_stage, :locked, :reapplication_allowed, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, proposal); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert proposal: %w", err)
	}
	if proposal.Status != models.StatusDraft {
		const history = `INSERT INTO status_history (id, proposal_id, status, trigger_tag, changed_at)
            VALUES ($1, $2, $3, $4, NOW())`
		if _, err := tx.ExecContext(ctx, history, uuid.NewString(), proposal.ID, proposal.Status, models.TriggerInitialSubmission); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert initial status history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create proposal: %w", err)
	}
	return nil
}

// GetByID fetches a proposal.
func (r *ProposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = $1`, proposalColumns)
	var proposal models.Proposal
	if err := r.db.GetContext(ctx, &proposal, query, id); err != nil {
		return nil, err
	}
	return &proposal, nil
}

// MarkSubmitted flips a DRAFT proposal to SUBMITTED and appends the status
// history row in one transaction.
func (r *ProposalRepository) MarkSubmitted(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submit proposal: %w", err)
	}
	const update = `UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, update, models.StatusSubmitted, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("submit proposal: %w", err)
	}
	const history = `INSERT INTO status_history (id, proposal_id, status, trigger_tag, changed_at)
        VALUES ($1, $2, $3, $4, NOW())`
	if _, err := tx.ExecContext(ctx, history, uuid.NewString(), id, models.StatusSubmitted, models.TriggerInitialSubmission); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert status history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submit proposal: %w", err)
	}
	return nil
}

// ListByOrganizer returns an organizer's proposals, newest first.
func (r *ProposalRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]models.Proposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE organizer_id = $1 ORDER BY created_at DESC`, proposalColumns)
	var proposals []models.Proposal
	if err := r.db.SelectContext(ctx, &proposals, query, organizerID); err != nil {
		return nil, fmt.Errorf("list proposals by organizer: %w", err)
	}
	return proposals, nil
}

// List returns proposals matching the filter with a total count.
func (r *ProposalRepository) List(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OrganizerID != "" {
		args = append(args, filter.OrganizerID)
		conditions = append(conditions, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	if filter.ExcludeDrafts {
		args = append(args, models.StatusDraft)
		conditions = append(conditions, fmt.Sprintf("status <> $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		proposalColumns, where, pageSize, (page-1)*pageSize)
	var proposals []models.Proposal
	if err := r.db.SelectContext(ctx, &proposals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list proposals: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM proposals WHERE %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count proposals: %w", err)
	}
	return proposals, total, nil
}

// StatusHistory returns the ordered transition trail for a proposal.
func (r *ProposalRepository) StatusHistory(ctx context.Context, proposalID string) ([]models.StatusHistory, error) {
	const query = `SELECT id, proposal_id, status, trigger_tag, changed_at
        FROM status_history WHERE proposal_id = $1 ORDER BY changed_at ASC`
	var history []models.StatusHistory
	if err := r.db.SelectContext(ctx, &history, query, proposalID); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return history, nil
}

// CountByStatus aggregates proposals per status for platform stats.
func (r *ProposalRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM proposals GROUP BY status ORDER BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count proposals by status: %w", err)
	}
	return counts, nil
}
