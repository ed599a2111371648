package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crawdwall/capital-review-api/internal/models"
)

// AuditRepository is the append-only audit sink. No update or delete
// operation exists on proposal_audit.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes one audit entry outside any caller transaction. Writes that
// must be atomic with a decision use DecisionTx.AppendAudit instead.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO proposal_audit (id, proposal_id, action, performed_by, performed_by_role, details, timestamp)
        VALUES (:id, :proposal_id, :action, :performed_by, :performed_by_role, :details, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByProposal returns the full audit trail for a proposal, oldest first.
func (r *AuditRepository) ListByProposal(ctx context.Context, proposalID string) ([]models.AuditEntry, error) {
	const query = `SELECT id, proposal_id, action, performed_by, performed_by_role, details, timestamp
        FROM proposal_audit WHERE proposal_id = $1 ORDER BY timestamp ASC`
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, proposalID); err != nil {
		return nil, fmt.Errorf("list audit trail: %w", err)
	}
	return entries, nil
}

// ListByActor returns the newest entries performed by one account. Serves
// the investor activity feed among others.
func (r *AuditRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, proposal_id, action, performed_by, performed_by_role, details, timestamp
        FROM proposal_audit WHERE performed_by = $1 ORDER BY timestamp DESC LIMIT %d`, limit)
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, actorID); err != nil {
		return nil, fmt.Errorf("list audit entries by actor: %w", err)
	}
	return entries, nil
}

// ListRecent returns the newest platform-wide audit entries.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, proposal_id, action, performed_by, performed_by_role, details, timestamp
        FROM proposal_audit ORDER BY timestamp DESC LIMIT %d`, limit)
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list recent audit entries: %w", err)
	}
	return entries, nil
}
