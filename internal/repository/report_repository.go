package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crawdwall/capital-review-api/internal/models"
)

// ReportRepository persists decision report export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report row in QUEUED state.
func (r *ReportRepository) Create(ctx context.Context, report *models.DecisionReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = models.ReportStatusQueued
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO decision_reports (id, proposal_id, format, status, file_path, error_message, requested_by, created_at, finished_at)
        VALUES (:id, :proposal_id, :format, :status, :file_path, :error_message, :requested_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create decision report: %w", err)
	}
	return nil
}

// GetByID fetches a report row.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.DecisionReport, error) {
	const query = `SELECT id, proposal_id, format, status, file_path, error_message, requested_by, created_at, finished_at
        FROM decision_reports WHERE id = $1`
	var report models.DecisionReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateReportParams groups the mutable columns of a report row.
type UpdateReportParams struct {
	ID           string
	Status       models.ReportStatus
	FilePath     *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists worker progress.
func (r *ReportRepository) Update(ctx context.Context, params UpdateReportParams) error {
	const query = `UPDATE decision_reports
        SET status = $1, file_path = $2, error_message = $3, finished_at = $4
        WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, params.Status, params.FilePath, params.ErrorMessage, params.FinishedAt, params.ID); err != nil {
		return fmt.Errorf("update decision report: %w", err)
	}
	return nil
}
