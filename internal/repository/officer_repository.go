package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crawdwall/capital-review-api/internal/models"
)

// OfficerRepository handles officer account persistence.
type OfficerRepository struct {
	db *sqlx.DB
}

// NewOfficerRepository creates a new officer repository.
func NewOfficerRepository(db *sqlx.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

// Create inserts a new officer.
func (r *OfficerRepository) Create(ctx context.Context, officer *models.Officer) error {
	if officer.ID == "" {
		officer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	officer.CreatedAt = now
	officer.UpdatedAt = now
	if officer.Status == "" {
		officer.Status = models.OfficerActive
	}
	const query = `INSERT INTO officers (id, name, email, password_hash, status, created_at, updated_at)
        VALUES (:id, :name, :email, :password_hash, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, officer); err != nil {
		return fmt.Errorf("create officer: %w", err)
	}
	return nil
}

// GetByID fetches an officer.
func (r *OfficerRepository) GetByID(ctx context.Context, id string) (*models.Officer, error) {
	const query = `SELECT id, name, email, password_hash, status, created_at, updated_at
        FROM officers WHERE id = $1`
	var officer models.Officer
	if err := r.db.GetContext(ctx, &officer, query, id); err != nil {
		return nil, err
	}
	return &officer, nil
}

// FindByEmail fetches an officer by email for login.
func (r *OfficerRepository) FindByEmail(ctx context.Context, email string) (*models.Officer, error) {
	const query = `SELECT id, name, email, password_hash, status, created_at, updated_at
        FROM officers WHERE email = $1 LIMIT 1`
	var officer models.Officer
	if err := r.db.GetContext(ctx, &officer, query, email); err != nil {
		return nil, err
	}
	return &officer, nil
}

// List returns all officers, newest first.
func (r *OfficerRepository) List(ctx context.Context) ([]models.Officer, error) {
	const query = `SELECT id, name, email, password_hash, status, created_at, updated_at
        FROM officers ORDER BY created_at DESC`
	var officers []models.Officer
	if err := r.db.SelectContext(ctx, &officers, query); err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	return officers, nil
}

// UpdateStatus sets the officer's status.
func (r *OfficerRepository) UpdateStatus(ctx context.Context, id string, status models.OfficerStatus) error {
	const query = `UPDATE officers SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update officer status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an officer account. Historical votes keep the officer id;
// the ledger is append-only and never cascades.
func (r *OfficerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM officers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete officer: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountActive returns the number of ACTIVE officers.
func (r *OfficerRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM officers WHERE status = 'ACTIVE'`); err != nil {
		return 0, fmt.Errorf("count active officers: %w", err)
	}
	return count, nil
}
