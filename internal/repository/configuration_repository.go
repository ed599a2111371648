package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/crawdwall/capital-review-api/internal/models"
)

// ConfigurationRepository persists runtime platform configuration as
// key-value rows.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository creates a new configuration repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get returns the value for a key, or ok=false when unset.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM platform_config WHERE key = $1`
	var value string
	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}

// GetAll returns every configuration entry.
func (r *ConfigurationRepository) GetAll(ctx context.Context) ([]models.ConfigEntry, error) {
	const query = `SELECT key, value, updated_by, updated_at FROM platform_config ORDER BY key`
	var entries []models.ConfigEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	return entries, nil
}

// Upsert writes a configuration value.
func (r *ConfigurationRepository) Upsert(ctx context.Context, key, value, updatedBy string) error {
	const query = `INSERT INTO platform_config (key, value, updated_by, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, value, updatedBy); err != nil {
		return fmt.Errorf("upsert config %s: %w", key, err)
	}
	return nil
}
