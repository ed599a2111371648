package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawdwall/capital-review-api/internal/models"
)

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func auditRows(actor string, actions ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "proposal_id", "action", "performed_by", "performed_by_role", "details", "timestamp",
	})
	for i, action := range actions {
		rows.AddRow("audit-"+action, nil, action, actor, "INVESTOR", nil, time.Now().Add(-time.Duration(i)*time.Minute))
	}
	return rows
}

func TestAuditRepositoryListByActor(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectQuery("WHERE performed_by = \\$1 ORDER BY timestamp DESC LIMIT 10").
		WithArgs("user-9").
		WillReturnRows(auditRows("user-9", models.AuditActionInvestmentMade))

	entries, err := repo.ListByActor(context.Background(), "user-9", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionInvestmentMade, entries[0].Action)
	assert.Equal(t, "user-9", entries[0].PerformedBy)
}

func TestAuditRepositoryListByActorClampsLimit(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectQuery("ORDER BY timestamp DESC LIMIT 50").
		WithArgs("user-9").
		WillReturnRows(auditRows("user-9"))

	_, err := repo.ListByActor(context.Background(), "user-9", -3)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
