package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawdwall/capital-review-api/internal/models"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

func newInvestmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestInvestmentRepositoryListOpportunities(t *testing.T) {
	db, mock, cleanup := newInvestmentRepoMock(t)
	defer cleanup()

	repo := NewInvestmentRepository(db)
	rows := sqlmock.NewRows([]string{
		"proposal_id", "event_title", "event_type", "description",
		"budget_requested", "funding_raised", "funding_stage",
		"organizer_name", "organizer_email",
	}).AddRow("prop-1", "Lagos Tech Summit", "CONFERENCE", "desc",
		50000.0, 12000.0, "AGREEMENT_PENDING", "Ada", "ada@example.com")
	mock.ExpectQuery("JOIN users u ON p.organizer_id = u.id").
		WillReturnRows(rows)

	opportunities, err := repo.ListOpportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, opportunities, 1)
	assert.Equal(t, "Lagos Tech Summit", opportunities[0].EventTitle)
	assert.Equal(t, 12000.0, opportunities[0].FundingRaised)
	assert.Equal(t, models.StageAgreementPending, opportunities[0].FundingStage)
}

func TestInvestmentRepositoryListByInvestor(t *testing.T) {
	db, mock, cleanup := newInvestmentRepoMock(t)
	defer cleanup()

	repo := NewInvestmentRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "investor_id", "proposal_id", "amount", "projected_return",
		"status", "progress", "created_at", "updated_at",
		"event_title", "proposal_status", "funding_stage", "organizer_name",
	}).AddRow("inv-1", "user-9", "prop-1", 2000.0, "18%",
		"ACTIVE", 0, now, now,
		"Lagos Tech Summit", "APPROVED", "AGREEMENT_PENDING", "Ada")
	mock.ExpectQuery("JOIN proposals p ON i.proposal_id = p.id").
		WithArgs("user-9").
		WillReturnRows(rows)

	entries, err := repo.ListByInvestor(context.Background(), "user-9")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2000.0, entries[0].Amount)
	assert.Equal(t, models.StatusApproved, entries[0].ProposalStatus)
	assert.Equal(t, models.InvestmentActive, entries[0].Status)
}

func TestInvestmentRepositoryStats(t *testing.T) {
	db, mock, cleanup := newInvestmentRepoMock(t)
	defer cleanup()

	repo := NewInvestmentRepository(db)
	rows := sqlmock.NewRows([]string{
		"total_investments", "total_invested", "active_investments",
		"completed_investments", "average_progress",
	}).AddRow(3, 9000.0, 2, 1, 40.0)
	mock.ExpectQuery("FROM investments WHERE investor_id").
		WithArgs("user-9").
		WillReturnRows(rows)

	stats, err := repo.Stats(context.Background(), "user-9")
	require.NoError(t, err)
	assert.Equal(t, models.InvestmentStats{
		TotalInvestments:     3,
		TotalInvested:        9000.0,
		ActiveInvestments:    2,
		CompletedInvestments: 1,
		AverageProgress:      40.0,
	}, stats)
}

func TestInvestmentRepositoryInvestCommits(t *testing.T) {
	db, mock, cleanup := newInvestmentRepoMock(t)
	defer cleanup()

	repo := NewInvestmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO investments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("RETURNING funding_raised").
		WithArgs(2000.0, "prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"funding_raised"}).AddRow(2000.0))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx InvestmentTx) error {
		investment := &models.Investment{
			InvestorID: "user-9",
			ProposalID: "prop-1",
			Amount:     2000,
		}
		if err := tx.InsertInvestment(context.Background(), investment); err != nil {
			return err
		}
		raised, err := tx.AddFunding(context.Background(), "prop-1", 2000)
		if err != nil {
			return err
		}
		assert.Equal(t, 2000.0, raised)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvestmentRepositoryInsertDuplicateMapped(t *testing.T) {
	db, mock, cleanup := newInvestmentRepoMock(t)
	defer cleanup()

	repo := NewInvestmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO investments").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "investments_one_per_investor"})
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx InvestmentTx) error {
		return tx.InsertInvestment(context.Background(), &models.Investment{
			InvestorID: "user-9",
			ProposalID: "prop-1",
			Amount:     2000,
		})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyInvested)
	require.NoError(t, mock.ExpectationsWereMet())
}
