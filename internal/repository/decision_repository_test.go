package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawdwall/capital-review-api/internal/models"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

func newDecisionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestDecisionRepositoryInTxCommits(t *testing.T) {
	db, mock, cleanup := newDecisionRepoMock(t)
	defer cleanup()

	repo := NewDecisionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE proposals SET status").
		WithArgs(string(models.StatusUnderReview), "prop-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx DecisionTx) error {
		return tx.UpdateProposalStatus(context.Background(), "prop-1", models.StatusUnderReview)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepositoryInTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newDecisionRepoMock(t)
	defer cleanup()

	repo := NewDecisionRepository(db)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx DecisionTx) error {
		return appErrors.ErrProposalNotVotable
	})
	assert.ErrorIs(t, err, appErrors.ErrProposalNotVotable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepositoryInsertVoteDuplicateMapped(t *testing.T) {
	db, mock, cleanup := newDecisionRepoMock(t)
	defer cleanup()

	repo := NewDecisionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO votes").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "votes_one_per_officer"})
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx DecisionTx) error {
		return tx.InsertVote(context.Background(), &models.Vote{
			ProposalID:     "prop-1",
			OfficerID:      "off-1",
			Decision:       models.DecisionAccept,
			RiskAssessment: "LOW",
			RevenueComment: "fine",
		})
	})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyVoted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepositoryProposalForUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newDecisionRepoMock(t)
	defer cleanup()

	repo := NewDecisionRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM proposals WHERE id = \\$1 FOR UPDATE").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx DecisionTx) error {
		_, err := tx.ProposalForUpdate(context.Background(), "missing")
		return err
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
