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

func newProposalRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestProposalRepositoryCreateSubmitted(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO proposals").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO status_history").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), string(models.StatusSubmitted), models.TriggerInitialSubmission).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	proposal := &models.Proposal{
		OrganizerID:     "org-1",
		EventTitle:      "Lagos Tech Summit",
		Description:     "Three day technology conference.",
		EventType:       "CONFERENCE",
		BudgetRequested: 50000,
		ExpectedRevenue: 80000,
		Status:          models.StatusSubmitted,
	}
	require.NoError(t, repo.Create(context.Background(), proposal))
	assert.NotEmpty(t, proposal.ID)
	assert.Equal(t, models.StageNone, proposal.FundingStage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryCreateDraftSkipsHistory(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO proposals").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	proposal := &models.Proposal{
		OrganizerID: "org-1",
		EventTitle:  "Draft Event",
		Status:      models.StatusDraft,
	}
	require.NoError(t, repo.Create(context.Background(), proposal))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryMarkSubmitted(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE proposals SET status").
		WithArgs(string(models.StatusSubmitted), "prop-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO status_history").
		WithArgs(sqlmock.AnyArg(), "prop-1", string(models.StatusSubmitted), models.TriggerInitialSubmission).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkSubmitted(context.Background(), "prop-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "organizer_id", "event_title", "description", "event_type", "budget_requested", "expected_revenue",
		"timeline", "status", "funding_stage", "funding_raised", "locked", "locked_at", "reapplication_allowed", "reapplication_date",
		"callback_scheduled", "created_at", "updated_at",
	}).AddRow("prop-1", "org-1", "Lagos Tech Summit", "desc", "CONFERENCE", 50000.0, 80000.0,
		"Q4 2026", "UNDER_REVIEW", "NONE", 0.0, false, nil, true, nil, nil, now, now)
	mock.ExpectQuery("FROM proposals WHERE id").
		WithArgs("prop-1").
		WillReturnRows(rows)

	proposal, err := repo.GetByID(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, proposal.Status)
	assert.Equal(t, 50000.0, proposal.BudgetRequested)
}

func TestProposalRepositoryListExcludesDrafts(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "organizer_id", "event_title", "description", "event_type", "budget_requested", "expected_revenue",
		"timeline", "status", "funding_stage", "funding_raised", "locked", "locked_at", "reapplication_allowed", "reapplication_date",
		"callback_scheduled", "created_at", "updated_at",
	}).AddRow("prop-1", "org-1", "Lagos Tech Summit", "desc", "CONFERENCE", 50000.0, 80000.0,
		"Q4 2026", "SUBMITTED", "NONE", 0.0, false, nil, true, nil, nil, now, now)
	mock.ExpectQuery("status <> \\$1").
		WithArgs(string(models.StatusDraft)).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM proposals").
		WithArgs(string(models.StatusDraft)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	proposals, total, err := repo.List(context.Background(), models.ProposalFilter{ExcludeDrafts: true, Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepositoryStatusHistory(t *testing.T) {
	db, mock, cleanup := newProposalRepoMock(t)
	defer cleanup()

	repo := NewProposalRepository(db)
	rows := sqlmock.NewRows([]string{"id", "proposal_id", "status", "trigger_tag", "changed_at"}).
		AddRow("h1", "prop-1", "SUBMITTED", models.TriggerInitialSubmission, time.Now()).
		AddRow("h2", "prop-1", "UNDER_REVIEW", models.TriggerFirstOfficerVote, time.Now())
	mock.ExpectQuery("FROM status_history WHERE proposal_id").
		WithArgs("prop-1").
		WillReturnRows(rows)

	history, err := repo.StatusHistory(context.Background(), "prop-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusUnderReview, history[1].Status)
	assert.Equal(t, models.TriggerFirstOfficerVote, history[1].Trigger)
}
