package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/crawdwall/capital-review-api/internal/models"
)

// VoteRepository serves read paths over the vote ledger. All writes happen
// through DecisionTx so they stay inside the decision transaction.
type VoteRepository struct {
	db *sqlx.DB
}

// NewVoteRepository creates a new vote repository.
func NewVoteRepository(db *sqlx.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Tally returns the vote counts for a proposal.
func (r *VoteRepository) Tally(ctx context.Context, proposalID string) (models.VoteTally, error) {
	const query = `SELECT
        COUNT(*) AS total_votes,
        COUNT(*) FILTER (WHERE decision = 'ACCEPT') AS accept_votes,
        COUNT(*) FILTER (WHERE decision = 'REJECT') AS reject_votes
        FROM votes WHERE proposal_id = $1`
	var tally models.VoteTally
	if err := r.db.GetContext(ctx, &tally, query, proposalID); err != nil {
		return models.VoteTally{}, fmt.Errorf("tally votes: %w", err)
	}
	return tally, nil
}

// FindByProposalAndOfficer returns the officer's own vote, or nil when the
// officer has not voted yet.
func (r *VoteRepository) FindByProposalAndOfficer(ctx context.Context, proposalID, officerID string) (*models.Vote, error) {
	const query = `SELECT id, proposal_id, officer_id, decision, risk_assessment, revenue_comment, notes, locked, archived, created_at
        FROM votes WHERE proposal_id = $1 AND officer_id = $2`
	var vote models.Vote
	if err := r.db.GetContext(ctx, &vote, query, proposalID, officerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return &vote, nil
}

// ListByProposal returns all votes on a proposal with officer identity,
// oldest first.
func (r *VoteRepository) ListByProposal(ctx context.Context, proposalID string) ([]models.VoteWithOfficer, error) {
	const query = `SELECT v.id, v.proposal_id, v.officer_id, v.decision, v.risk_assessment, v.revenue_comment,
        v.notes, v.locked, v.archived, v.created_at, o.name AS officer_name, o.email AS officer_email
        FROM votes v
        JOIN officers o ON o.id = v.officer_id
        WHERE v.proposal_id = $1
        ORDER BY v.created_at ASC`
	var votes []models.VoteWithOfficer
	if err := r.db.SelectContext(ctx, &votes, query, proposalID); err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

// OfficerHistoryEntry joins proposal context onto an officer's vote.
type OfficerHistoryEntry struct {
	models.Vote
	EventTitle     string                `db:"event_title" json:"event_title"`
	ProposalStatus models.ProposalStatus `db:"proposal_status" json:"proposal_status"`
}

// ListByOfficer returns an officer's voting history, newest first.
func (r *VoteRepository) ListByOfficer(ctx context.Context, officerID string) ([]OfficerHistoryEntry, error) {
	const query = `SELECT v.id, v.proposal_id, v.officer_id, v.decision, v.risk_assessment, v.revenue_comment,
        v.notes, v.locked, v.archived, v.created_at, p.event_title, p.status AS proposal_status
        FROM votes v
        JOIN proposals p ON p.id = v.proposal_id
        WHERE v.officer_id = $1
        ORDER BY v.created_at DESC`
	var entries []OfficerHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, officerID); err != nil {
		return nil, fmt.Errorf("list officer votes: %w", err)
	}
	return entries, nil
}

// CountAll returns the total number of votes cast on the platform.
func (r *VoteRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM votes`); err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}
