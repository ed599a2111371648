package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
)

type statusCounter interface {
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

type voteCounter interface {
	CountAll(ctx context.Context) (int, error)
}

type activeOfficerCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type recentAuditLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// PlatformStats is the admin oversight snapshot.
type PlatformStats struct {
	ProposalsByStatus []models.StatusCount `json:"proposals_by_status"`
	TotalProposals    int                  `json:"total_proposals"`
	TotalVotes        int                  `json:"total_votes"`
	ActiveOfficers    int                  `json:"active_officers"`
	Approved          int                  `json:"approved"`
	Rejected          int                  `json:"rejected"`
}

// StatsService aggregates counters across repositories for the admin
// dashboard. Reads are uncached; the numbers are cheap aggregates and admins
// expect them live.
type StatsService struct {
	proposals statusCounter
	votes     voteCounter
	officers  activeOfficerCounter
	audit     recentAuditLister
	logger    *zap.Logger
}

func NewStatsService(proposals statusCounter, votes voteCounter, officers activeOfficerCounter, audit recentAuditLister, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{proposals: proposals, votes: votes, officers: officers, audit: audit, logger: logger}
}

// Platform returns the current platform-wide counters.
func (s *StatsService) Platform(ctx context.Context) (*PlatformStats, error) {
	byStatus, err := s.proposals.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count proposals: %w", err)
	}

	stats := &PlatformStats{ProposalsByStatus: byStatus}
	for _, count := range byStatus {
		stats.TotalProposals += count.Count
		switch count.Status {
		case models.StatusApproved:
			stats.Approved = count.Count
		case models.StatusRejected:
			stats.Rejected = count.Count
		}
	}

	if stats.TotalVotes, err = s.votes.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	if stats.ActiveOfficers, err = s.officers.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("count active officers: %w", err)
	}
	return stats, nil
}

const recentActivityMax = 100

// RecentActivity returns the newest audit entries across all proposals.
func (s *StatsService) RecentActivity(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit < 1 || limit > recentActivityMax {
		limit = 20
	}
	entries, err := s.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit entries: %w", err)
	}
	return entries, nil
}
