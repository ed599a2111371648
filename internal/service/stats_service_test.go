package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
)

type fakeStatusCounter struct {
	counts []models.StatusCount
}

func (f *fakeStatusCounter) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return f.counts, nil
}

type fakeVoteCounter struct {
	total int
}

func (f *fakeVoteCounter) CountAll(ctx context.Context) (int, error) {
	return f.total, nil
}

func TestPlatformStatsAggregation(t *testing.T) {
	proposals := &fakeStatusCounter{counts: []models.StatusCount{
		{Status: models.StatusDraft, Count: 2},
		{Status: models.StatusUnderReview, Count: 3},
		{Status: models.StatusApproved, Count: 4},
		{Status: models.StatusRejected, Count: 1},
	}}
	officers := &mockOfficerRepo{officers: map[string]models.Officer{
		"o1": {ID: "o1", Status: models.OfficerActive},
		"o2": {ID: "o2", Status: models.OfficerActive},
		"o3": {ID: "o3", Status: models.OfficerSuspended},
	}}
	svc := NewStatsService(proposals, &fakeVoteCounter{total: 27}, officers, &fakeAudit{}, zap.NewNop())

	stats, err := svc.Platform(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalProposals)
	assert.Equal(t, 4, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 27, stats.TotalVotes)
	assert.Equal(t, 2, stats.ActiveOfficers)
	assert.Len(t, stats.ProposalsByStatus, 4)
}

func TestRecentActivityClampsLimit(t *testing.T) {
	audit := &fakeAudit{entries: make([]models.AuditEntry, 50)}
	svc := NewStatsService(&fakeStatusCounter{}, &fakeVoteCounter{}, &mockOfficerRepo{}, audit, zap.NewNop())

	entries, err := svc.RecentActivity(context.Background(), -5)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestPlatformStatsEmptyPlatform(t *testing.T) {
	svc := NewStatsService(&fakeStatusCounter{}, &fakeVoteCounter{}, &mockOfficerRepo{}, &fakeAudit{}, zap.NewNop())

	stats, err := svc.Platform(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalProposals)
	assert.Zero(t, stats.ActiveOfficers)
	assert.Empty(t, stats.ProposalsByStatus)
}
