package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

type mockProposalRepo struct {
	proposals  map[string]models.Proposal
	submitted  []string
	lastFilter models.ProposalFilter
	listTotal  int
}

func (m *mockProposalRepo) Create(ctx context.Context, proposal *models.Proposal) error {
	if m.proposals == nil {
		m.proposals = make(map[string]models.Proposal)
	}
	if proposal.ID == "" {
		proposal.ID = "generated"
	}
	m.proposals[proposal.ID] = *proposal
	return nil
}

func (m *mockProposalRepo) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	if p, ok := m.proposals[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProposalRepo) MarkSubmitted(ctx context.Context, id string) error {
	m.submitted = append(m.submitted, id)
	if p, ok := m.proposals[id]; ok {
		p.Status = models.StatusSubmitted
		m.proposals[id] = p
	}
	return nil
}

func (m *mockProposalRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]models.Proposal, error) {
	var list []models.Proposal
	for _, p := range m.proposals {
		if p.OrganizerID == organizerID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockProposalRepo) List(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, int, error) {
	m.lastFilter = filter
	var list []models.Proposal
	for _, p := range m.proposals {
		if filter.ExcludeDrafts && p.Status == models.StatusDraft {
			continue
		}
		list = append(list, p)
	}
	return list, m.listTotal, nil
}

func (m *mockProposalRepo) StatusHistory(ctx context.Context, proposalID string) ([]models.StatusHistory, error) {
	return nil, nil
}

func validProposalReq() CreateProposalRequest {
	return CreateProposalRequest{
		EventTitle:      "Lagos Tech Conference",
		Description:     "A three day technology conference for startups.",
		EventType:       "CONFERENCE",
		BudgetRequested: 50000,
		ExpectedRevenue: 80000,
		Timeline:        "Q3 2026",
	}
}

func TestProposalCreateSubmitsImmediately(t *testing.T) {
	repo := &mockProposalRepo{}
	audit := &fakeAudit{}
	svc := NewProposalService(repo, audit, validator.New(), zap.NewNop())

	proposal, err := svc.Create(context.Background(), "org-1", validProposalReq())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, proposal.Status)
	assert.Equal(t, models.StageNone, proposal.FundingStage)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionProposalSubmitted, audit.entries[0].Action)
}

func TestProposalCreateDraftSkipsAudit(t *testing.T) {
	repo := &mockProposalRepo{}
	audit := &fakeAudit{}
	svc := NewProposalService(repo, audit, validator.New(), zap.NewNop())

	req := validProposalReq()
	req.Draft = true
	proposal, err := svc.Create(context.Background(), "org-1", req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, proposal.Status)
	assert.Empty(t, audit.entries)
}

func TestProposalCreateValidation(t *testing.T) {
	svc := NewProposalService(&mockProposalRepo{}, &fakeAudit{}, validator.New(), zap.NewNop())

	cases := []struct {
		name   string
		mutate func(*CreateProposalRequest)
	}{
		{"title too short", func(r *CreateProposalRequest) { r.EventTitle = "abcd" }},
		{"title too long", func(r *CreateProposalRequest) { r.EventTitle = strings.Repeat("x", 201) }},
		{"description too short", func(r *CreateProposalRequest) { r.Description = "too short" }},
		{"description too long", func(r *CreateProposalRequest) { r.Description = strings.Repeat("y", 2001) }},
		{"unknown event type", func(r *CreateProposalRequest) { r.EventType = "PARADE" }},
		{"zero budget", func(r *CreateProposalRequest) { r.BudgetRequested = 0 }},
		{"negative revenue", func(r *CreateProposalRequest) { r.ExpectedRevenue = -1 }},
		{"missing timeline", func(r *CreateProposalRequest) { r.Timeline = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validProposalReq()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), "org-1", req)
			require.Error(t, err)
			var appErr *appErrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
}

func TestProposalSubmitOnlyDrafts(t *testing.T) {
	repo := &mockProposalRepo{proposals: map[string]models.Proposal{
		"p1": {ID: "p1", OrganizerID: "org-1", Status: models.StatusDraft},
		"p2": {ID: "p2", OrganizerID: "org-1", Status: models.StatusSubmitted},
	}}
	svc := NewProposalService(repo, &fakeAudit{}, validator.New(), zap.NewNop())

	proposal, err := svc.Submit(context.Background(), "org-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, proposal.Status)

	_, err = svc.Submit(context.Background(), "org-1", "p2")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestProposalSubmitOwnershipEnforced(t *testing.T) {
	repo := &mockProposalRepo{proposals: map[string]models.Proposal{
		"p1": {ID: "p1", OrganizerID: "org-1", Status: models.StatusDraft},
	}}
	svc := NewProposalService(repo, &fakeAudit{}, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "org-2", "p1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestProposalGetHidesDraftsFromOfficers(t *testing.T) {
	repo := &mockProposalRepo{proposals: map[string]models.Proposal{
		"p1": {ID: "p1", OrganizerID: "org-1", Status: models.StatusDraft},
	}}
	svc := NewProposalService(repo, &fakeAudit{}, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "p1", "off-1", models.RoleOfficer)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	proposal, err := svc.Get(context.Background(), "p1", "org-1", models.RoleOrganizer)
	require.NoError(t, err)
	assert.Equal(t, "p1", proposal.ID)
}

func TestProposalListForReviewExcludesDraftsForOfficers(t *testing.T) {
	repo := &mockProposalRepo{proposals: map[string]models.Proposal{
		"p1": {ID: "p1", Status: models.StatusDraft},
		"p2": {ID: "p2", Status: models.StatusSubmitted},
	}}
	svc := NewProposalService(repo, &fakeAudit{}, validator.New(), zap.NewNop())

	list, pagination, err := svc.ListForReview(context.Background(), models.ProposalFilter{}, models.RoleOfficer)
	require.NoError(t, err)
	assert.True(t, repo.lastFilter.ExcludeDrafts)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}
