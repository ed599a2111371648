package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

type proposalStore interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	MarkSubmitted(ctx context.Context, id string) error
	ListByOrganizer(ctx context.Context, organizerID string) ([]models.Proposal, error)
	List(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, int, error)
	StatusHistory(ctx context.Context, proposalID string) ([]models.StatusHistory, error)
}

type auditWriter interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// CreateProposalRequest is the organizer's funding request payload.
type CreateProposalRequest struct {
	EventTitle      string  `json:"event_title" validate:"required,min=5,max=200"`
	Description     string  `json:"description" validate:"required,min=10,max=2000"`
	EventType       string  `json:"event_type" validate:"required,oneof=CONFERENCE CONCERT FESTIVAL SPORTS EXHIBITION WORKSHOP OTHER"`
	BudgetRequested float64 `json:"budget_requested" validate:"required,gt=0"`
	ExpectedRevenue float64 `json:"expected_revenue" validate:"required,gt=0"`
	Timeline        string  `json:"timeline" validate:"required"`
	Draft           bool    `json:"draft"`
}

// ProposalService manages the organizer-facing proposal lifecycle up to the
// point where voting takes over. Status changes past SUBMITTED belong to the
// VotingService.
type ProposalService struct {
	proposals proposalStore
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

func NewProposalService(proposals proposalStore, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ProposalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalService{proposals: proposals, audit: audit, validator: validate, logger: logger}
}

// Create stores a new proposal. Drafts stay editable and invisible to
// officers; non-drafts enter the review pipeline as SUBMITTED immediately.
func (s *ProposalService) Create(ctx context.Context, organizerID string, req CreateProposalRequest) (*models.Proposal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposal payload")
	}

	status := models.StatusSubmitted
	if req.Draft {
		status = models.StatusDraft
	}

	proposal := &models.Proposal{
		OrganizerID:     organizerID,
		EventTitle:      req.EventTitle,
		Description:     req.Description,
		EventType:       req.EventType,
		BudgetRequested: req.BudgetRequested,
		ExpectedRevenue: req.ExpectedRevenue,
		Timeline:        req.Timeline,
		Status:          status,
		FundingStage:    models.StageNone,
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create proposal")
	}

	if status == models.StatusSubmitted {
		s.recordSubmission(ctx, proposal, organizerID)
	}

	s.logger.Info("proposal created",
		zap.String("proposal_id", proposal.ID),
		zap.String("organizer_id", organizerID),
		zap.String("status", string(status)))
	return proposal, nil
}

// Submit moves a DRAFT proposal into the review pipeline.
func (s *ProposalService) Submit(ctx context.Context, organizerID, proposalID string) (*models.Proposal, error) {
	proposal, err := s.getOwned(ctx, organizerID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.StatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only draft proposals can be submitted")
	}
	if err := s.proposals.MarkSubmitted(ctx, proposalID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit proposal")
	}
	proposal.Status = models.StatusSubmitted
	s.recordSubmission(ctx, proposal, organizerID)
	return proposal, nil
}

// Get fetches one proposal; organizers only see their own.
func (s *ProposalService) Get(ctx context.Context, proposalID, actorID string, role models.UserRole) (*models.Proposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	if role == models.RoleOrganizer && proposal.OrganizerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "proposal belongs to another organizer")
	}
	if role == models.RoleOfficer && proposal.Status == models.StatusDraft {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
	}
	return proposal, nil
}

// ListForOrganizer returns the caller's own proposals.
func (s *ProposalService) ListForOrganizer(ctx context.Context, organizerID string) ([]models.Proposal, error) {
	proposals, err := s.proposals.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list proposals")
	}
	return proposals, nil
}

// ListForReview returns the proposals visible to reviewers and admins,
// filtered and paginated. Drafts are excluded for officers.
func (s *ProposalService) ListForReview(ctx context.Context, filter models.ProposalFilter, role models.UserRole) ([]models.Proposal, *models.Pagination, error) {
	if role == models.RoleOfficer {
		filter.ExcludeDrafts = true
	}
	filter.Normalize()
	proposals, total, err := s.proposals.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list proposals")
	}
	return proposals, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// History returns the proposal's status history, oldest first.
func (s *ProposalService) History(ctx context.Context, proposalID string) ([]models.StatusHistory, error) {
	history, err := s.proposals.StatusHistory(ctx, proposalID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return history, nil
}

func (s *ProposalService) getOwned(ctx context.Context, organizerID, proposalID string) (*models.Proposal, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}
	if proposal.OrganizerID != organizerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "proposal belongs to another organizer")
	}
	return proposal, nil
}

func (s *ProposalService) recordSubmission(ctx context.Context, proposal *models.Proposal, organizerID string) {
	details, _ := json.Marshal(map[string]interface{}{
		"event_title":      proposal.EventTitle,
		"budget_requested": proposal.BudgetRequested,
	})
	entry := &models.AuditEntry{
		ProposalID:      &proposal.ID,
		Action:          models.AuditActionProposalSubmitted,
		PerformedBy:     organizerID,
		PerformedByRole: models.RoleOrganizer,
		Details:         details,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to record proposal submission audit",
			zap.String("proposal_id", proposal.ID), zap.Error(err))
	}
}
