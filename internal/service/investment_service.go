package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/internal/repository"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

type investmentStore interface {
	InTx(ctx context.Context, fn func(repository.InvestmentTx) error) error
	ListOpportunities(ctx context.Context) ([]models.InvestmentOpportunity, error)
	ListByInvestor(ctx context.Context, investorID string) ([]models.PortfolioEntry, error)
	Stats(ctx context.Context, investorID string) (models.InvestmentStats, error)
}

type actorAuditLister interface {
	ListByActor(ctx context.Context, actorID string, limit int) ([]models.AuditEntry, error)
}

type investmentMetrics interface {
	IncInvestment()
}

// InvestRequest is an investor's funding payload.
type InvestRequest struct {
	ProposalID string  `json:"proposal_id" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
}

// defaultProjectedReturn is quoted on new investments until a proposal
// carries its own projection.
const defaultProjectedReturn = "18%"

// InvestmentService is the post-approval funding surface. Approved proposals
// become opportunities; an investor may fund each at most once, and a fully
// funded proposal moves to the FUNDED stage.
type InvestmentService struct {
	investments investmentStore
	settings    settingsReader
	audit       actorAuditLister
	metrics     investmentMetrics
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewInvestmentService constructs the service.
func NewInvestmentService(
	investments investmentStore,
	settings settingsReader,
	audit actorAuditLister,
	metrics investmentMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *InvestmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvestmentService{
		investments: investments,
		settings:    settings,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Opportunities lists approved proposals still short of their budget.
func (s *InvestmentService) Opportunities(ctx context.Context) ([]models.InvestmentOpportunity, error) {
	opportunities, err := s.investments.ListOpportunities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load opportunities")
	}
	return opportunities, nil
}

// Portfolio returns the investor's placed investments.
func (s *InvestmentService) Portfolio(ctx context.Context, investorID string) ([]models.PortfolioEntry, error) {
	entries, err := s.investments.ListByInvestor(ctx, investorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load portfolio")
	}
	return entries, nil
}

// Stats summarises the investor's portfolio.
func (s *InvestmentService) Stats(ctx context.Context, investorID string) (models.InvestmentStats, error) {
	stats, err := s.investments.Stats(ctx, investorID)
	if err != nil {
		return models.InvestmentStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load investment stats")
	}
	return stats, nil
}

// Activity returns the investor's recent audit entries, newest first.
func (s *InvestmentService) Activity(ctx context.Context, investorID string, limit int) ([]models.AuditEntry, error) {
	entries, err := s.audit.ListByActor(ctx, investorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return entries, nil
}

// Invest places one investment on an approved proposal. The investment row,
// the funding-progress update and the audit entry commit atomically; the
// proposal flips to the FUNDED stage once the budget is fully raised.
func (s *InvestmentService) Invest(ctx context.Context, investorID string, req InvestRequest) (*models.Investment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid investment payload")
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load investment settings")
	}
	if req.Amount < settings.MinimumInvestment {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("minimum investment amount is %.2f", settings.MinimumInvestment))
	}

	investment := &models.Investment{
		InvestorID:      investorID,
		ProposalID:      req.ProposalID,
		Amount:          req.Amount,
		ProjectedReturn: defaultProjectedReturn,
		Status:          models.InvestmentActive,
	}

	err = s.investments.InTx(ctx, func(tx repository.InvestmentTx) error {
		proposal, err := tx.ProposalForUpdate(ctx, req.ProposalID)
		if err != nil {
			return err
		}
		if !proposal.OpenForInvestment() {
			return appErrors.Clone(appErrors.ErrProposalNotFundable,
				fmt.Sprintf("proposal %s is not open for investment", proposal.ID))
		}

		// Fast path; the unique constraint on (proposal_id, investor_id)
		// is the authoritative guard inside InsertInvestment.
		exists, err := tx.InvestmentExists(ctx, proposal.ID, investorID)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.ErrAlreadyInvested
		}

		if err := tx.InsertInvestment(ctx, investment); err != nil {
			return err
		}

		raised, err := tx.AddFunding(ctx, proposal.ID, req.Amount)
		if err != nil {
			return err
		}
		if raised >= proposal.BudgetRequested {
			if err := tx.SetFundingStage(ctx, proposal.ID, models.StageFunded); err != nil {
				return err
			}
		}

		return tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionInvestmentMade, investorID, models.RoleInvestor, map[string]interface{}{
			"investment_id":  investment.ID,
			"amount":         req.Amount,
			"funding_raised": raised,
			"fully_funded":   raised >= proposal.BudgetRequested,
		}))
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncInvestment()
	}
	s.logger.Info("investment placed",
		zap.String("proposal_id", req.ProposalID),
		zap.String("investor_id", investorID),
		zap.Float64("amount", req.Amount))
	return investment, nil
}
