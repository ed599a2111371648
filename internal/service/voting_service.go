package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/internal/repository"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

type decisionStore interface {
	InTx(ctx context.Context, fn func(repository.DecisionTx) error) error
}

type officerReader interface {
	GetByID(ctx context.Context, id string) (*models.Officer, error)
}

type voteReader interface {
	Tally(ctx context.Context, proposalID string) (models.VoteTally, error)
	FindByProposalAndOfficer(ctx context.Context, proposalID, officerID string) (*models.Vote, error)
	ListByProposal(ctx context.Context, proposalID string) ([]models.VoteWithOfficer, error)
	ListByOfficer(ctx context.Context, officerID string) ([]repository.OfficerHistoryEntry, error)
}

type auditTrail interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByProposal(ctx context.Context, proposalID string) ([]models.AuditEntry, error)
}

type settingsReader interface {
	Settings(ctx context.Context) (models.PlatformSettings, error)
}

type outcomeNotifier interface {
	NotifyOutcome(notification models.OutcomeNotification)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

type decisionMetrics interface {
	IncVote(decision string)
	IncDecision(outcome string)
}

// SubmitVoteRequest is an officer's vote payload.
type SubmitVoteRequest struct {
	ProposalID     string              `json:"proposal_id" validate:"required"`
	Decision       models.VoteDecision `json:"decision" validate:"required,oneof=ACCEPT REJECT"`
	RiskAssessment string              `json:"risk_assessment" validate:"required"`
	RevenueComment string              `json:"revenue_comment" validate:"required"`
	Notes          string              `json:"notes"`
}

// VoteResult summarises the outcome of a vote submission.
type VoteResult struct {
	VoteID         string                `json:"vote_id"`
	Decision       models.VoteDecision   `json:"decision"`
	ProposalStatus models.ProposalStatus `json:"proposal_status"`
	ThresholdMet   bool                  `json:"threshold_met"`
	TotalVotes     int                   `json:"total_votes"`
	AcceptVotes    int                   `json:"accept_votes"`
}

// OverrideRequest is the admin override payload.
type OverrideRequest struct {
	Decision models.ProposalStatus `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Reason   string                `json:"reason" validate:"required,min=10"`
}

// ProposalVotesView is the vote summary exposed to reviewers.
type ProposalVotesView struct {
	ProposalID    string                   `json:"proposal_id"`
	Status        models.ProposalStatus    `json:"status"`
	Summary       models.VoteSummary       `json:"summary"`
	HasVoted      bool                     `json:"has_voted"`
	OwnVote       *models.Vote             `json:"own_vote,omitempty"`
	DetailedVotes []models.VoteWithOfficer `json:"detailed_votes,omitempty"`
}

// VotingService is the decision engine: it records votes, evaluates the
// acceptance threshold, drives the proposal state machine and triggers the
// post-decision workflows. Every status mutation flows through here.
type VotingService struct {
	decisions decisionStore
	officers  officerReader
	proposals proposalReader
	votes     voteReader
	audit     auditTrail
	settings  settingsReader
	notifier  outcomeNotifier
	cache     summaryCache
	metrics   decisionMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

type proposalReader interface {
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
}

// NewVotingService constructs the decision engine.
func NewVotingService(
	decisions decisionStore,
	officers officerReader,
	proposals proposalReader,
	votes voteReader,
	audit auditTrail,
	settings settingsReader,
	notifier outcomeNotifier,
	cache summaryCache,
	metrics decisionMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *VotingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &VotingService{
		decisions: decisions,
		officers:  officers,
		proposals: proposals,
		votes:     votes,
		audit:     audit,
		settings:  settings,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// SubmitVote records one officer vote and, when the threshold is reached or
// becomes unreachable, transitions the proposal and runs the matching
// post-decision workflow. The entire sequence from proposal lock to status
// update commits or rolls back as one transaction; only the outcome
// notification happens after commit.
func (s *VotingService) SubmitVote(ctx context.Context, officerID string, req SubmitVoteRequest) (*VoteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vote payload")
	}

	officer, err := s.officers.GetByID(ctx, officerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if officer.Status != models.OfficerActive {
		return nil, appErrors.ErrOfficerInactive
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voting settings")
	}

	var (
		result       VoteResult
		notification *models.OutcomeNotification
		outcome      Outcome
	)

	err = s.decisions.InTx(ctx, func(tx repository.DecisionTx) error {
		proposal, err := tx.ProposalForUpdate(ctx, req.ProposalID)
		if err != nil {
			return err
		}
		if !proposal.Status.Votable() {
			return appErrors.Clone(appErrors.ErrProposalNotVotable,
				fmt.Sprintf("cannot vote on proposal with status %s", proposal.Status))
		}

		// Fast path; the unique constraint on (proposal_id, officer_id) is
		// the authoritative guard inside InsertVote.
		exists, err := tx.VoteExists(ctx, proposal.ID, officerID)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.ErrAlreadyVoted
		}

		// First vote moves the proposal under review before the vote row
		// lands, so the ledger never holds a vote on a SUBMITTED proposal.
		if proposal.Status == models.StatusSubmitted {
			if err := s.transitionTx(ctx, tx, proposal, models.StatusUnderReview, models.TriggerFirstOfficerVote, officerID, models.RoleOfficer); err != nil {
				return err
			}
		}

		vote := &models.Vote{
			ProposalID:     proposal.ID,
			OfficerID:      officerID,
			Decision:       req.Decision,
			RiskAssessment: req.RiskAssessment,
			RevenueComment: req.RevenueComment,
			Notes:          req.Notes,
		}
		if err := tx.InsertVote(ctx, vote); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionVoteSubmitted, officerID, models.RoleOfficer, map[string]interface{}{
			"decision": req.Decision,
			"vote_id":  vote.ID,
		})); err != nil {
			return err
		}

		tally, err := tx.Tally(ctx, proposal.ID)
		if err != nil {
			return err
		}
		activeOfficers, err := tx.CountActiveOfficers(ctx)
		if err != nil {
			return err
		}

		eval := EvaluateThreshold(ThresholdInput{
			AcceptVotes:    tally.AcceptVotes,
			TotalVotes:     tally.TotalVotes,
			ActiveOfficers: activeOfficers,
			Threshold:      settings.AcceptanceThreshold,
		})

		result = VoteResult{
			VoteID:         vote.ID,
			Decision:       vote.Decision,
			ProposalStatus: proposal.Status,
			ThresholdMet:   eval.Outcome == OutcomeApproved,
			TotalVotes:     tally.TotalVotes,
			AcceptVotes:    tally.AcceptVotes,
		}

		outcome = eval.Outcome
		switch eval.Outcome {
		case OutcomeApproved:
			callbackDate, err := s.approveTx(ctx, tx, proposal, eval, settings)
			if err != nil {
				return err
			}
			result.ProposalStatus = models.StatusApproved
			notification = s.buildNotification(proposal, models.StatusApproved, tally, settings, &callbackDate, nil, false)
		case OutcomeRejected:
			reapplyDate, err := s.autoRejectTx(ctx, tx, proposal, eval, settings)
			if err != nil {
				return err
			}
			result.ProposalStatus = models.StatusRejected
			notification = s.buildNotification(proposal, models.StatusRejected, tally, settings, nil, &reapplyDate, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, req.ProposalID)
	if s.metrics != nil {
		// Counters fire only once the transaction has committed; a rolled
		// back decision never shows up in the metrics.
		s.metrics.IncVote(string(req.Decision))
		if outcome == OutcomeApproved || outcome == OutcomeRejected {
			s.metrics.IncDecision(string(outcome))
		}
	}
	if notification != nil {
		s.dispatch(*notification)
	}
	return &result, nil
}

// AdminOverride forces a proposal to a terminal status, bypassing the
// threshold but not the audit trail or the post-decision workflows. The
// reason is validated before any state is touched.
func (s *VotingService) AdminOverride(ctx context.Context, adminID, proposalID string, req OverrideRequest) (*models.Proposal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			"override requires a decision of APPROVED or REJECTED and a reason of at least 10 characters")
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voting settings")
	}

	var (
		updated      *models.Proposal
		notification *models.OutcomeNotification
	)

	err = s.decisions.InTx(ctx, func(tx repository.DecisionTx) error {
		proposal, err := tx.ProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrProposalNotVotable, "proposal already decided")
		}

		if err := tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionAdminOverride, adminID, models.RoleAdmin, map[string]interface{}{
			"old_status": proposal.Status,
			"new_status": req.Decision,
			"reason":     req.Reason,
		})); err != nil {
			return err
		}
		if err := tx.UpdateProposalStatus(ctx, proposal.ID, req.Decision); err != nil {
			return err
		}
		if err := tx.AppendStatusHistory(ctx, proposal.ID, req.Decision, models.TriggerAdminOverride); err != nil {
			return err
		}

		tally, err := tx.Tally(ctx, proposal.ID)
		if err != nil {
			return err
		}

		// Same trigger code path as the organic decision.
		switch req.Decision {
		case models.StatusApproved:
			callbackDate, err := s.acceptanceWorkflowTx(ctx, tx, proposal, settings)
			if err != nil {
				return err
			}
			notification = s.buildNotification(proposal, models.StatusApproved, tally, settings, &callbackDate, nil, true)
		case models.StatusRejected:
			reapplyDate, err := s.rejectionWorkflowTx(ctx, tx, proposal, settings)
			if err != nil {
				return err
			}
			notification = s.buildNotification(proposal, models.StatusRejected, tally, settings, nil, &reapplyDate, true)
		}

		proposal.Status = req.Decision
		updated = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, proposalID)
	if s.metrics != nil {
		s.metrics.IncDecision(string(req.Decision))
	}
	if notification != nil {
		s.dispatch(*notification)
	}
	return updated, nil
}

// approveTx records the organic approval transition and runs the acceptance
// workflow.
func (s *VotingService) approveTx(ctx context.Context, tx repository.DecisionTx, proposal *models.Proposal, eval ThresholdResult, settings models.PlatformSettings) (time.Time, error) {
	if err := tx.UpdateProposalStatus(ctx, proposal.ID, models.StatusApproved); err != nil {
		return time.Time{}, err
	}
	if err := tx.AppendStatusHistory(ctx, proposal.ID, models.StatusApproved, models.TriggerThresholdMet); err != nil {
		return time.Time{}, err
	}
	if err := tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionProposalAccepted, models.SystemActor, models.RoleSystem, map[string]interface{}{
		"accept_votes": eval.AcceptVotes,
		"total_votes":  eval.TotalVotes,
		"threshold":    eval.Threshold,
	})); err != nil {
		return time.Time{}, err
	}
	return s.acceptanceWorkflowTx(ctx, tx, proposal, settings)
}

// autoRejectTx records the mathematically-unreachable rejection and runs the
// rejection workflow. The full evaluation figures go into the audit trail;
// they are the only durable justification for an auto-rejection.
func (s *VotingService) autoRejectTx(ctx context.Context, tx repository.DecisionTx, proposal *models.Proposal, eval ThresholdResult, settings models.PlatformSettings) (time.Time, error) {
	if err := tx.UpdateProposalStatus(ctx, proposal.ID, models.StatusRejected); err != nil {
		return time.Time{}, err
	}
	if err := tx.AppendStatusHistory(ctx, proposal.ID, models.StatusRejected, models.TriggerAutoRejection); err != nil {
		return time.Time{}, err
	}
	if err := tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionProposalAutoRejected, models.SystemActor, models.RoleSystem, map[string]interface{}{
		"accept_votes":         eval.AcceptVotes,
		"total_votes":          eval.TotalVotes,
		"active_officers":      eval.ActiveOfficers,
		"remaining_officers":   eval.RemainingOfficers,
		"max_possible_accepts": eval.MaxPossibleAccepts,
		"threshold":            eval.Threshold,
		"reason":               "MATHEMATICALLY_IMPOSSIBLE_TO_REACH_THRESHOLD",
	})); err != nil {
		return time.Time{}, err
	}
	return s.rejectionWorkflowTx(ctx, tx, proposal, settings)
}

// acceptanceWorkflowTx schedules the callback meeting, unlocks the funding
// agreement stage and locks the ledger. Shared by the organic and override
// paths.
func (s *VotingService) acceptanceWorkflowTx(ctx context.Context, tx repository.DecisionTx, proposal *models.Proposal, settings models.PlatformSettings) (time.Time, error) {
	callbackDate := time.Now().UTC().AddDate(0, 0, settings.CallbackOffsetDays)
	if err := tx.ScheduleCallback(ctx, &models.CallbackSchedule{
		ProposalID:    proposal.ID,
		OrganizerID:   proposal.OrganizerID,
		ScheduledDate: callbackDate,
	}); err != nil {
		return time.Time{}, err
	}
	if err := tx.SetAcceptanceOutcome(ctx, proposal.ID, callbackDate); err != nil {
		return time.Time{}, err
	}
	if err := tx.LockVotes(ctx, proposal.ID); err != nil {
		return time.Time{}, err
	}
	if err := tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionAcceptanceWorkflow, models.SystemActor, models.RoleSystem, map[string]interface{}{
		"callback_scheduled": callbackDate,
		"funding_stage":      models.StageAgreementPending,
		"voting_locked":      true,
	})); err != nil {
		return time.Time{}, err
	}
	return callbackDate, nil
}

// rejectionWorkflowTx archives the ledger and locks the proposal with a
// reapplication window. Shared by the auto and override paths.
func (s *VotingService) rejectionWorkflowTx(ctx context.Context, tx repository.DecisionTx, proposal *models.Proposal, settings models.PlatformSettings) (time.Time, error) {
	reapplyDate := time.Now().UTC().AddDate(0, 0, settings.ReapplyOffsetDays)
	if err := tx.ArchiveVotes(ctx, proposal.ID); err != nil {
		return time.Time{}, err
	}
	if err := tx.LockForReapplication(ctx, proposal.ID, reapplyDate); err != nil {
		return time.Time{}, err
	}
	if err := tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionRejectionWorkflow, models.SystemActor, models.RoleSystem, map[string]interface{}{
		"reviews_archived":      true,
		"proposal_locked":       true,
		"reapplication_allowed": true,
		"reapplication_date":    reapplyDate,
	})); err != nil {
		return time.Time{}, err
	}
	return reapplyDate, nil
}

// transitionTx applies a validated organic state-machine move.
func (s *VotingService) transitionTx(ctx context.Context, tx repository.DecisionTx, proposal *models.Proposal, target models.ProposalStatus, trigger, actorID string, role models.UserRole) error {
	if !proposal.Status.CanTransitionTo(target) {
		return appErrors.Clone(appErrors.ErrProposalNotVotable,
			fmt.Sprintf("cannot transition proposal from %s to %s", proposal.Status, target))
	}
	if err := tx.UpdateProposalStatus(ctx, proposal.ID, target); err != nil {
		return err
	}
	if err := tx.AppendStatusHistory(ctx, proposal.ID, target, trigger); err != nil {
		return err
	}
	if err := tx.AppendAudit(ctx, auditEntry(proposal.ID, models.AuditActionStatusChange, actorID, role, map[string]interface{}{
		"old_status": proposal.Status,
		"new_status": target,
		"trigger":    trigger,
	})); err != nil {
		return err
	}
	proposal.Status = target
	return nil
}

// ProposalVotes returns the vote summary for a proposal. Detailed votes are
// revealed to admins, and to officers only after they have voted themselves.
func (s *VotingService) ProposalVotes(ctx context.Context, proposalID, actorID string, role models.UserRole) (*ProposalVotesView, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voting settings")
	}

	summary, err := s.voteSummary(ctx, proposalID, settings.AcceptanceThreshold)
	if err != nil {
		return nil, err
	}

	view := &ProposalVotesView{
		ProposalID: proposalID,
		Status:     proposal.Status,
		Summary:    summary,
	}

	if role == models.RoleOfficer {
		ownVote, err := s.votes.FindByProposalAndOfficer(ctx, proposalID, actorID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load own vote")
		}
		view.HasVoted = ownVote != nil
		view.OwnVote = ownVote
	}

	if role == models.RoleAdmin || view.HasVoted {
		detailed, err := s.votes.ListByProposal(ctx, proposalID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load votes")
		}
		view.DetailedVotes = detailed
	}
	return view, nil
}

// OfficerHistory returns an officer's past votes with proposal context.
func (s *VotingService) OfficerHistory(ctx context.Context, officerID string) ([]repository.OfficerHistoryEntry, error) {
	entries, err := s.votes.ListByOfficer(ctx, officerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load voting history")
	}
	return entries, nil
}

// AuditTrail returns the decision trail for a proposal.
func (s *VotingService) AuditTrail(ctx context.Context, proposalID string) ([]models.AuditEntry, error) {
	entries, err := s.audit.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return entries, nil
}

// TrackProposalView records that an officer opened a proposal. Best effort:
// view tracking never fails the request.
func (s *VotingService) TrackProposalView(ctx context.Context, proposalID, officerID string) {
	if err := s.audit.Append(ctx, auditEntry(proposalID, models.AuditActionProposalViewed, officerID, models.RoleOfficer, nil)); err != nil {
		s.logger.Warn("failed to track proposal view",
			zap.String("proposal_id", proposalID),
			zap.String("officer_id", officerID),
			zap.Error(err))
	}
}

func (s *VotingService) voteSummary(ctx context.Context, proposalID string, threshold int) (models.VoteSummary, error) {
	cacheKey := summaryCacheKey(proposalID)
	var summary models.VoteSummary
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &summary); err == nil {
			return summary, nil
		}
	}

	tally, err := s.votes.Tally(ctx, proposalID)
	if err != nil {
		return models.VoteSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tally votes")
	}
	summary = models.VoteSummary{
		VoteTally:    tally,
		Threshold:    threshold,
		ThresholdMet: tally.AcceptVotes >= threshold,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache vote summary", zap.String("proposal_id", proposalID), zap.Error(err))
		}
	}
	return summary, nil
}

func (s *VotingService) invalidateSummary(ctx context.Context, proposalID string) {
	if s.cache != nil {
		s.cache.Delete(ctx, summaryCacheKey(proposalID))
	}
}

func (s *VotingService) buildNotification(proposal *models.Proposal, status models.ProposalStatus, tally models.VoteTally, settings models.PlatformSettings, callbackDate, reapplyDate *time.Time, overridden bool) *models.OutcomeNotification {
	return &models.OutcomeNotification{
		ProposalID:   proposal.ID,
		EventTitle:   proposal.EventTitle,
		OrganizerID:  proposal.OrganizerID,
		Status:       status,
		AcceptVotes:  tally.AcceptVotes,
		TotalVotes:   tally.TotalVotes,
		Threshold:    settings.AcceptanceThreshold,
		CallbackDate: callbackDate,
		ReapplyDate:  reapplyDate,
		Overridden:   overridden,
	}
}

// dispatch hands the notification to the queue. Fire and forget: a dead
// notifier is logged, never surfaced.
func (s *VotingService) dispatch(notification models.OutcomeNotification) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyOutcome(notification)
}

func summaryCacheKey(proposalID string) string {
	return "votes:summary:" + proposalID
}

func auditEntry(proposalID, action, actorID string, role models.UserRole, details map[string]interface{}) *models.AuditEntry {
	entry := &models.AuditEntry{
		Action:          action,
		PerformedBy:     actorID,
		PerformedByRole: role,
	}
	if proposalID != "" {
		entry.ProposalID = &proposalID
	}
	if details != nil {
		payload, err := json.Marshal(details)
		if err == nil {
			entry.Details = payload
		}
	}
	return entry
}
