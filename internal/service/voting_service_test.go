package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/internal/repository"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

// fakeDecisionStore executes the transactional closure against an in-memory
// state, mirroring the persistence steps the real transaction performs.
type fakeDecisionStore struct {
	proposal       *models.Proposal
	votes          []models.Vote
	history        []models.StatusHistory
	audit          []models.AuditEntry
	callbacks      []models.CallbackSchedule
	activeOfficers int
	votesLocked    bool
	votesArchived  bool
	reapplyLocked  bool
	fundingStage   models.FundingStage
	callbackDate   *time.Time
	reapplyDate    *time.Time
	commits        int
	rollbacks      int
	commitErr      error
}

func (f *fakeDecisionStore) InTx(ctx context.Context, fn func(repository.DecisionTx) error) error {
	snapshot := *f
	snapshotProposal := *f.proposal
	err := fn(&fakeDecisionTx{store: f})
	if err == nil {
		err = f.commitErr
	}
	if err != nil {
		// Roll back by restoring the snapshot.
		*f = snapshot
		f.proposal = &snapshotProposal
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeDecisionTx struct {
	store *fakeDecisionStore
}

func (t *fakeDecisionTx) ProposalForUpdate(ctx context.Context, id string) (*models.Proposal, error) {
	if t.store.proposal == nil || t.store.proposal.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
	}
	copied := *t.store.proposal
	return &copied, nil
}

func (t *fakeDecisionTx) UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	t.store.proposal.Status = status
	return nil
}

func (t *fakeDecisionTx) AppendStatusHistory(ctx context.Context, proposalID string, status models.ProposalStatus, trigger string) error {
	t.store.history = append(t.store.history, models.StatusHistory{
		ProposalID: proposalID,
		Status:     status,
		Trigger:    trigger,
		ChangedAt:  time.Now(),
	})
	return nil
}

func (t *fakeDecisionTx) VoteExists(ctx context.Context, proposalID, officerID string) (bool, error) {
	for _, v := range t.store.votes {
		if v.ProposalID == proposalID && v.OfficerID == officerID {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeDecisionTx) InsertVote(ctx context.Context, vote *models.Vote) error {
	for _, v := range t.store.votes {
		if v.ProposalID == vote.ProposalID && v.OfficerID == vote.OfficerID {
			return appErrors.ErrAlreadyVoted
		}
	}
	if vote.ID == "" {
		vote.ID = "vote-" + vote.OfficerID
	}
	t.store.votes = append(t.store.votes, *vote)
	return nil
}

func (t *fakeDecisionTx) Tally(ctx context.Context, proposalID string) (models.VoteTally, error) {
	var tally models.VoteTally
	for _, v := range t.store.votes {
		if v.ProposalID != proposalID {
			continue
		}
		tally.TotalVotes++
		if v.Decision == models.DecisionAccept {
			tally.AcceptVotes++
		} else {
			tally.RejectVotes++
		}
	}
	return tally, nil
}

func (t *fakeDecisionTx) CountActiveOfficers(ctx context.Context) (int, error) {
	return t.store.activeOfficers, nil
}

func (t *fakeDecisionTx) LockVotes(ctx context.Context, proposalID string) error {
	t.store.votesLocked = true
	return nil
}

func (t *fakeDecisionTx) ArchiveVotes(ctx context.Context, proposalID string) error {
	t.store.votesArchived = true
	return nil
}

func (t *fakeDecisionTx) SetAcceptanceOutcome(ctx context.Context, proposalID string, callbackDate time.Time) error {
	t.store.fundingStage = models.StageAgreementPending
	t.store.callbackDate = &callbackDate
	return nil
}

func (t *fakeDecisionTx) LockForReapplication(ctx context.Context, proposalID string, reapplyAt time.Time) error {
	t.store.reapplyLocked = true
	t.store.reapplyDate = &reapplyAt
	return nil
}

func (t *fakeDecisionTx) ScheduleCallback(ctx context.Context, callback *models.CallbackSchedule) error {
	t.store.callbacks = append(t.store.callbacks, *callback)
	return nil
}

func (t *fakeDecisionTx) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	t.store.audit = append(t.store.audit, *entry)
	return nil
}

type fakeOfficerReader struct {
	officers map[string]*models.Officer
}

func (f *fakeOfficerReader) GetByID(ctx context.Context, id string) (*models.Officer, error) {
	if officer, ok := f.officers[id]; ok {
		return officer, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
}

type fakeSettings struct {
	settings models.PlatformSettings
}

func (f *fakeSettings) Settings(ctx context.Context) (models.PlatformSettings, error) {
	return f.settings, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.OutcomeNotification
}

func (f *fakeNotifier) NotifyOutcome(n models.OutcomeNotification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

type fakeDecisionMetrics struct {
	mu        sync.Mutex
	votes     []string
	decisions []string
}

func (f *fakeDecisionMetrics) IncVote(decision string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, decision)
}

func (f *fakeDecisionMetrics) IncDecision(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, outcome)
}

// serialDecisionStore serializes concurrent transactions the way the row
// lock in the real store does.
type serialDecisionStore struct {
	mu    sync.Mutex
	inner *fakeDecisionStore
}

func (s *serialDecisionStore) InTx(ctx context.Context, fn func(repository.DecisionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.InTx(ctx, fn)
}

type fakeAudit struct {
	entries []models.AuditEntry
}

func (f *fakeAudit) Append(ctx context.Context, entry *models.AuditEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) ListByProposal(ctx context.Context, proposalID string) ([]models.AuditEntry, error) {
	return f.entries, nil
}

func (f *fakeAudit) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if len(f.entries) > limit {
		return f.entries[len(f.entries)-limit:], nil
	}
	return f.entries, nil
}

func activeOfficer(id string) *models.Officer {
	return &models.Officer{ID: id, Name: "Officer " + id, Status: models.OfficerActive}
}

type votingFixture struct {
	store    *fakeDecisionStore
	officers *fakeOfficerReader
	notifier *fakeNotifier
	svc      *VotingService
}

func newVotingFixture(status models.ProposalStatus, activeOfficers int) *votingFixture {
	store := &fakeDecisionStore{
		proposal: &models.Proposal{
			ID:          "prop-1",
			OrganizerID: "org-1",
			EventTitle:  "Summer Festival",
			Status:      status,
		},
		activeOfficers: activeOfficers,
	}
	officers := &fakeOfficerReader{officers: map[string]*models.Officer{
		"off-1": activeOfficer("off-1"),
		"off-2": activeOfficer("off-2"),
		"off-3": activeOfficer("off-3"),
		"off-4": activeOfficer("off-4"),
		"off-5": activeOfficer("off-5"),
	}}
	notifier := &fakeNotifier{}
	svc := NewVotingService(
		store, officers, nil, nil, &fakeAudit{},
		&fakeSettings{settings: models.PlatformSettings{
			AcceptanceThreshold: 4,
			CallbackOffsetDays:  7,
			ReapplyOffsetDays:   30,
		}},
		notifier, nil, nil,
		validator.New(), zap.NewNop(), time.Second,
	)
	return &votingFixture{store: store, officers: officers, notifier: notifier, svc: svc}
}

func voteReq(decision models.VoteDecision) SubmitVoteRequest {
	return SubmitVoteRequest{
		ProposalID:     "prop-1",
		Decision:       decision,
		RiskAssessment: "acceptable risk profile",
		RevenueComment: "plausible revenue projection",
	}
}

func TestSubmitVoteFirstVoteMovesUnderReview(t *testing.T) {
	fx := newVotingFixture(models.StatusSubmitted, 7)

	result, err := fx.svc.SubmitVote(context.Background(), "off-1", voteReq(models.DecisionAccept))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, result.ProposalStatus)
	assert.Equal(t, models.StatusUnderReview, fx.store.proposal.Status)

	// The transition row must be appended before the vote lands.
	require.NotEmpty(t, fx.store.history)
	assert.Equal(t, models.StatusUnderReview, fx.store.history[0].Status)
	assert.Equal(t, models.TriggerFirstOfficerVote, fx.store.history[0].Trigger)
	assert.Len(t, fx.store.votes, 1)
	assert.Equal(t, 1, fx.store.commits)
}

func TestSubmitVoteSecondVoteKeepsStatus(t *testing.T) {
	fx := newVotingFixture(models.StatusSubmitted, 7)

	_, err := fx.svc.SubmitVote(context.Background(), "off-1", voteReq(models.DecisionAccept))
	require.NoError(t, err)
	_, err = fx.svc.SubmitVote(context.Background(), "off-2", voteReq(models.DecisionReject))
	require.NoError(t, err)

	assert.Equal(t, models.StatusUnderReview, fx.store.proposal.Status)
	// Only one transition row in total.
	count := 0
	for _, h := range fx.store.history {
		if h.Trigger == models.TriggerFirstOfficerVote {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSubmitVoteDuplicateRejected(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)

	_, err := fx.svc.SubmitVote(context.Background(), "off-1", voteReq(models.DecisionAccept))
	require.NoError(t, err)

	_, err = fx.svc.SubmitVote(context.Background(), "off-1", voteReq(models.DecisionReject))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyVoted)
	assert.Len(t, fx.store.votes, 1)
	assert.Equal(t, 1, fx.store.rollbacks)
}

func TestSubmitVoteTerminalProposalRejected(t *testing.T) {
	for _, status := range []models.ProposalStatus{models.StatusApproved, models.StatusRejected, models.StatusDraft} {
		fx := newVotingFixture(status, 7)
		_, err := fx.svc.SubmitVote(context.Background(), "off-1", voteReq(models.DecisionAccept))
		require.Error(t, err, "status %s", status)
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrProposalNotVotable.Code, appErr.Code)
		assert.Empty(t, fx.store.votes)
	}
}

func TestSubmitVoteInactiveOfficerBlocked(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)
	fx.officers.officers["off-1"].Status = models.OfficerInactive

	_, err := fx.svc.SubmitVote(context.Background(), "off-1", voteReq(models.DecisionAccept))
	assert.ErrorIs(t, err, appErrors.ErrOfficerInactive)
	assert.Empty(t, fx.store.votes)
}

func TestSubmitVoteThresholdApproves(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)

	for _, officer := range []string{"off-1", "off-2", "off-3"} {
		_, err := fx.svc.SubmitVote(context.Background(), officer, voteReq(models.DecisionAccept))
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnderReview, fx.store.proposal.Status)
	}

	result, err := fx.svc.SubmitVote(context.Background(), "off-4", voteReq(models.DecisionAccept))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.ProposalStatus)
	assert.True(t, result.ThresholdMet)
	assert.Equal(t, models.StatusApproved, fx.store.proposal.Status)

	assert.Equal(t, models.StageAgreementPending, fx.store.fundingStage)
	assert.True(t, fx.store.votesLocked)
	require.NotNil(t, fx.store.callbackDate)
	expected := time.Now().UTC().AddDate(0, 0, 7)
	assert.WithinDuration(t, expected, *fx.store.callbackDate, time.Minute)
	require.Len(t, fx.store.callbacks, 1)
	assert.Equal(t, "org-1", fx.store.callbacks[0].OrganizerID)

	require.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, models.StatusApproved, fx.notifier.sent[0].Status)
	assert.False(t, fx.notifier.sent[0].Overridden)

	actions := auditActions(fx.store.audit)
	assert.Contains(t, actions, models.AuditActionProposalAccepted)
	assert.Contains(t, actions, models.AuditActionAcceptanceWorkflow)
}

func TestSubmitVoteAutoRejects(t *testing.T) {
	// Five active officers, threshold 4: after 1 ACCEPT and 2 REJECT the
	// best case is 1 + 2 remaining = 3 < 4.
	fx := newVotingFixture(models.StatusUnderReview, 5)

	_, err := fx.svc.SubmitVote(context.Background(), "off-1", voteReq(models.DecisionAccept))
	require.NoError(t, err)
	_, err = fx.svc.SubmitVote(context.Background(), "off-2", voteReq(models.DecisionReject))
	require.NoError(t, err)

	result, err := fx.svc.SubmitVote(context.Background(), "off-3", voteReq(models.DecisionReject))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, result.ProposalStatus)
	assert.Equal(t, models.StatusRejected, fx.store.proposal.Status)

	assert.True(t, fx.store.votesArchived)
	assert.True(t, fx.store.reapplyLocked)
	require.NotNil(t, fx.store.reapplyDate)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), *fx.store.reapplyDate, time.Minute)

	require.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, models.StatusRejected, fx.notifier.sent[0].Status)

	actions := auditActions(fx.store.audit)
	assert.Contains(t, actions, models.AuditActionProposalAutoRejected)
	assert.Contains(t, actions, models.AuditActionRejectionWorkflow)
}

func TestSubmitVoteRejectionsAloneDoNotReject(t *testing.T) {
	// Ten officers, threshold 4: three rejections leave 4 reachable.
	fx := newVotingFixture(models.StatusUnderReview, 10)

	for _, officer := range []string{"off-1", "off-2", "off-3"} {
		result, err := fx.svc.SubmitVote(context.Background(), officer, voteReq(models.DecisionReject))
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnderReview, result.ProposalStatus)
	}
	assert.Empty(t, fx.notifier.sent)
}

func TestAdminOverrideApproves(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)
	metrics := &fakeDecisionMetrics{}
	fx.svc.metrics = metrics

	proposal, err := fx.svc.AdminOverride(context.Background(), "admin-1", "prop-1", OverrideRequest{
		Decision: models.StatusApproved,
		Reason:   "strategic partnership commitment",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, proposal.Status)
	assert.Equal(t, models.StageAgreementPending, fx.store.fundingStage)
	assert.True(t, fx.store.votesLocked)

	require.Len(t, fx.notifier.sent, 1)
	assert.True(t, fx.notifier.sent[0].Overridden)
	assert.Equal(t, []string{string(models.StatusApproved)}, metrics.decisions)

	actions := auditActions(fx.store.audit)
	assert.Contains(t, actions, models.AuditActionAdminOverride)
	assert.Contains(t, actions, models.AuditActionAcceptanceWorkflow)

	var override models.AuditEntry
	for _, entry := range fx.store.audit {
		if entry.Action == models.AuditActionAdminOverride {
			override = entry
		}
	}
	assert.Contains(t, string(override.Details), "strategic partnership commitment")
}

func TestAdminOverrideRejectRunsRejectionWorkflow(t *testing.T) {
	fx := newVotingFixture(models.StatusSubmitted, 7)

	proposal, err := fx.svc.AdminOverride(context.Background(), "admin-1", "prop-1", OverrideRequest{
		Decision: models.StatusRejected,
		Reason:   "budget is not credible",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, proposal.Status)
	assert.True(t, fx.store.votesArchived)
	assert.True(t, fx.store.reapplyLocked)
}

func TestAdminOverrideShortReasonRejectedBeforeMutation(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)

	_, err := fx.svc.AdminOverride(context.Background(), "admin-1", "prop-1", OverrideRequest{
		Decision: models.StatusApproved,
		Reason:   "short",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	assert.Equal(t, models.StatusUnderReview, fx.store.proposal.Status)
	assert.Empty(t, fx.store.audit)
	assert.Zero(t, fx.store.commits)
}

func TestAdminOverrideTerminalProposalConflicts(t *testing.T) {
	fx := newVotingFixture(models.StatusApproved, 7)

	_, err := fx.svc.AdminOverride(context.Background(), "admin-1", "prop-1", OverrideRequest{
		Decision: models.StatusRejected,
		Reason:   "changed our minds entirely",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrProposalNotVotable.Code, appErr.Code)
	assert.Equal(t, models.StatusApproved, fx.store.proposal.Status)
}

func TestAdminOverrideInvalidDecision(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)

	_, err := fx.svc.AdminOverride(context.Background(), "admin-1", "prop-1", OverrideRequest{
		Decision: models.StatusUnderReview,
		Reason:   "this is not a terminal status",
	})
	require.Error(t, err)
	assert.Zero(t, fx.store.commits)
}

func TestSubmitVoteConcurrentThresholdDecidesOnce(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)
	for _, officer := range []string{"off-1", "off-2", "off-3"} {
		_, err := fx.svc.SubmitVote(context.Background(), officer, voteReq(models.DecisionAccept))
		require.NoError(t, err)
	}

	metrics := &fakeDecisionMetrics{}
	fx.svc.metrics = metrics
	fx.svc.decisions = &serialDecisionStore{inner: fx.store}

	// Two officers race to cast the fourth ACCEPT. The transactions
	// serialize on the proposal row, so exactly one of them crosses the
	// threshold; the other must find the proposal already decided.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, officer := range []string{"off-4", "off-5"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := fx.svc.SubmitVote(context.Background(), id, voteReq(models.DecisionAccept))
			errs <- err
		}(officer)
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, appErrors.ErrProposalNotVotable.Code, appErr.Code)
		lost++
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	assert.Equal(t, models.StatusApproved, fx.store.proposal.Status)
	assert.Len(t, fx.store.votes, 4)
	assert.Len(t, fx.notifier.sent, 1)
	assert.Equal(t, []string{string(OutcomeApproved)}, metrics.decisions)

	workflows := 0
	for _, entry := range fx.store.audit {
		if entry.Action == models.AuditActionAcceptanceWorkflow {
			workflows++
		}
	}
	assert.Equal(t, 1, workflows)

	approvals := 0
	for _, h := range fx.store.history {
		if h.Status == models.StatusApproved {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)
}

func TestSubmitVoteCommitFailureSkipsPostCommitEffects(t *testing.T) {
	fx := newVotingFixture(models.StatusUnderReview, 7)
	for _, officer := range []string{"off-1", "off-2", "off-3"} {
		_, err := fx.svc.SubmitVote(context.Background(), officer, voteReq(models.DecisionAccept))
		require.NoError(t, err)
	}

	metrics := &fakeDecisionMetrics{}
	fx.svc.metrics = metrics
	fx.store.commitErr = assert.AnError

	_, err := fx.svc.SubmitVote(context.Background(), "off-4", voteReq(models.DecisionAccept))
	require.Error(t, err)

	assert.Equal(t, models.StatusUnderReview, fx.store.proposal.Status)
	assert.Equal(t, 1, fx.store.rollbacks)
	// Nothing committed, so nothing is counted or sent.
	assert.Empty(t, metrics.votes)
	assert.Empty(t, metrics.decisions)
	assert.Empty(t, fx.notifier.sent)
}

func auditActions(entries []models.AuditEntry) []string {
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}
