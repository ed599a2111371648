package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/pkg/config"
	"github.com/crawdwall/capital-review-api/pkg/jobs"
	"github.com/crawdwall/capital-review-api/pkg/mailer"
)

type organizerLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type notificationCounter interface {
	IncNotificationFailure()
}

// NotificationService delivers outcome emails to organizers through a
// background queue. Delivery is best effort: a failed send is retried by the
// queue and counted, never propagated to the decision path.
type NotificationService struct {
	queue   *jobs.Queue
	mail    mailer.Mailer
	users   organizerLookup
	metrics notificationCounter
	logger  *zap.Logger
}

const jobTypeOutcome = "proposal_outcome"

func NewNotificationService(users organizerLookup, mail mailer.Mailer, metrics notificationCounter, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{mail: mail, users: users, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains the pool.
func (s *NotificationService) Stop() { s.queue.Stop() }

// NotifyOutcome enqueues an outcome email. Safe to call from the decision
// path after commit; a full queue is logged and dropped.
func (s *NotificationService) NotifyOutcome(notification models.OutcomeNotification) {
	err := s.queue.Enqueue(jobs.Job{
		Type:    jobTypeOutcome,
		Payload: notification,
	})
	if err != nil {
		s.logger.Warn("dropping outcome notification",
			zap.String("proposal_id", notification.ProposalID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.IncNotificationFailure()
		}
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.OutcomeNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	organizer, err := s.users.GetByID(ctx, notification.OrganizerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("organizer not found for outcome notification",
				zap.String("organizer_id", notification.OrganizerID))
			return nil
		}
		return fmt.Errorf("load organizer: %w", err)
	}

	subject, body := renderOutcome(organizer.Name, notification)
	if err := s.mail.Send(organizer.Email, subject, body); err != nil {
		if s.metrics != nil {
			s.metrics.IncNotificationFailure()
		}
		return fmt.Errorf("send outcome email: %w", err)
	}
	s.logger.Info("outcome notification sent",
		zap.String("proposal_id", notification.ProposalID),
		zap.String("status", string(notification.Status)))
	return nil
}

func renderOutcome(name string, n models.OutcomeNotification) (subject, body string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)

	switch n.Status {
	case models.StatusApproved:
		subject = fmt.Sprintf("Funding approved: %s", n.EventTitle)
		fmt.Fprintf(&b, "Your funding proposal %q has been approved", n.EventTitle)
		if n.Overridden {
			b.WriteString(" by administrative decision")
		} else {
			fmt.Fprintf(&b, " with %d of %d votes in favor (threshold %d)", n.AcceptVotes, n.TotalVotes, n.Threshold)
		}
		b.WriteString(".\n\n")
		if n.CallbackDate != nil {
			fmt.Fprintf(&b, "Our team will contact you on %s to proceed with the funding agreement.\n\n",
				n.CallbackDate.Format("January 2, 2006"))
		}
	case models.StatusRejected:
		subject = fmt.Sprintf("Funding decision: %s", n.EventTitle)
		fmt.Fprintf(&b, "After review, your funding proposal %q was not approved", n.EventTitle)
		if !n.Overridden {
			fmt.Fprintf(&b, " (%d of %d votes in favor, threshold %d)", n.AcceptVotes, n.TotalVotes, n.Threshold)
		}
		b.WriteString(".\n\n")
		if n.ReapplyDate != nil {
			fmt.Fprintf(&b, "You are welcome to submit a revised proposal from %s.\n\n",
				n.ReapplyDate.Format("January 2, 2006"))
		}
	default:
		subject = fmt.Sprintf("Proposal update: %s", n.EventTitle)
		fmt.Fprintf(&b, "Your proposal %q status changed to %s.\n\n", n.EventTitle, n.Status)
	}

	b.WriteString("Crawdwall Capital\n")
	return subject, b.String()
}
