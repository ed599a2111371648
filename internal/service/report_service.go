package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/internal/repository"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
	"github.com/crawdwall/capital-review-api/pkg/export"
	"github.com/crawdwall/capital-review-api/pkg/jobs"
)

type reportStore interface {
	Create(ctx context.Context, report *models.DecisionReport) error
	GetByID(ctx context.Context, id string) (*models.DecisionReport, error)
	Update(ctx context.Context, params repository.UpdateReportParams) error
}

type decisionRecordLoader interface {
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	StatusHistory(ctx context.Context, proposalID string) ([]models.StatusHistory, error)
}

type reportVoteReader interface {
	Tally(ctx context.Context, proposalID string) (models.VoteTally, error)
	ListByProposal(ctx context.Context, proposalID string) ([]models.VoteWithOfficer, error)
}

type reportAuditReader interface {
	ListByProposal(ctx context.Context, proposalID string) ([]models.AuditEntry, error)
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string) (reportID, relPath string, expiresAt time.Time, err error)
}

// ReportDownload is a signed download grant for a finished report.
type ReportDownload struct {
	ReportID  string    `json:"report_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReportService builds decision-record exports asynchronously. Requesting a
// report enqueues it; the worker renders the document, stores the file and
// marks the row DONE, after which a signed download token can be issued.
type ReportService struct {
	reports   reportStore
	proposals decisionRecordLoader
	votes     reportVoteReader
	audit     reportAuditReader
	settings  settingsReader
	files     fileStore
	signer    urlSigner
	queue     *jobs.Queue
	logger    *zap.Logger
}

const jobTypeReport = "decision_report"

func NewReportService(
	reports reportStore,
	proposals decisionRecordLoader,
	votes reportVoteReader,
	audit reportAuditReader,
	settings settingsReader,
	files fileStore,
	signer urlSigner,
	workers int,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		reports:   reports,
		proposals: proposals,
		votes:     votes,
		audit:     audit,
		settings:  settings,
		files:     files,
		signer:    signer,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("reports", s.handle, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ReportService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains the export workers.
func (s *ReportService) Stop() { s.queue.Stop() }

// Request queues a new decision report for a proposal.
func (s *ReportService) Request(ctx context.Context, adminID, proposalID string, format models.ReportFormat) (*models.DecisionReport, error) {
	if format != models.ReportFormatPDF && format != models.ReportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report format must be pdf or csv")
	}
	if _, err := s.proposals.GetByID(ctx, proposalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load proposal")
	}

	report := &models.DecisionReport{
		ProposalID:  proposalID,
		Format:      format,
		Status:      models.ReportStatusQueued,
		RequestedBy: adminID,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	if err := s.queue.Enqueue(jobs.Job{Type: jobTypeReport, Payload: report.ID}); err != nil {
		s.fail(context.Background(), report.ID, "report queue full")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report")
	}
	return report, nil
}

// Status returns the report row.
func (s *ReportService) Status(ctx context.Context, reportID string) (*models.DecisionReport, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// DownloadToken issues a signed token for a finished report.
func (s *ReportService) DownloadToken(ctx context.Context, reportID string) (*ReportDownload, error) {
	report, err := s.Status(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusDone || report.FilePath == nil {
		return nil, appErrors.ErrReportPending
	}
	token, expiresAt, err := s.signer.Generate(report.ID, *report.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &ReportDownload{ReportID: report.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// OpenByToken validates the token and opens the stored file for streaming.
func (s *ReportService) OpenByToken(token string) (*os.File, *models.DecisionReport, error) {
	reportID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	report, err := s.reports.GetByID(context.Background(), reportID)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	if report.FilePath == nil || *report.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token does not match report")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return file, report, nil
}

func (s *ReportService) handle(ctx context.Context, job jobs.Job) error {
	reportID, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("unexpected report payload", zap.String("job_id", job.ID))
		return nil
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", reportID, err)
	}

	now := time.Now().UTC()
	if err := s.reports.Update(ctx, repository.UpdateReportParams{ID: report.ID, Status: models.ReportStatusRunning}); err != nil {
		return err
	}

	doc, err := s.buildDocument(ctx, report.ProposalID)
	if err != nil {
		s.fail(ctx, report.ID, err.Error())
		return fmt.Errorf("build report %s: %w", report.ID, err)
	}

	var data []byte
	switch report.Format {
	case models.ReportFormatPDF:
		data, err = export.NewPDFExporter().Render(*doc)
	case models.ReportFormatCSV:
		data, err = export.NewCSVExporter().Render(*doc)
	default:
		err = fmt.Errorf("unknown report format %s", report.Format)
	}
	if err != nil {
		s.fail(ctx, report.ID, err.Error())
		return fmt.Errorf("render report %s: %w", report.ID, err)
	}

	relPath := fmt.Sprintf("%s/%s.%s", now.Format("2006-01"), report.ID, report.Format)
	if _, err := s.files.Save(relPath, data); err != nil {
		s.fail(ctx, report.ID, err.Error())
		return fmt.Errorf("store report %s: %w", report.ID, err)
	}

	finished := time.Now().UTC()
	if err := s.reports.Update(ctx, repository.UpdateReportParams{
		ID:         report.ID,
		Status:     models.ReportStatusDone,
		FilePath:   &relPath,
		FinishedAt: &finished,
	}); err != nil {
		return err
	}
	s.logger.Info("decision report ready",
		zap.String("report_id", report.ID),
		zap.String("proposal_id", report.ProposalID),
		zap.String("format", string(report.Format)))
	return nil
}

func (s *ReportService) buildDocument(ctx context.Context, proposalID string) (*export.Document, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	tally, err := s.votes.Tally(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	votes, err := s.votes.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	history, err := s.proposals.StatusHistory(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	audit, err := s.audit.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}

	doc := &export.Document{
		Title: "Funding Decision Report",
		Meta: []export.MetaEntry{
			{Key: "Proposal", Value: proposal.EventTitle},
			{Key: "Proposal ID", Value: proposal.ID},
			{Key: "Status", Value: string(proposal.Status)},
			{Key: "Accept Votes", Value: strconv.Itoa(tally.AcceptVotes)},
			{Key: "Total Votes", Value: strconv.Itoa(tally.TotalVotes)},
			{Key: "Threshold", Value: strconv.Itoa(settings.AcceptanceThreshold)},
			{Key: "Generated", Value: time.Now().UTC().Format(time.RFC3339)},
		},
	}

	voteRows := make([]map[string]string, 0, len(votes))
	for _, v := range votes {
		voteRows = append(voteRows, map[string]string{
			"Officer":  v.OfficerName,
			"Decision": string(v.Decision),
			"Risk":     v.RiskAssessment,
			"Revenue":  v.RevenueComment,
			"Cast At":  v.CreatedAt.Format(time.RFC3339),
		})
	}
	doc.Sections = append(doc.Sections, export.Section{
		Title: "Votes",
		Data: export.Dataset{
			Headers: []string{"Officer", "Decision", "Risk", "Revenue", "Cast At"},
			Rows:    voteRows,
		},
	})

	historyRows := make([]map[string]string, 0, len(history))
	for _, h := range history {
		historyRows = append(historyRows, map[string]string{
			"Status":     string(h.Status),
			"Trigger":    h.Trigger,
			"Changed At": h.ChangedAt.Format(time.RFC3339),
		})
	}
	doc.Sections = append(doc.Sections, export.Section{
		Title: "Status History",
		Data: export.Dataset{
			Headers: []string{"Status", "Trigger", "Changed At"},
			Rows:    historyRows,
		},
	})

	auditRows := make([]map[string]string, 0, len(audit))
	for _, entry := range audit {
		detail := ""
		if len(entry.Details) > 0 {
			var compact map[string]interface{}
			if err := json.Unmarshal(entry.Details, &compact); err == nil {
				pairs, _ := json.Marshal(compact)
				detail = string(pairs)
			}
		}
		auditRows = append(auditRows, map[string]string{
			"Action":  entry.Action,
			"Actor":   entry.PerformedBy,
			"Role":    string(entry.PerformedByRole),
			"Details": detail,
			"At":      entry.Timestamp.Format(time.RFC3339),
		})
	}
	doc.Sections = append(doc.Sections, export.Section{
		Title: "Audit Trail",
		Data: export.Dataset{
			Headers: []string{"Action", "Actor", "Role", "Details", "At"},
			Rows:    auditRows,
		},
	})
	return doc, nil
}

func (s *ReportService) fail(ctx context.Context, reportID, message string) {
	finished := time.Now().UTC()
	if err := s.reports.Update(ctx, repository.UpdateReportParams{
		ID:           reportID,
		Status:       models.ReportStatusFailed,
		ErrorMessage: &message,
		FinishedAt:   &finished,
	}); err != nil {
		s.logger.Error("failed to mark report failed", zap.String("report_id", reportID), zap.Error(err))
	}
}
