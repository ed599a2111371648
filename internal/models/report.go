package models

import "time"

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportFormatPDF ReportFormat = "pdf"
	ReportFormatCSV ReportFormat = "csv"
)

// ReportStatus tracks the async export lifecycle.
type ReportStatus string

const (
	ReportStatusQueued   ReportStatus = "QUEUED"
	ReportStatusRunning  ReportStatus = "RUNNING"
	ReportStatusDone     ReportStatus = "DONE"
	ReportStatusFailed   ReportStatus = "FAILED"
)

// DecisionReport is an admin-requested export of a proposal's decision
// record: summary, tally and full audit trail.
type DecisionReport struct {
	ID           string       `db:"id" json:"id"`
	ProposalID   string       `db:"proposal_id" json:"proposal_id"`
	Format       ReportFormat `db:"format" json:"format"`
	Status       ReportStatus `db:"status" json:"status"`
	FilePath     *string      `db:"file_path" json:"-"`
	ErrorMessage *string      `db:"error_message" json:"error,omitempty"`
	RequestedBy  string       `db:"requested_by" json:"requested_by"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
