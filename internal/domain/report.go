package domain

import (
	"fmt"
	"time"
)

// Entry is one question/answer record in a report transcript.
type Entry struct {
	Question string
	Answer   string
}

// Transcript is the ordered sequence of question/answer pairs produced by one
// report-generation run, in question-bank traversal order. It is the sole
// hand-off artifact to the report renderer.
type Transcript []Entry

// ReportJobStatus represents the status of a report generation job
type ReportJobStatus string

const (
	ReportJobStatusPending    ReportJobStatus = "pending"
	ReportJobStatusProcessing ReportJobStatus = "processing"
	ReportJobStatusCompleted  ReportJobStatus = "completed"
	ReportJobStatusFailed     ReportJobStatus = "failed"
)

// ReportJob represents an async report-generation job. SourceText is the
// combined extracted text of the uploaded documents; it becomes the base
// context for every question. SkippedFiles records uploads that could not be
// ingested (unsupported kind or extraction failure) so partial ingestion is
// visible to the caller.
type ReportJob struct {
	ID           string
	CompanyName  string
	SourceText   string
	SkippedFiles []string
	Status       ReportJobStatus
	Retries      int32
	Error        string
	ArtifactKey  string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// NewReportJob creates a pending ReportJob instance
func NewReportJob(id, companyName, sourceText string, skipped []string, createdAt time.Time) *ReportJob {
	return &ReportJob{
		ID:           id,
		CompanyName:  companyName,
		SourceText:   sourceText,
		SkippedFiles: skipped,
		Status:       ReportJobStatusPending,
		CreatedAt:    createdAt,
	}
}

// ValidateReportJob validates a ReportJob instance
func ValidateReportJob(j *ReportJob) error {
	if j == nil {
		return fmt.Errorf("report job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("report job ID is required")
	}

	if j.CompanyName == "" {
		return fmt.Errorf("report job CompanyName is required")
	}

	if !isValidReportJobStatus(j.Status) {
		return fmt.Errorf("report job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("report job Retries cannot be negative")
	}

	return nil
}

// isValidReportJobStatus checks if a ReportJobStatus is valid
func isValidReportJobStatus(s ReportJobStatus) bool {
	switch s {
	case ReportJobStatusPending, ReportJobStatusProcessing,
		ReportJobStatusCompleted, ReportJobStatusFailed:
		return true
	}
	return false
}
