package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/creditlens/creditlens/internal/domain"
	"github.com/creditlens/creditlens/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll claims.
	claimBatchSize = 10
)

// ReportJobRepository defines the interface for report job persistence
type ReportJobRepository interface {
	// ClaimPending retrieves and claims pending report jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.ReportJob, error)

	// UpdateStatus updates the status of a report job
	UpdateStatus(ctx context.Context, jobID string, status domain.ReportJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error

	// SetArtifact records the storage key of the rendered report
	SetArtifact(ctx context.Context, jobID, artifactKey string) error
}

// IndexEnsurer makes the vector index queryable before synthesis starts.
type IndexEnsurer interface {
	Ensure(ctx context.Context) error
}

// Synthesizer defines the interface for report transcript generation
type Synthesizer interface {
	Synthesize(ctx context.Context, baseContext, companyName string) (domain.Transcript, error)
}

// Renderer defines the interface for transcript-to-PDF rendering
type Renderer interface {
	Render(companyName string, transcript domain.Transcript, reportDate time.Time) ([]byte, error)
}

// ArtifactStore defines the interface for persisting rendered reports
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// ReportWorker processes report generation jobs
type ReportWorker struct {
	repo        ReportJobRepository
	index       IndexEnsurer
	synthesizer Synthesizer
	renderer    Renderer
	store       ArtifactStore
}

// NewReportWorker creates a new ReportWorker instance
func NewReportWorker(repo ReportJobRepository, index IndexEnsurer, synthesizer Synthesizer, renderer Renderer, store ArtifactStore) *ReportWorker {
	return &ReportWorker{
		repo:        repo,
		index:       index,
		synthesizer: synthesizer,
		renderer:    renderer,
		store:       store,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReportWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending report jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *ReportWorker) processJob(ctx context.Context, job *domain.ReportJob) error {
	ctx, span := telemetry.StartSpan(ctx, "ReportWorker.processJob", telemetry.SpanAttributes{
		JobID:     job.ID,
		Company:   job.CompanyName,
		Operation: "generate_report",
	})
	defer span.End()

	log.Printf("Processing report job %s for company %s", job.ID, job.CompanyName)

	if err := w.generate(ctx, job); err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReportJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// generate runs the full pipeline for one job: ensure the index, synthesize
// the transcript, render the PDF, persist the artifact.
func (w *ReportWorker) generate(ctx context.Context, job *domain.ReportJob) error {
	if err := w.index.Ensure(ctx); err != nil {
		return fmt.Errorf("index not available: %w", err)
	}

	transcript, err := w.synthesizer.Synthesize(ctx, job.SourceText, job.CompanyName)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	data, err := w.renderer.Render(job.CompanyName, transcript, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}

	artifactKey := fmt.Sprintf("report_%s.pdf", job.ID)
	if err := w.store.Put(ctx, artifactKey, data); err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}

	if err := w.repo.SetArtifact(ctx, job.ID, artifactKey); err != nil {
		return fmt.Errorf("failed to record artifact key: %w", err)
	}

	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *ReportWorker) handleJobFailure(ctx context.Context, job *domain.ReportJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReportJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.ReportJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
