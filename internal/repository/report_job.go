package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditlens/creditlens/internal/domain"
)

type ReportJobRepository struct {
	db dbtx
}

func NewReportJobRepository(pool *pgxpool.Pool) *ReportJobRepository {
	return &ReportJobRepository{db: pool}
}

func NewReportJobRepositoryWithTx(tx pgx.Tx) *ReportJobRepository {
	return &ReportJobRepository{db: tx}
}

func (r *ReportJobRepository) Create(ctx context.Context, job *domain.ReportJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO report_jobs (id, company_name, source_text, skipped_files, status, retries, error, artifact_key, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.CompanyName, job.SourceText, job.SkippedFiles, job.Status,
		job.Retries, nullableString(job.Error), nullableString(job.ArtifactKey),
		job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *ReportJobRepository) GetByID(ctx context.Context, id string) (*domain.ReportJob, error) {
	var job domain.ReportJob
	var errMsg, artifactKey pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, company_name, source_text, skipped_files, status, retries, error, artifact_key, created_at, processed_at
		 FROM report_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.CompanyName, &job.SourceText, &job.SkippedFiles, &job.Status,
		&job.Retries, &errMsg, &artifactKey, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReportJobNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if artifactKey.Valid {
		job.ArtifactKey = artifactKey.String
	}
	return &job, nil
}

// ClaimPending atomically claims up to limit pending jobs for processing.
// SKIP LOCKED keeps concurrent workers from claiming the same job.
func (r *ReportJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ReportJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM report_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE report_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE report_jobs.id = cte.id
		 RETURNING report_jobs.id, report_jobs.company_name, report_jobs.source_text, report_jobs.skipped_files,
		           report_jobs.status, report_jobs.retries, report_jobs.error, report_jobs.artifact_key,
		           report_jobs.created_at, report_jobs.processed_at`,
		domain.ReportJobStatusPending, limit, domain.ReportJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ReportJob
	for rows.Next() {
		var job domain.ReportJob
		var errMsg, artifactKey pgtype.Text
		if err := rows.Scan(&job.ID, &job.CompanyName, &job.SourceText, &job.SkippedFiles,
			&job.Status, &job.Retries, &errMsg, &artifactKey,
			&job.CreatedAt, &job.ProcessedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		if artifactKey.Valid {
			job.ArtifactKey = artifactKey.String
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

func (r *ReportJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ReportJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.ReportJobStatusCompleted || status == domain.ReportJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE report_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReportJobNotFound
	}
	return nil
}

func (r *ReportJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE report_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReportJobNotFound
	}
	return nil
}

// SetArtifact records the storage key of the rendered report.
func (r *ReportJobRepository) SetArtifact(ctx context.Context, id, artifactKey string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE report_jobs SET artifact_key = $1 WHERE id = $2`,
		artifactKey, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReportJobNotFound
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
