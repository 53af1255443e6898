//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditlens/creditlens/internal/domain"
	"github.com/creditlens/creditlens/internal/testutil"
)

func setupRepo(ctx context.Context, t *testing.T) (*ReportJobRepository, *pgxpool.Pool, func()) {
	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	cleanup := func() {
		pool.Close()
		pc.Terminate(ctx)
	}
	return NewReportJobRepository(pool), pool, cleanup
}

func newStoredJob(ctx context.Context, t *testing.T, repo *ReportJobRepository, createdAt time.Time) *domain.ReportJob {
	job := domain.NewReportJob(uuid.NewString(), "Acme", "extracted text",
		[]string{"scan.png"}, createdAt.Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, job))
	return job
}

func TestReportJobRepository_CreateAndGetByID(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	job := newStoredJob(ctx, t, repo, time.Now().UTC())

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retrieved.ID)
	assert.Equal(t, "Acme", retrieved.CompanyName)
	assert.Equal(t, "extracted text", retrieved.SourceText)
	assert.Equal(t, []string{"scan.png"}, retrieved.SkippedFiles)
	assert.Equal(t, domain.ReportJobStatusPending, retrieved.Status)
	assert.Equal(t, int32(0), retrieved.Retries)
	assert.Empty(t, retrieved.Error)
	assert.Empty(t, retrieved.ArtifactKey)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestReportJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrReportJobNotFound)
}

func TestReportJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	now := time.Now().UTC()
	older := newStoredJob(ctx, t, repo, now.Add(-time.Minute))
	newer := newStoredJob(ctx, t, repo, now)

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Oldest first, all flipped to processing.
	ids := []string{claimed[0].ID, claimed[1].ID}
	assert.Equal(t, []string{older.ID, newer.ID}, ids)
	for _, job := range claimed {
		assert.Equal(t, domain.ReportJobStatusProcessing, job.Status)
	}

	// A second claim finds nothing pending.
	again, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestReportJobRepository_ClaimPending_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		newStoredJob(ctx, t, repo, now.Add(time.Duration(i)*time.Second))
	}

	claimed, err := repo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)

	rest, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestReportJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	job := newStoredJob(ctx, t, repo, time.Now().UTC())

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.ReportJobStatusCompleted, ""))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportJobStatusCompleted, retrieved.Status)
	assert.Empty(t, retrieved.Error)
	require.NotNil(t, retrieved.ProcessedAt)
}

func TestReportJobRepository_UpdateStatus_Failed(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	job := newStoredJob(ctx, t, repo, time.Now().UTC())

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.ReportJobStatusFailed, "max retries exceeded: llm down"))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportJobStatusFailed, retrieved.Status)
	assert.Equal(t, "max retries exceeded: llm down", retrieved.Error)
	require.NotNil(t, retrieved.ProcessedAt)
}

func TestReportJobRepository_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	err := repo.UpdateStatus(ctx, uuid.NewString(), domain.ReportJobStatusCompleted, "")
	assert.ErrorIs(t, err, domain.ErrReportJobNotFound)
}

func TestReportJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	job := newStoredJob(ctx, t, repo, time.Now().UTC())

	require.NoError(t, repo.IncrementRetries(ctx, job.ID))
	require.NoError(t, repo.IncrementRetries(ctx, job.ID))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), retrieved.Retries)
}

func TestReportJobRepository_SetArtifact(t *testing.T) {
	ctx := context.Background()
	repo, _, cleanup := setupRepo(ctx, t)
	defer cleanup()

	job := newStoredJob(ctx, t, repo, time.Now().UTC())

	require.NoError(t, repo.SetArtifact(ctx, job.ID, "report_"+job.ID+".pdf"))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "report_"+job.ID+".pdf", retrieved.ArtifactKey)
}
