package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/aeonisk/arbiter/internal/domain"
)

// MaxRetries is the maximum number of attempts for a failed embedding job.
const MaxRetries = 3

// EmbeddingJobStore claims and updates queued chunk embedding jobs.
type EmbeddingJobStore interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.EmbeddingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// ChunkEmbedder generates and stores the embedding for one content chunk.
type ChunkEmbedder interface {
	EmbedChunk(ctx context.Context, chunkID string) error
}

// EmbeddingWorker processes queued chunk embedding jobs.
type EmbeddingWorker struct {
	store    EmbeddingJobStore
	embedder ChunkEmbedder
	batch    int
}

func NewEmbeddingWorker(store EmbeddingJobStore, embedder ChunkEmbedder) *EmbeddingWorker {
	return &EmbeddingWorker{
		store:    store,
		embedder: embedder,
		batch:    100,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.store.ClaimPending(ctx, w.batch)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Info().Int("count", len(jobs)).Msg("processing embedding jobs")

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("processing embedding job")
		}
	}

	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	if job.ChunkID == "" {
		return w.handleJobFailure(ctx, job, fmt.Errorf("job %s has no chunk_id", job.ID))
	}

	if err := w.embedder.EmbedChunk(ctx, job.ChunkID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.store.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Debug().Str("job_id", job.ID).Str("chunk_id", job.ChunkID).Msg("embedding job completed")
	return nil
}

// handleJobFailure retries a failed job up to MaxRetries, then marks it
// failed for good.
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	log.Warn().Err(jobErr).Str("job_id", job.ID).Msg("embedding job failed")

	if err := w.store.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.store.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.store.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
