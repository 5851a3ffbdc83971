package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aeonisk/arbiter/internal/content"
	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/index"
)

// TxRunner runs a unit of work inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// TxRepositories bundles the repositories a content reload touches, so
// replacing chunks and queuing embedding jobs commit atomically.
type TxRepositories interface {
	Chunks() TxChunkStore
	EmbeddingJobs() TxEmbeddingJobStore
}

// TxChunkStore is the transactional chunk surface a reload needs.
type TxChunkStore interface {
	ReplaceAll(ctx context.Context, chunks []domain.ContentChunk) error
}

// TxEmbeddingJobStore enqueues embedding jobs inside the reload
// transaction.
type TxEmbeddingJobStore interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// SourceStat is one row of the per-source content summary.
type SourceStat struct {
	Source   string `json:"source"`
	Chunks   int    `json:"chunks"`
	Embedded int    `json:"embedded"`
}

// ContentChunkStore is the slice of the chunk repository the content
// service reads outside of reload transactions.
type ContentChunkStore interface {
	ListAll(ctx context.Context) ([]domain.ContentChunk, error)
	Stats(ctx context.Context) ([]SourceStat, error)
}

// ReloadResult summarizes one content reload.
type ReloadResult struct {
	Files         int `json:"files"`
	Chunks        int `json:"chunks"`
	GlossaryTerms int `json:"glossary_terms"`
	JobsQueued    int `json:"jobs_queued"`
}

// ContentService loads rulebook markdown from a source, chunks it, persists
// the result, and keeps the in-memory search index in sync. A reload fully
// replaces the previous content set.
type ContentService struct {
	source     content.Source
	tx         TxRunner
	chunks     ContentChunkStore
	index      *index.Index
	embeddings bool
}

func NewContentService(source content.Source, tx TxRunner, chunks ContentChunkStore, ix *index.Index, embeddings bool) *ContentService {
	return &ContentService{
		source:     source,
		tx:         tx,
		chunks:     chunks,
		index:      ix,
		embeddings: embeddings,
	}
}

// Reload fetches every rulebook file, chunks it, replaces the stored
// content, queues embedding jobs when an embedding provider is configured,
// and swaps the search index.
func (s *ContentService) Reload(ctx context.Context) (*ReloadResult, error) {
	files, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing content files: %w", err)
	}

	var (
		chunks   []domain.ContentChunk
		glossary []domain.GlossaryEntry
		loaded   int
	)
	for _, name := range files {
		body, err := s.source.Fetch(ctx, name)
		if err != nil {
			// A single unreadable file must not take down the whole
			// reload; the rest of the set still loads.
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable content file")
			continue
		}
		loaded++

		if isGlossaryFile(name) {
			entries := content.ParseGlossary(body)
			glossary = append(glossary, entries...)
			for _, entry := range entries {
				chunks = append(chunks, content.GlossaryChunk(entry))
			}
			continue
		}
		chunks = append(chunks, content.ProcessMarkdownFile(name, body)...)
	}

	jobsQueued := 0
	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().ReplaceAll(ctx, chunks); err != nil {
			return err
		}
		if !s.embeddings {
			return nil
		}
		now := time.Now().UTC()
		for _, c := range chunks {
			job := &domain.EmbeddingJob{
				ID:        uuid.NewString(),
				ChunkID:   c.ID,
				Status:    domain.EmbeddingJobStatusPending,
				CreatedAt: now,
			}
			if err := repos.EmbeddingJobs().Create(ctx, job); err != nil {
				return err
			}
			jobsQueued++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replacing content: %w", err)
	}

	s.index.SetContent(chunks, glossary)

	result := &ReloadResult{
		Files:         loaded,
		Chunks:        len(chunks),
		GlossaryTerms: len(glossary),
		JobsQueued:    jobsQueued,
	}
	log.Info().
		Int("files", result.Files).
		Int("chunks", result.Chunks).
		Int("glossary_terms", result.GlossaryTerms).
		Int("jobs_queued", result.JobsQueued).
		Msg("content reloaded")
	return result, nil
}

// WarmUp rebuilds the search index from persisted chunks so the service
// can answer queries immediately after a restart.
func (s *ContentService) WarmUp(ctx context.Context) error {
	chunks, err := s.chunks.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("loading stored chunks: %w", err)
	}

	var glossary []domain.GlossaryEntry
	for _, c := range chunks {
		if entry, ok := content.GlossaryEntryFromChunk(c); ok {
			glossary = append(glossary, entry)
		}
	}

	s.index.SetContent(chunks, glossary)
	log.Info().Int("chunks", len(chunks)).Int("glossary_terms", len(glossary)).Msg("search index warmed up")
	return nil
}

// Stats returns the per-source content summary.
func (s *ContentService) Stats(ctx context.Context) ([]SourceStat, error) {
	return s.chunks.Stats(ctx)
}

// SearchRules satisfies the search_rules game tool against the in-memory
// index.
func (s *ContentService) SearchRules(_ context.Context, query string, limit int) ([]domain.ContentChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	hits := s.index.Search(query, limit)
	chunks := make([]domain.ContentChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, hit.Chunk)
	}
	return chunks, nil
}

func isGlossaryFile(name string) bool {
	return strings.Contains(strings.ToLower(name), "glossary")
}
