package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aeonisk/arbiter/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingChunkStore is the slice of the chunk repository the embedding
// service needs.
type EmbeddingChunkStore interface {
	GetByID(ctx context.Context, id string) (*domain.ContentChunk, error)
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.ContentChunk, []float64, error)
}

// EmbeddingService generates and stores chunk embeddings, and answers
// vector search for the retrieval pipeline.
type EmbeddingService struct {
	client EmbeddingClient
	chunks EmbeddingChunkStore
}

func NewEmbeddingService(client EmbeddingClient, chunks EmbeddingChunkStore) *EmbeddingService {
	return &EmbeddingService{client: client, chunks: chunks}
}

// EmbedChunk generates and stores the embedding for one chunk. Called by
// the background worker.
func (s *EmbeddingService) EmbedChunk(ctx context.Context, chunkID string) error {
	chunk, err := s.chunks.GetByID(ctx, chunkID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, buildEmbeddingText(chunk))
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	return s.chunks.SetEmbedding(ctx, chunkID, embedding)
}

// SearchChunksByEmbedding satisfies rag.SemanticSearcher.
func (s *EmbeddingService) SearchChunksByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.ContentChunk, []float64, error) {
	return s.chunks.SearchByEmbedding(ctx, embedding, limit)
}

// buildEmbeddingText prefixes the chunk body with its section path so the
// vector carries where the text sits in the rulebook.
func buildEmbeddingText(c *domain.ContentChunk) string {
	var parts []string
	if c.Metadata.Source != "" {
		parts = append(parts, strings.TrimSuffix(c.Metadata.Source, ".md"))
	}
	if c.Metadata.Section != "" {
		parts = append(parts, c.Metadata.Section)
	}
	if c.Metadata.Subsection != "" {
		parts = append(parts, c.Metadata.Subsection)
	}
	header := strings.Join(parts, " / ")
	if header == "" {
		return c.Text
	}
	return header + "\n\n" + c.Text
}
