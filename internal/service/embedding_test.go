package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeonisk/arbiter/internal/domain"
)

type fakeEmbeddingClient struct {
	lastText string
	vector   []float32
	err      error
}

func (c *fakeEmbeddingClient) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	c.lastText = text
	if c.err != nil {
		return nil, c.err
	}
	return c.vector, nil
}

type fakeEmbeddingChunkStore struct {
	chunk     *domain.ContentChunk
	storedID  string
	storedVec []float32
}

func (s *fakeEmbeddingChunkStore) GetByID(_ context.Context, id string) (*domain.ContentChunk, error) {
	if s.chunk == nil || s.chunk.ID != id {
		return nil, domain.ErrChunkNotFound
	}
	return s.chunk, nil
}

func (s *fakeEmbeddingChunkStore) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	s.storedID = id
	s.storedVec = embedding
	return nil
}

func (s *fakeEmbeddingChunkStore) SearchByEmbedding(_ context.Context, _ []float32, _ int) ([]domain.ContentChunk, []float64, error) {
	return []domain.ContentChunk{*s.chunk}, []float64{0.91}, nil
}

func TestEmbeddingService_EmbedChunk(t *testing.T) {
	store := &fakeEmbeddingChunkStore{chunk: &domain.ContentChunk{
		ID:   "rituals-003",
		Text: "A ritual without an offering invites the void.",
		Metadata: domain.ChunkMetadata{
			Source:  "rituals.md",
			Section: "Offerings",
		},
	}}
	client := &fakeEmbeddingClient{vector: []float32{0.1, 0.2, 0.3}}
	svc := NewEmbeddingService(client, store)

	require.NoError(t, svc.EmbedChunk(context.Background(), "rituals-003"))
	assert.Equal(t, "rituals-003", store.storedID)
	assert.Equal(t, client.vector, store.storedVec)
	// The embedded text carries the chunk's position in the rulebook.
	assert.Equal(t, "rituals / Offerings\n\nA ritual without an offering invites the void.", client.lastText)
}

func TestEmbeddingService_EmbedChunkMissingChunk(t *testing.T) {
	svc := NewEmbeddingService(&fakeEmbeddingClient{}, &fakeEmbeddingChunkStore{})

	err := svc.EmbedChunk(context.Background(), "gone-001")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestEmbeddingService_EmbedChunkClientError(t *testing.T) {
	store := &fakeEmbeddingChunkStore{chunk: &domain.ContentChunk{ID: "rituals-003", Text: "text"}}
	svc := NewEmbeddingService(&fakeEmbeddingClient{err: errors.New("rate limited")}, store)

	err := svc.EmbedChunk(context.Background(), "rituals-003")
	require.Error(t, err)
	assert.Empty(t, store.storedID)
}

func TestEmbeddingService_SearchChunksByEmbedding(t *testing.T) {
	store := &fakeEmbeddingChunkStore{chunk: &domain.ContentChunk{ID: "rituals-003"}}
	svc := NewEmbeddingService(&fakeEmbeddingClient{}, store)

	chunks, scores, err := svc.SearchChunksByEmbedding(context.Background(), []float32{0.1}, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "rituals-003", chunks[0].ID)
	assert.Equal(t, 0.91, scores[0])
}
