//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/testutil"
)

func testChunks() []domain.ContentChunk {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return []domain.ContentChunk{
		{
			ID:   "rituals-001",
			Text: "Every ritual begins with an offering.",
			Metadata: domain.ChunkMetadata{
				Source:   "rituals.md",
				Section:  "Offerings",
				Type:     domain.ContentTypeRitual,
				Keywords: []string{"ritual", "offering"},
			},
			CreatedAt: now,
		},
		{
			ID:   "combat-001",
			Text: "Initiative is agility plus a d20.",
			Metadata: domain.ChunkMetadata{
				Source:     "combat.md",
				Section:    "Initiative",
				Subsection: "Order of Action",
				Type:       domain.ContentTypeCombat,
				Keywords:   []string{"combat", "initiative"},
			},
			CreatedAt: now,
		},
	}
}

func TestChunkRepository_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	require.NoError(t, repo.ReplaceAll(ctx, testChunks()))

	chunk, err := repo.GetByID(ctx, "rituals-001")
	require.NoError(t, err)
	assert.Equal(t, "rituals.md", chunk.Metadata.Source)
	assert.Equal(t, "Offerings", chunk.Metadata.Section)
	assert.Equal(t, domain.ContentTypeRitual, chunk.Metadata.Type)
	assert.Equal(t, []string{"ritual", "offering"}, chunk.Metadata.Keywords)

	// A second replace fully supersedes the first.
	replacement := []domain.ContentChunk{
		{
			ID:   "lore-001",
			Text: "The Aeons shaped the nine worlds.",
			Metadata: domain.ChunkMetadata{
				Source: "lore.md",
				Type:   domain.ContentTypeLore,
			},
		},
	}
	require.NoError(t, repo.ReplaceAll(ctx, replacement))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "lore-001", all[0].ID)

	_, err = repo.GetByID(ctx, "rituals-001")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkRepository_Embeddings(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	require.NoError(t, repo.ReplaceAll(ctx, testChunks()))

	embedding := make([]float32, 1536)
	embedding[0] = 1.0
	require.NoError(t, repo.SetEmbedding(ctx, "rituals-001", embedding))

	near := make([]float32, 1536)
	near[0] = 0.9
	chunks, scores, err := repo.SearchByEmbedding(ctx, near, 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "rituals-001", chunks[0].ID)
	require.Len(t, scores, 1)
	assert.Greater(t, scores[0], 0.0)

	err = repo.SetEmbedding(ctx, "missing", embedding)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkRepository_Stats(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	require.NoError(t, repo.ReplaceAll(ctx, testChunks()))
	require.NoError(t, repo.SetEmbedding(ctx, "combat-001", make([]float32, 1536)))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "combat.md", stats[0].Source)
	assert.Equal(t, 1, stats[0].Chunks)
	assert.Equal(t, 1, stats[0].Embedded)
	assert.Equal(t, "rituals.md", stats[1].Source)
	assert.Equal(t, 0, stats[1].Embedded)
}
