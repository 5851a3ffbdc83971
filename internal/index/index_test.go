package index

import (
	"testing"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks() []domain.ContentChunk {
	return []domain.ContentChunk{
		{
			ID:   "rituals-000",
			Text: "A ritual requires an offering and a willing bond between participants.",
			Metadata: domain.ChunkMetadata{
				Source:   "rituals.md",
				Section:  "Rituals",
				Type:     domain.ContentTypeRitual,
				Keywords: []string{"ritual", "offering", "bond"},
			},
		},
		{
			ID:   "combat-000",
			Text: "Initiative is rolled once per combat; soak reduces incoming wounds.",
			Metadata: domain.ChunkMetadata{
				Source:   "combat.md",
				Section:  "Combat",
				Type:     domain.ContentTypeCombat,
				Keywords: []string{"combat", "initiative", "soak"},
			},
		},
		{
			ID:   "lore-000",
			Text: "The first aeon ended when the ley lines fractured.",
			Metadata: domain.ChunkMetadata{
				Source:  "lore.md",
				Section: "History",
				Type:    domain.ContentTypeLore,
			},
		},
	}
}

func testGlossary() []domain.GlossaryEntry {
	return []domain.GlossaryEntry{
		{Term: "Void", Definition: "Corrupting residue.", Category: "Metaphysics"},
		{Term: "Soulcredit", Definition: "Spiritual currency.", Category: "Metaphysics"},
		{Term: "Soak", Definition: "Absorbed damage.", Category: "Combat"},
	}
}

func TestIndex_SearchRanksRelevantChunkFirst(t *testing.T) {
	ix := New(0)
	ix.SetContent(testChunks(), testGlossary())

	hits := ix.Search("ritual offering", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "rituals-000", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestIndex_SearchEmptyQuery(t *testing.T) {
	ix := New(0)
	ix.SetContent(testChunks(), nil)

	assert.Nil(t, ix.Search("", 10))
	assert.Nil(t, ix.Search("a b", 10)) // tokens below minimum length
}

func TestIndex_SearchLimit(t *testing.T) {
	ix := New(0.0001)
	ix.SetContent(testChunks(), nil)

	hits := ix.Search("combat ritual aeon", 1)
	assert.Len(t, hits, 1)
}

func TestIndex_SetContentReplaces(t *testing.T) {
	ix := New(0)
	ix.SetContent(testChunks(), testGlossary())
	require.Equal(t, 3, ix.Len())

	replacement := []domain.ContentChunk{{
		ID:   "new-000",
		Text: "Replacement ritual text.",
		Metadata: domain.ChunkMetadata{
			Source: "new.md", Type: domain.ContentTypeRitual,
		},
	}}
	ix.SetContent(replacement, nil)

	assert.Equal(t, 1, ix.Len())
	hits := ix.Search("ritual", 10)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, "new-000", h.Chunk.ID)
	}
	assert.Empty(t, ix.SearchGlossary("void", 5))
}

func TestIndex_SearchGlossary(t *testing.T) {
	ix := New(0)
	ix.SetContent(nil, testGlossary())

	hits := ix.SearchGlossary("soulcredit", 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Soulcredit", hits[0].Entry.Term)

	assert.Empty(t, ix.SearchGlossary("", 3))
}

func TestIndex_ByType(t *testing.T) {
	ix := New(0)
	ix.SetContent(testChunks(), nil)

	combat := ix.ByType(domain.ContentTypeCombat, 10)
	require.Len(t, combat, 1)
	assert.Equal(t, "combat-000", combat[0].ID)

	assert.Empty(t, ix.ByType(domain.ContentTypeGlossary, 10))
}
