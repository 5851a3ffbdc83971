package domain

import (
	"time"
)

// ContentType classifies a rulebook chunk by the kind of material it holds.
type ContentType string

const (
	ContentTypeRitual    ContentType = "ritual"
	ContentTypeCombat    ContentType = "combat"
	ContentTypeMechanics ContentType = "mechanics"
	ContentTypeLore      ContentType = "lore"
	ContentTypeCharacter ContentType = "character"
	ContentTypeGlossary  ContentType = "glossary"
	ContentTypeGeneral   ContentType = "general"
)

// ValidContentTypes lists every recognized content type.
var ValidContentTypes = []ContentType{
	ContentTypeRitual,
	ContentTypeCombat,
	ContentTypeMechanics,
	ContentTypeLore,
	ContentTypeCharacter,
	ContentTypeGlossary,
	ContentTypeGeneral,
}

// IsValidContentType reports whether t is a recognized content type.
func IsValidContentType(t ContentType) bool {
	for _, v := range ValidContentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ChunkMetadata carries the retrieval metadata attached to a chunk.
type ChunkMetadata struct {
	Source     string
	Section    string
	Subsection string
	Type       ContentType
	Keywords   []string
}

// ContentChunk is a bounded slice of rulebook text with retrieval metadata.
// Chunks are immutable once created; a content reload replaces the whole
// collection.
type ContentChunk struct {
	ID        string
	Text      string
	Metadata  ChunkMetadata
	CreatedAt time.Time
}

// GlossaryEntry is a parsed glossary term with its definition and relations.
type GlossaryEntry struct {
	Term       string
	Definition string
	Related    []string
	Category   string
}
