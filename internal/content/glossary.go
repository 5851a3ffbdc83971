package content

import (
	"strings"

	"github.com/aeonisk/arbiter/internal/domain"
)

// ParseGlossary parses the distinguished glossary markdown convention:
// `## Category` headings followed by `- **Term**: definition` lines. A
// definition may carry a trailing `Related: a, b` sentence which is split
// into the entry's related-term list.
func ParseGlossary(content string) []domain.GlossaryEntry {
	var (
		entries  []domain.GlossaryEntry
		category string
	)

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "## ") {
			category = strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			continue
		}

		if !strings.HasPrefix(trimmed, "- **") {
			continue
		}

		body := strings.TrimPrefix(trimmed, "- **")
		termEnd := strings.Index(body, "**")
		if termEnd < 0 {
			continue
		}
		term := strings.TrimSpace(body[:termEnd])

		definition := strings.TrimSpace(body[termEnd+2:])
		definition = strings.TrimPrefix(definition, ":")
		definition = strings.TrimSpace(definition)
		if term == "" || definition == "" {
			continue
		}

		definition, related := splitRelated(definition)
		entries = append(entries, domain.GlossaryEntry{
			Term:       term,
			Definition: definition,
			Related:    related,
			Category:   category,
		})
	}

	return entries
}

func splitRelated(definition string) (string, []string) {
	idx := strings.LastIndex(definition, "Related:")
	if idx < 0 {
		return definition, nil
	}

	var related []string
	for _, part := range strings.Split(definition[idx+len("Related:"):], ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "."))
		if part != "" {
			related = append(related, part)
		}
	}

	return strings.TrimSpace(definition[:idx]), related
}

// GlossaryEntryFromChunk recovers the glossary entry encoded in a synthetic
// glossary chunk, for rebuilding the term index from persisted content.
func GlossaryEntryFromChunk(c domain.ContentChunk) (domain.GlossaryEntry, bool) {
	if c.Metadata.Type != domain.ContentTypeGlossary {
		return domain.GlossaryEntry{}, false
	}
	term, definition, found := strings.Cut(c.Text, ": ")
	if !found || strings.TrimSpace(term) == "" {
		return domain.GlossaryEntry{}, false
	}

	var related []string
	if len(c.Metadata.Keywords) > 1 {
		related = c.Metadata.Keywords[1:]
	}
	return domain.GlossaryEntry{
		Term:       strings.TrimSpace(term),
		Definition: strings.TrimSpace(definition),
		Related:    related,
		Category:   c.Metadata.Section,
	}, true
}

// GlossaryChunk converts a glossary entry into a synthetic content chunk so
// it can flow through the same retrieval pipeline as rulebook text.
func GlossaryChunk(entry domain.GlossaryEntry) domain.ContentChunk {
	return domain.ContentChunk{
		ID:   "glossary-" + strings.ToLower(strings.ReplaceAll(entry.Term, " ", "-")),
		Text: entry.Term + ": " + entry.Definition,
		Metadata: domain.ChunkMetadata{
			Source:   "glossary.md",
			Section:  entry.Category,
			Type:     domain.ContentTypeGlossary,
			Keywords: append([]string{strings.ToLower(entry.Term)}, entry.Related...),
		},
	}
}
