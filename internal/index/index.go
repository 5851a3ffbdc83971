// Package index provides approximate string search over content chunks and
// glossary entries.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/aeonisk/arbiter/internal/domain"
)

const (
	weightText     = 1.0
	weightKeywords = 0.5
	weightSection  = 0.3

	// DefaultThreshold drops hits scoring below this fraction of the best
	// hit in the result set.
	DefaultThreshold = 0.3
)

// Hit is one scored chunk match.
type Hit struct {
	Chunk domain.ContentChunk
	Score float64
}

// GlossaryHit is one scored glossary match.
type GlossaryHit struct {
	Entry domain.GlossaryEntry
	Score float64
}

// Index holds the fuzzy-searchable view of the loaded content. The
// searchable field projections are built lazily and invalidated whenever
// content is replaced.
type Index struct {
	mu        sync.RWMutex
	chunks    []domain.ContentChunk
	glossary  []domain.GlossaryEntry
	threshold float64

	dirty    bool
	texts    []string
	keywords []string
	sections []string
	terms    []string
}

// New creates an empty index. A non-positive threshold selects
// DefaultThreshold.
func New(threshold float64) *Index {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Index{threshold: threshold, dirty: true}
}

// SetContent replaces the indexed collections. The previous content is
// discarded entirely; reload never appends.
func (ix *Index) SetContent(chunks []domain.ContentChunk, glossary []domain.GlossaryEntry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = append([]domain.ContentChunk(nil), chunks...)
	ix.glossary = append([]domain.GlossaryEntry(nil), glossary...)
	ix.dirty = true
}

// Chunks returns the indexed chunk collection.
func (ix *Index) Chunks() []domain.ContentChunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]domain.ContentChunk(nil), ix.chunks...)
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

func (ix *Index) rebuild() {
	if !ix.dirty {
		return
	}
	ix.texts = make([]string, len(ix.chunks))
	ix.keywords = make([]string, len(ix.chunks))
	ix.sections = make([]string, len(ix.chunks))
	for i, c := range ix.chunks {
		ix.texts[i] = strings.ToLower(c.Text)
		ix.keywords[i] = strings.ToLower(strings.Join(c.Metadata.Keywords, " "))
		ix.sections[i] = strings.ToLower(c.Metadata.Section + " " + c.Metadata.Subsection)
	}
	ix.terms = make([]string, len(ix.glossary))
	for i, e := range ix.glossary {
		ix.terms[i] = strings.ToLower(e.Term)
	}
	ix.dirty = false
}

// Search runs token-wise fuzzy matching over the chunk collection with body
// text weighted above keywords and section titles. Results are sorted by
// score; hits below threshold×best are dropped.
func (ix *Index) Search(query string, limit int) []Hit {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	ix.mu.Lock()
	ix.rebuild()
	texts, keywords, sections := ix.texts, ix.keywords, ix.sections
	chunks := ix.chunks
	ix.mu.Unlock()

	scores := make(map[int]float64)
	accumulate := func(haystack []string, weight float64) {
		for _, token := range tokens {
			for _, m := range fuzzy.Find(token, haystack) {
				if m.Score > 0 {
					scores[m.Index] += float64(m.Score) * weight
				}
			}
		}
	}
	accumulate(texts, weightText)
	accumulate(keywords, weightKeywords)
	accumulate(sections, weightSection)

	if len(scores) == 0 {
		return nil
	}

	var best float64
	for _, s := range scores {
		if s > best {
			best = s
		}
	}

	hits := make([]Hit, 0, len(scores))
	for i, s := range scores {
		if s < best*ix.threshold {
			continue
		}
		hits = append(hits, Hit{Chunk: chunks[i], Score: s / best})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// SearchGlossary matches a term against glossary entries.
func (ix *Index) SearchGlossary(term string, limit int) []GlossaryHit {
	clean := strings.ToLower(strings.TrimSpace(term))
	if clean == "" {
		return nil
	}

	ix.mu.Lock()
	ix.rebuild()
	terms := ix.terms
	glossary := ix.glossary
	ix.mu.Unlock()

	matches := fuzzy.Find(clean, terms)
	hits := make([]GlossaryHit, 0, len(matches))
	for _, m := range matches {
		if m.Score <= 0 {
			continue
		}
		hits = append(hits, GlossaryHit{Entry: glossary[m.Index], Score: float64(m.Score)})
	}

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// ByType returns chunks whose inferred content type matches exactly.
func (ix *Index) ByType(t domain.ContentType, limit int) []domain.ContentChunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []domain.ContentChunk
	for _, c := range ix.chunks {
		if c.Metadata.Type != t {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func tokenize(query string) []string {
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
