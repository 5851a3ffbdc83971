package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/aeonisk/arbiter/internal/content"
	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/index"
	"github.com/aeonisk/arbiter/internal/llm"
)

const (
	fuzzySearchLimit    = 20
	glossaryLookupLimit = 3
	typeFilterLimit     = 10
	conceptSearchLimit  = 5
	semanticSearchLimit = 10
	rerankSummaryChars  = 200
	defaultRerankTopN   = 5
)

// fallbackScores are assigned when the rerank call fails or is skipped with
// more than RerankTopN candidates.
var fallbackScores = []float64{1.0, 0.9, 0.8, 0.7, 0.6}

// SemanticSearcher is the optional embedding-based lookup strategy, backed
// by the pgvector chunk store.
type SemanticSearcher interface {
	SearchChunksByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.ContentChunk, []float64, error)
}

// Embedder generates the query embedding for semantic lookup.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// QueryLogger records each retrieval for later inspection. Implementations
// must not fail the retrieval.
type QueryLogger interface {
	LogQuery(ctx context.Context, query string, analysis domain.QueryAnalysis, chunkIDs []string, reranked bool, took time.Duration)
}

// Retriever produces the ranked chunk set injected into the chat prompt.
// All LLM calls here are best-effort: any failure is logged and routed to a
// deterministic fallback, never fatal to the chat turn.
type Retriever struct {
	index     *index.Index
	analyzer  *Analyzer
	completer Completer
	semantic  SemanticSearcher
	embedder  Embedder
	queryLog  QueryLogger
	topN      int
}

// RetrieverOption configures optional retriever collaborators.
type RetrieverOption func(*Retriever)

// WithSemanticSearch enables the embedding-based lookup strategy.
func WithSemanticSearch(searcher SemanticSearcher, embedder Embedder) RetrieverOption {
	return func(r *Retriever) {
		r.semantic = searcher
		r.embedder = embedder
	}
}

// WithQueryLog records retrievals through the given logger.
func WithQueryLog(ql QueryLogger) RetrieverOption {
	return func(r *Retriever) {
		r.queryLog = ql
	}
}

// WithTopN overrides how many chunks survive reranking.
func WithTopN(n int) RetrieverOption {
	return func(r *Retriever) {
		if n > 0 {
			r.topN = n
		}
	}
}

func NewRetriever(ix *index.Index, analyzer *Analyzer, completer Completer, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		index:     ix,
		analyzer:  analyzer,
		completer: completer,
		topN:      defaultRerankTopN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the full pipeline for one user message: analyze, look up via
// every strategy, union by chunk id in first-seen order, then rerank when
// the union is larger than topN.
func (r *Retriever) Retrieve(ctx context.Context, query string, recentMessages []string) domain.RetrievalResult {
	started := time.Now()

	analysis := r.analyzer.Analyze(ctx, query, recentMessages)
	union := r.collect(ctx, query, analysis)

	result := r.rank(ctx, query, union)

	if r.queryLog != nil {
		ids := lo.Map(result.Chunks, func(c domain.ContentChunk, _ int) string { return c.ID })
		r.queryLog.LogQuery(ctx, query, analysis, ids, result.Reranked, time.Since(started))
	}

	return result
}

// collect runs the independent lookup strategies and unions their results by
// chunk id, preserving first-seen order.
func (r *Retriever) collect(ctx context.Context, query string, analysis domain.QueryAnalysis) []domain.ContentChunk {
	var union []domain.ContentChunk
	seen := make(map[string]struct{})

	add := func(chunks ...domain.ContentChunk) {
		for _, c := range chunks {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			union = append(union, c)
		}
	}

	// (a) fuzzy search over extracted hints plus the raw query
	terms := lo.Uniq(append(append(append([]string{},
		analysis.GameMechanics...),
		analysis.SpecificTerms...),
		analysis.RelatedConcepts...))
	searchQuery := strings.TrimSpace(strings.Join(terms, " ") + " " + query)
	for _, hit := range r.index.Search(searchQuery, fuzzySearchLimit) {
		add(hit.Chunk)
	}

	// (b) glossary lookup per extracted term, converted to synthetic chunks
	for _, term := range append(append([]string{}, analysis.GameMechanics...), analysis.SpecificTerms...) {
		for _, hit := range r.index.SearchGlossary(term, glossaryLookupLimit) {
			add(content.GlossaryChunk(hit.Entry))
		}
	}

	// (c) exact-match filter on inferred content types
	for _, t := range inferTypes(analysis) {
		add(r.index.ByType(t, typeFilterLimit)...)
	}

	// (d) fuzzy search per related concept
	for _, concept := range analysis.RelatedConcepts {
		for _, hit := range r.index.Search(concept, conceptSearchLimit) {
			add(hit.Chunk)
		}
	}

	// (e) semantic search when embeddings are available
	if r.semantic != nil && r.embedder != nil {
		embedding, err := r.embedder.GenerateEmbedding(ctx, query)
		if err != nil {
			log.Warn().Err(err).Msg("query embedding failed; skipping semantic lookup")
		} else {
			chunks, _, err := r.semantic.SearchChunksByEmbedding(ctx, embedding, semanticSearchLimit)
			if err != nil {
				log.Warn().Err(err).Msg("semantic lookup failed")
			} else {
				add(chunks...)
			}
		}
	}

	return union
}

// rank selects the final topN. A union that already fits is returned whole
// with uniform relevance and no LLM call.
func (r *Retriever) rank(ctx context.Context, query string, union []domain.ContentChunk) domain.RetrievalResult {
	if len(union) <= r.topN {
		scores := make([]float64, len(union))
		for i := range scores {
			scores[i] = 1.0
		}
		return domain.RetrievalResult{Chunks: union, RelevanceScores: scores}
	}

	selected, err := r.rerankLLM(ctx, query, union)
	if err != nil {
		log.Warn().Err(err).Msg("rerank fell back to union order")
		return fallbackResult(union, r.topN)
	}

	scores := make([]float64, len(selected))
	for i := range scores {
		scores[i] = 1.0 - 0.1*float64(i)
	}
	return domain.RetrievalResult{Chunks: selected, RelevanceScores: scores, Reranked: true}
}

const rerankSystem = `You rank rulebook excerpts by relevance to a player question.
Respond with a JSON array of candidate indices only, best first, at most %d entries. Example: [2, 0, 5]`

func (r *Retriever) rerankLLM(ctx context.Context, query string, union []domain.ContentChunk) ([]domain.ContentChunk, error) {
	if r.completer == nil {
		return nil, llm.ErrNotConfigured
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nCandidates:\n", query)
	for i, c := range union {
		fmt.Fprintf(&sb, "[%d] %s - %s: %s\n", i, c.Metadata.Source, c.Metadata.Section, truncate(c.Text, rerankSummaryChars))
	}

	raw, err := r.completer.Complete(ctx, fmt.Sprintf(rerankSystem, r.topN), sb.String())
	if err != nil {
		return nil, err
	}

	arr, err := llm.ExtractJSONArray(raw)
	if err != nil {
		return nil, err
	}

	var indices []int
	if err := json.Unmarshal([]byte(arr), &indices); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeParse, "model rerank response was not an index array", err)
	}

	var selected []domain.ContentChunk
	seen := make(map[int]struct{})
	for _, idx := range indices {
		if idx < 0 || idx >= len(union) {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		selected = append(selected, union[idx])
		if len(selected) >= r.topN {
			break
		}
	}

	if len(selected) == 0 {
		return nil, domain.ErrMalformedRerank
	}
	return selected, nil
}

func fallbackResult(union []domain.ContentChunk, topN int) domain.RetrievalResult {
	if topN > len(union) {
		topN = len(union)
	}
	chunks := union[:topN]
	scores := make([]float64, len(chunks))
	for i := range scores {
		if i < len(fallbackScores) {
			scores[i] = fallbackScores[i]
		} else {
			scores[i] = fallbackScores[len(fallbackScores)-1]
		}
	}
	return domain.RetrievalResult{Chunks: chunks, RelevanceScores: scores}
}

// inferTypes maps analysis hints onto content type filters.
func inferTypes(analysis domain.QueryAnalysis) []domain.ContentType {
	var types []domain.ContentType
	joined := strings.ToLower(strings.Join(append(append([]string{},
		analysis.GameMechanics...), analysis.RelatedConcepts...), " "))

	if strings.Contains(joined, "ritual") || strings.Contains(joined, "offering") {
		types = append(types, domain.ContentTypeRitual)
	}
	if strings.Contains(joined, "combat") || strings.Contains(joined, "soak") || strings.Contains(joined, "initiative") {
		types = append(types, domain.ContentTypeCombat)
	}
	if analysis.IntentType == domain.IntentLoreQuestion {
		types = append(types, domain.ContentTypeLore)
	}
	if analysis.IntentType == domain.IntentCharacter {
		types = append(types, domain.ContentTypeCharacter)
	}
	return types
}

func truncate(s string, max int) string {
	clean := strings.Join(strings.Fields(s), " ")
	if len(clean) <= max {
		return clean
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return clean[:cut] + "..."
}
