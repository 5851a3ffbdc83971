package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aeonisk/arbiter/internal/api"
	"github.com/aeonisk/arbiter/internal/domain"
)

type RetrievalService interface {
	Retrieve(ctx context.Context, query string, recentMessages []string) domain.RetrievalResult
}

type SearchHandler struct {
	retriever RetrievalService
}

func NewSearchHandler(retriever RetrievalService) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchChunk struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Section    string  `json:"section,omitempty"`
	Subsection string  `json:"subsection,omitempty"`
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type SearchResponse struct {
	Chunks   []SearchChunk `json:"chunks"`
	Reranked bool          `json:"reranked"`
}

// Search runs the full retrieval pipeline for a query without starting a
// chat turn. Useful for rule lookups and for inspecting what the
// assistant would be shown.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.retriever.Retrieve(r.Context(), req.Query, nil)

	chunks := make([]SearchChunk, len(result.Chunks))
	for i, c := range result.Chunks {
		score := 0.0
		if i < len(result.RelevanceScores) {
			score = result.RelevanceScores[i]
		}
		chunks[i] = SearchChunk{
			ID:         c.ID,
			Source:     c.Metadata.Source,
			Section:    c.Metadata.Section,
			Subsection: c.Metadata.Subsection,
			Type:       string(c.Metadata.Type),
			Text:       c.Text,
			Score:      score,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Chunks:   chunks,
		Reranked: result.Reranked,
	})
}
