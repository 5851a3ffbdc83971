package handlers

import (
	"context"
	"net/http"

	"github.com/aeonisk/arbiter/internal/api"
	"github.com/aeonisk/arbiter/internal/service"
)

type ContentService interface {
	Reload(ctx context.Context) (*service.ReloadResult, error)
	Stats(ctx context.Context) ([]service.SourceStat, error)
}

type ContentHandler struct {
	svc ContentService
}

func NewContentHandler(svc ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// Reload re-fetches every rulebook file and replaces the stored content
// set.
func (h *ContentHandler) Reload(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Reload(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

type ContentStatsResponse struct {
	Sources []service.SourceStat `json:"sources"`
}

func (h *ContentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ContentStatsResponse{Sources: stats})
}
