package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aeonisk/arbiter/internal/api"
	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/pagination"
	"github.com/aeonisk/arbiter/internal/service"
)

type CharacterService interface {
	Create(ctx context.Context, input service.CreateCharacterInput) (*domain.Character, error)
	GetByID(ctx context.Context, id string) (*domain.Character, error)
	List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.Character], error)
	Update(ctx context.Context, c *domain.Character) error
	Delete(ctx context.Context, id string) error
}

type CharacterHandler struct {
	svc CharacterService
}

func NewCharacterHandler(svc CharacterService) *CharacterHandler {
	return &CharacterHandler{svc: svc}
}

type CreateCharacterRequest struct {
	Name       string         `json:"name"`
	Concept    string         `json:"concept,omitempty"`
	TrueWill   string         `json:"true_will,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"`
	Skills     map[string]int `json:"skills,omitempty"`
}

type UpdateCharacterRequest struct {
	Concept    *string        `json:"concept,omitempty"`
	TrueWill   *string        `json:"true_will,omitempty"`
	VoidScore  *int           `json:"void_score,omitempty"`
	Soulcredit *int           `json:"soulcredit,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"`
	Skills     map[string]int `json:"skills,omitempty"`
}

type CharacterResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Concept    string         `json:"concept,omitempty"`
	TrueWill   string         `json:"true_will,omitempty"`
	VoidScore  int            `json:"void_score"`
	Soulcredit int            `json:"soulcredit"`
	Attributes map[string]int `json:"attributes"`
	Skills     map[string]int `json:"skills"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

func characterToResponse(c *domain.Character) *CharacterResponse {
	return &CharacterResponse{
		ID:         c.ID,
		Name:       c.Name,
		Concept:    c.Concept,
		TrueWill:   c.TrueWill,
		VoidScore:  c.VoidScore,
		Soulcredit: c.Soulcredit,
		Attributes: c.Attributes,
		Skills:     c.Skills,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *CharacterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	character, err := h.svc.Create(r.Context(), service.CreateCharacterInput{
		Name:       req.Name,
		Concept:    req.Concept,
		TrueWill:   req.TrueWill,
		Attributes: req.Attributes,
		Skills:     req.Skills,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, characterToResponse(character))
}

func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	character, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, characterToResponse(character))
}

type CharacterListResponse struct {
	Items   []*CharacterResponse `json:"items"`
	Cursor  string               `json:"cursor,omitempty"`
	HasMore bool                 `json:"has_more"`
}

func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.List(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*CharacterResponse, len(page.Items))
	for i, c := range page.Items {
		responses[i] = characterToResponse(c)
	}

	api.Success(w, http.StatusOK, CharacterListResponse{
		Items:   responses,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

// Update applies a partial update. Omitted fields keep their values;
// attributes and skills merge per key rather than replacing the map.
func (h *CharacterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	character, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if req.Concept != nil {
		character.Concept = *req.Concept
	}
	if req.TrueWill != nil {
		character.TrueWill = *req.TrueWill
	}
	if req.VoidScore != nil {
		character.VoidScore = *req.VoidScore
	}
	if req.Soulcredit != nil {
		character.Soulcredit = *req.Soulcredit
	}
	for name, v := range req.Attributes {
		character.Attributes[name] = v
	}
	for name, v := range req.Skills {
		character.Skills[name] = v
	}

	if err := h.svc.Update(r.Context(), character); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, characterToResponse(character))
}

func (h *CharacterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
