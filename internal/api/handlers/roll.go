package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aeonisk/arbiter/internal/api"
	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/game"
)

// RollHandler exposes the dice mechanics directly, without a chat turn.
// The same math backs the model's tool calls, so a table can verify a
// disputed roll against the API.
type RollHandler struct {
	characters game.CharacterStore
	roller     game.Roller
}

func NewRollHandler(characters game.CharacterStore, roller game.Roller) *RollHandler {
	if roller == nil {
		roller = game.RandomRoller{}
	}
	return &RollHandler{characters: characters, roller: roller}
}

func (h *RollHandler) SkillCheck(w http.ResponseWriter, r *http.Request) {
	var req game.SkillCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Difficulty <= 0 {
		api.Error(w, http.StatusBadRequest, "difficulty must be positive")
		return
	}

	character := h.lookup(r.Context(), req.Character)
	api.Success(w, http.StatusOK, game.RollSkillCheck(character, req, h.roller))
}

func (h *RollHandler) Ritual(w http.ResponseWriter, r *http.Request) {
	var req game.RitualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Difficulty <= 0 {
		api.Error(w, http.StatusBadRequest, "difficulty must be positive")
		return
	}

	character := h.lookup(r.Context(), req.Character)
	result := game.PerformRitual(character, req, h.roller)

	if result.VoidGained > 0 && character != nil {
		character.VoidScore += result.VoidGained
		if err := h.characters.UpdateCharacter(r.Context(), character); err != nil {
			log.Warn().Err(err).Str("character", character.Name).Msg("persisting void gain")
		}
	}

	api.Success(w, http.StatusOK, result)
}

func (h *RollHandler) Attack(w http.ResponseWriter, r *http.Request) {
	var req game.AttackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Defense <= 0 {
		api.Error(w, http.StatusBadRequest, "defense must be positive")
		return
	}

	character := h.lookup(r.Context(), req.Attacker)
	api.Success(w, http.StatusOK, game.ResolveAttack(character, req, h.roller))
}

// lookup returns nil for unknown characters so the mechanics fall back to
// ruleset defaults instead of refusing the roll.
func (h *RollHandler) lookup(ctx context.Context, name string) *domain.Character {
	if name == "" {
		return nil
	}
	character, err := h.characters.GetCharacterByName(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrCharacterNotFound) {
			log.Warn().Err(err).Str("character", name).Msg("character lookup failed")
		}
		return nil
	}
	return character
}
