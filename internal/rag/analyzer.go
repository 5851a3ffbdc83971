// Package rag implements the retrieval pipeline: query analysis, multi-
// strategy lookup against the search index, LLM reranking and prompt
// assembly.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/llm"
)

// Completer is the slice of the LLM client the pipeline needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const analysisSystem = `You classify questions about the Aeonisk tabletop RPG.
Respond with strict JSON only, no prose, matching exactly this shape:
{"game_mechanics": [], "specific_terms": [], "intent_type": "rules_lookup|dice_roll|lore_question|character|general", "related_concepts": [], "requires_dice_roll": false, "context_needed": []}`

// Analyzer classifies a user message into structured search hints. The LLM
// path asks for strict JSON; any failure (transport or parse) routes to a
// deterministic keyword fallback. One LLM call per message, no retries.
type Analyzer struct {
	completer Completer
}

func NewAnalyzer(completer Completer) *Analyzer {
	return &Analyzer{completer: completer}
}

// Analyze produces search hints for one user message. recentMessages gives
// the model short conversational context and may be empty. Never fails: the
// regex fallback covers every error path.
func (a *Analyzer) Analyze(ctx context.Context, query string, recentMessages []string) domain.QueryAnalysis {
	if a.completer == nil {
		return fallbackAnalysis(query)
	}

	analysis, err := a.analyzeLLM(ctx, query, recentMessages)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("query analysis fell back to keyword matching")
		return fallbackAnalysis(query)
	}
	return analysis
}

func (a *Analyzer) analyzeLLM(ctx context.Context, query string, recentMessages []string) (domain.QueryAnalysis, error) {
	user := query
	if len(recentMessages) > 0 {
		user = fmt.Sprintf("Recent conversation:\n%s\n\nCurrent message: %s",
			strings.Join(recentMessages, "\n"), query)
	}

	raw, err := a.completer.Complete(ctx, analysisSystem, user)
	if err != nil {
		return domain.QueryAnalysis{}, err
	}

	obj, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return domain.QueryAnalysis{}, err
	}

	var analysis domain.QueryAnalysis
	if err := json.Unmarshal([]byte(obj), &analysis); err != nil {
		return domain.QueryAnalysis{}, domain.NewDomainErrorWithCause(domain.ErrCodeParse, "model analysis did not match expected shape", err)
	}

	if !validIntent(analysis.IntentType) {
		analysis.IntentType = domain.IntentGeneral
	}
	return analysis, nil
}

func validIntent(t domain.IntentType) bool {
	switch t {
	case domain.IntentRulesLookup, domain.IntentDiceRoll, domain.IntentLoreQuestion,
		domain.IntentCharacter, domain.IntentGeneral:
		return true
	}
	return false
}

// fallbackKeywords maps the fixed domain vocabulary to the mechanics bucket
// of the analysis shape.
var fallbackKeywords = []string{
	"ritual", "combat", "void", "bond", "soulcredit", "offering",
	"attunement", "initiative", "soak", "wound", "true will", "covenant",
	"skill check", "attribute", "difficulty",
}

var diceRollRe = regexp.MustCompile(`(?i)\b(roll|check|dice|d20|attack)\b`)
var loreRe = regexp.MustCompile(`(?i)\b(who|history|lore|aeon|happened|why did)\b`)

func fallbackAnalysis(query string) domain.QueryAnalysis {
	lower := strings.ToLower(query)

	analysis := domain.QueryAnalysis{
		GameMechanics:    []string{},
		SpecificTerms:    []string{},
		IntentType:       domain.IntentGeneral,
		RelatedConcepts:  []string{},
		RequiresDiceRoll: diceRollRe.MatchString(query),
		ContextNeeded:    []string{},
	}

	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw) {
			analysis.GameMechanics = append(analysis.GameMechanics, kw)
		}
	}

	switch {
	case analysis.RequiresDiceRoll:
		analysis.IntentType = domain.IntentDiceRoll
	case loreRe.MatchString(query):
		analysis.IntentType = domain.IntentLoreQuestion
	case len(analysis.GameMechanics) > 0:
		analysis.IntentType = domain.IntentRulesLookup
	}

	return analysis
}
