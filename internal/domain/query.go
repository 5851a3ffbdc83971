package domain

// IntentType classifies what the user is asking for.
type IntentType string

const (
	IntentRulesLookup  IntentType = "rules_lookup"
	IntentDiceRoll     IntentType = "dice_roll"
	IntentLoreQuestion IntentType = "lore_question"
	IntentCharacter    IntentType = "character"
	IntentGeneral      IntentType = "general"
)

// QueryAnalysis is the structured hint set extracted from a user message.
// It is transient: produced once per chat turn and discarded after retrieval.
type QueryAnalysis struct {
	GameMechanics    []string   `json:"game_mechanics"`
	SpecificTerms    []string   `json:"specific_terms"`
	IntentType       IntentType `json:"intent_type"`
	RelatedConcepts  []string   `json:"related_concepts"`
	RequiresDiceRoll bool       `json:"requires_dice_roll"`
	ContextNeeded    []string   `json:"context_needed"`
}

// RetrievalResult is the ranked chunk set selected for one chat turn.
type RetrievalResult struct {
	Chunks          []ContentChunk
	RelevanceScores []float64
	// Reranked is true when the LLM rerank pass actually ran.
	Reranked bool
}
