package rag

import (
	"strings"
	"testing"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_ChunkBlocks(t *testing.T) {
	chunks := []domain.ContentChunk{
		{
			Text: "Soak reduces incoming wounds.",
			Metadata: domain.ChunkMetadata{
				Source:     "combat.md",
				Section:    "Combat",
				Subsection: "Soak",
			},
		},
		{
			Text:     "A ritual requires an offering.",
			Metadata: domain.ChunkMetadata{Source: "rituals.md", Section: "Rituals"},
		},
	}

	prompt := BuildPrompt(chunks, nil)

	assert.Contains(t, prompt, "combat.md - Combat - Soak: Soak reduces incoming wounds.")
	assert.Contains(t, prompt, "rituals.md - Rituals: A ritual requires an offering.")
	assert.NotContains(t, prompt, "Active character")
}

func TestBuildPrompt_CharacterSummary(t *testing.T) {
	character := &domain.Character{
		Name:       "Sable",
		Concept:    "Void-touched envoy",
		TrueWill:   "Mend the fractured ley lines",
		VoidScore:  2,
		Soulcredit: 7,
		Attributes: map[string]int{"strength": 5, "will": 4},
		Skills:     map[string]int{"brawl": 4},
	}

	prompt := BuildPrompt(nil, character)

	assert.Contains(t, prompt, "Name: Sable")
	assert.Contains(t, prompt, "Concept: Void-touched envoy")
	assert.Contains(t, prompt, "Void score: 2")
	assert.Contains(t, prompt, "Soulcredit: 7")
	assert.Contains(t, prompt, "strength 5, will 4")
	assert.Contains(t, prompt, "brawl 4")
	assert.Contains(t, prompt, "True will: Mend the fractured ley lines")
}

func TestBuildPrompt_PreambleAlwaysPresent(t *testing.T) {
	prompt := BuildPrompt(nil, nil)
	require.True(t, strings.HasPrefix(prompt, "You are the Arbiter"))
	assert.NotContains(t, prompt, "Rulebook excerpts")
}

func TestBuildPrompt_NoTruncation(t *testing.T) {
	big := strings.Repeat("rules text ", 2000)
	chunks := []domain.ContentChunk{{
		Text:     big,
		Metadata: domain.ChunkMetadata{Source: "core-rules.md", Section: "All"},
	}}

	prompt := BuildPrompt(chunks, nil)
	assert.Contains(t, prompt, strings.TrimSpace(big))
}
