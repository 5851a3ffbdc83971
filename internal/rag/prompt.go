package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/aeonisk/arbiter/internal/domain"
)

const promptPreamble = `You are the Arbiter, a rules assistant for the Aeonisk tabletop RPG (YAGS ruleset).
Answer using the rulebook excerpts below. When a rule is not covered by the excerpts, say so instead of inventing one.
Use the provided tools for dice rolls, rituals, combat resolution and rules search rather than estimating outcomes yourself.`

// BuildPrompt assembles the system prompt for the chat call: the fixed
// preamble, one block per selected chunk, and a character summary when a
// character is active. No truncation happens here; overruns surface as
// provider errors.
func BuildPrompt(chunks []domain.ContentChunk, character *domain.Character) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)

	if len(chunks) > 0 {
		sb.WriteString("\n\n## Rulebook excerpts\n")
		for _, c := range chunks {
			sb.WriteString("\n")
			sb.WriteString(chunkHeader(c))
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(c.Text))
			sb.WriteString("\n")
		}
	}

	if character != nil {
		sb.WriteString("\n\n## Active character\n")
		sb.WriteString(characterSummary(character))
	}

	prompt := sb.String()
	if tokens, err := EstimateTokens(prompt); err == nil {
		log.Debug().Int("tokens", tokens).Int("chunks", len(chunks)).Msg("assembled system prompt")
	}
	return prompt
}

func chunkHeader(c domain.ContentChunk) string {
	header := c.Metadata.Source
	if c.Metadata.Section != "" {
		header += " - " + c.Metadata.Section
	}
	if c.Metadata.Subsection != "" {
		header += " - " + c.Metadata.Subsection
	}
	return header
}

func characterSummary(c *domain.Character) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", c.Name)
	if c.Concept != "" {
		fmt.Fprintf(&sb, "Concept: %s\n", c.Concept)
	}
	fmt.Fprintf(&sb, "Void score: %d\n", c.VoidScore)
	fmt.Fprintf(&sb, "Soulcredit: %d\n", c.Soulcredit)
	fmt.Fprintf(&sb, "Attributes: %s\n", formatStats(c.Attributes))
	fmt.Fprintf(&sb, "Skills: %s\n", formatStats(c.Skills))
	if c.TrueWill != "" {
		fmt.Fprintf(&sb, "True will: %s\n", c.TrueWill)
	}
	return sb.String()
}

func formatStats(stats map[string]int) string {
	if len(stats) == 0 {
		return "none recorded"
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, stats[k]))
	}
	return strings.Join(parts, ", ")
}

// EstimateTokens counts prompt tokens with the cl100k_base encoding. Used
// for logging only; the assembler never truncates.
func EstimateTokens(text string) (int, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
