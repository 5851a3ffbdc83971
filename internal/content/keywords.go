package content

import (
	"strings"

	"github.com/aeonisk/arbiter/internal/domain"
)

// gameTerms is the fixed vocabulary scanned for chunk keywords.
var gameTerms = []string{
	"ritual", "void", "soulcredit", "bond", "covenant", "true will",
	"offering", "attunement", "ley line", "aeon", "spirit", "warding",
	"combat", "initiative", "soak", "wound", "armor", "weapon",
	"skill check", "attribute", "difficulty", "margin", "breach",
}

// extractKeywords returns the known game terms present in text, in
// vocabulary order.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range gameTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}

// inferContentType tags a chunk from filename and content keyword matches.
// Filename wins over content so a combat example inside the rituals book
// still files under ritual.
func inferContentType(filename, text string) domain.ContentType {
	name := strings.ToLower(filename)
	if t, ok := typeFromString(name); ok {
		return t
	}
	if t, ok := typeFromString(strings.ToLower(text)); ok {
		return t
	}
	return domain.ContentTypeGeneral
}

func typeFromString(s string) (domain.ContentType, bool) {
	switch {
	case strings.Contains(s, "glossary"):
		return domain.ContentTypeGlossary, true
	case strings.Contains(s, "ritual"):
		return domain.ContentTypeRitual, true
	case strings.Contains(s, "combat") || strings.Contains(s, "initiative") || strings.Contains(s, "soak"):
		return domain.ContentTypeCombat, true
	case strings.Contains(s, "character") || strings.Contains(s, "attribute"):
		return domain.ContentTypeCharacter, true
	case strings.Contains(s, "lore") || strings.Contains(s, "history") || strings.Contains(s, "aeon"):
		return domain.ContentTypeLore, true
	case strings.Contains(s, "mechanic") || strings.Contains(s, "skill check") || strings.Contains(s, "rule"):
		return domain.ContentTypeMechanics, true
	default:
		return "", false
	}
}
