package game

import (
	"fmt"

	"github.com/aeonisk/arbiter/internal/domain"
)

// Margin tiers, in descending order of triumph.
const (
	TierAmazing     = "Amazing success"
	TierExcellent   = "Excellent success"
	TierGood        = "Good success"
	TierSuccess     = "Success"
	TierFailure     = "Failure"
	TierBadFailure  = "Bad failure"
	TierCatastrophe = "Catastrophic failure"
)

// SkillCheckRequest are the arguments for the roll_skill_check tool.
type SkillCheckRequest struct {
	Character  string `json:"character"`
	Attribute  string `json:"attribute"`
	Skill      string `json:"skill"`
	Difficulty int    `json:"difficulty"`
	Modifier   int    `json:"modifier,omitempty"`
}

// SkillCheckResult is the typed outcome of a skill check.
type SkillCheckResult struct {
	Character      string `json:"character"`
	Attribute      string `json:"attribute"`
	AttributeValue int    `json:"attribute_value"`
	Skill          string `json:"skill"`
	SkillValue     int    `json:"skill_value"`
	Ability        int    `json:"ability"`
	Roll           int    `json:"roll"`
	Modifier       int    `json:"modifier,omitempty"`
	Total          int    `json:"total"`
	Difficulty     int    `json:"difficulty"`
	Success        bool   `json:"success"`
	Margin         int    `json:"margin"`
	Tier           string `json:"tier"`
	Formula        string `json:"formula"`
	// DefaultsUsed is set when the character or one of its stats was
	// unknown and ruleset defaults filled in. Surfaced so the caller can
	// tell the player instead of silently rolling a stranger's dice.
	DefaultsUsed bool `json:"defaults_used"`
}

// RollSkillCheck computes ability = attribute × skill and
// total = ability + d20 + modifier against the difficulty. A nil character
// or missing stat falls back to ruleset defaults and flags the result.
func RollSkillCheck(c *domain.Character, req SkillCheckRequest, roller Roller) SkillCheckResult {
	attrValue, attrOK := c.Attribute(req.Attribute)
	skillValue, skillOK := c.Skill(req.Skill)

	ability := attrValue * skillValue
	roll := roller.Roll()
	total := ability + roll + req.Modifier
	margin := total - req.Difficulty

	name := req.Character
	if c != nil {
		name = c.Name
	}

	return SkillCheckResult{
		Character:      name,
		Attribute:      req.Attribute,
		AttributeValue: attrValue,
		Skill:          req.Skill,
		SkillValue:     skillValue,
		Ability:        ability,
		Roll:           roll,
		Modifier:       req.Modifier,
		Total:          total,
		Difficulty:     req.Difficulty,
		Success:        total >= req.Difficulty,
		Margin:         margin,
		Tier:           marginTier(margin),
		Formula:        formatFormula(attrValue, skillValue, roll, req.Modifier, total, req.Difficulty),
		DefaultsUsed:   !attrOK || !skillOK,
	}
}

func marginTier(margin int) string {
	switch {
	case margin >= 30:
		return TierAmazing
	case margin >= 20:
		return TierExcellent
	case margin >= 10:
		return TierGood
	case margin >= 0:
		return TierSuccess
	case margin > -10:
		return TierFailure
	case margin > -20:
		return TierBadFailure
	default:
		return TierCatastrophe
	}
}

func formatFormula(attr, skill, roll, modifier, total, difficulty int) string {
	if modifier != 0 {
		return fmt.Sprintf("%d × %d + %d %+d = %d vs %d", attr, skill, roll, modifier, total, difficulty)
	}
	return fmt.Sprintf("%d × %d + %d = %d vs %d", attr, skill, roll, total, difficulty)
}
