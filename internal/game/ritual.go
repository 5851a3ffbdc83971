package game

import (
	"fmt"

	"github.com/aeonisk/arbiter/internal/domain"
)

const (
	offeringBonus   = 2
	ritualSkillName = "ritual"
)

// RitualRequest are the arguments for the perform_ritual tool.
type RitualRequest struct {
	Character  string `json:"character"`
	Ritual     string `json:"ritual"`
	Difficulty int    `json:"difficulty"`
	// Offering grants a flat bonus; skipping one is legal but risky.
	Offering bool `json:"offering,omitempty"`
}

// RitualResult is the typed outcome of a ritual working.
type RitualResult struct {
	Character    string `json:"character"`
	Ritual       string `json:"ritual"`
	WillValue    int    `json:"will_value"`
	RitualSkill  int    `json:"ritual_skill"`
	Ability      int    `json:"ability"`
	Roll         int    `json:"roll"`
	Offering     bool   `json:"offering"`
	VoidPenalty  int    `json:"void_penalty"`
	Total        int    `json:"total"`
	Difficulty   int    `json:"difficulty"`
	Success      bool   `json:"success"`
	Margin       int    `json:"margin"`
	Tier         string `json:"tier"`
	VoidGained   int    `json:"void_gained"`
	Formula      string `json:"formula"`
	DefaultsUsed bool   `json:"defaults_used"`
}

// PerformRitual resolves a ritual working: will × ritual skill + d20, plus
// the offering bonus, minus the character's current void score. A failed
// working without an offering deepens the void.
func PerformRitual(c *domain.Character, req RitualRequest, roller Roller) RitualResult {
	willValue, willOK := c.Attribute(domain.AttrWill)
	ritualSkill, skillOK := c.Skill(ritualSkillName)

	voidPenalty := 0
	if c != nil {
		voidPenalty = c.VoidScore
	}

	ability := willValue * ritualSkill
	roll := roller.Roll()
	total := ability + roll - voidPenalty
	if req.Offering {
		total += offeringBonus
	}
	margin := total - req.Difficulty
	success := total >= req.Difficulty

	voidGained := 0
	if !success && !req.Offering {
		voidGained = 1
	}

	name := req.Character
	if c != nil {
		name = c.Name
	}

	return RitualResult{
		Character:    name,
		Ritual:       req.Ritual,
		WillValue:    willValue,
		RitualSkill:  ritualSkill,
		Ability:      ability,
		Roll:         roll,
		Offering:     req.Offering,
		VoidPenalty:  voidPenalty,
		Total:        total,
		Difficulty:   req.Difficulty,
		Success:      success,
		Margin:       margin,
		Tier:         marginTier(margin),
		VoidGained:   voidGained,
		Formula:      ritualFormula(willValue, ritualSkill, roll, req.Offering, voidPenalty, total, req.Difficulty),
		DefaultsUsed: !willOK || !skillOK,
	}
}

func ritualFormula(will, skill, roll int, offering bool, voidPenalty, total, difficulty int) string {
	formula := fmt.Sprintf("%d × %d + %d", will, skill, roll)
	if offering {
		formula += fmt.Sprintf(" + %d", offeringBonus)
	}
	if voidPenalty > 0 {
		formula += fmt.Sprintf(" - %d", voidPenalty)
	}
	return fmt.Sprintf("%s = %d vs %d", formula, total, difficulty)
}
