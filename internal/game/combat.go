package game

import (
	"fmt"

	"github.com/aeonisk/arbiter/internal/domain"
)

// AttackRequest are the arguments for the resolve_attack tool. Defense is
// the full target number; WeaponDamage and Soak shape the damage roll on a
// hit.
type AttackRequest struct {
	Attacker     string `json:"attacker"`
	Skill        string `json:"skill"`
	Defense      int    `json:"defense"`
	WeaponDamage int    `json:"weapon_damage,omitempty"`
	Soak         int    `json:"soak,omitempty"`
}

// AttackResult is the typed outcome of one attack resolution.
type AttackResult struct {
	Attacker     string `json:"attacker"`
	Skill        string `json:"skill"`
	AgilityValue int    `json:"agility_value"`
	SkillValue   int    `json:"skill_value"`
	Ability      int    `json:"ability"`
	Roll         int    `json:"roll"`
	Total        int    `json:"total"`
	Defense      int    `json:"defense"`
	Hit          bool   `json:"hit"`
	Margin       int    `json:"margin"`
	Tier         string `json:"tier"`
	Damage       int    `json:"damage"`
	Formula      string `json:"formula"`
	DefaultsUsed bool   `json:"defaults_used"`
}

// ResolveAttack rolls agility × weapon skill + d20 against the defense
// value. On a hit, damage = strength + weapon damage - soak, floored at
// zero.
func ResolveAttack(c *domain.Character, req AttackRequest, roller Roller) AttackResult {
	agility, agilityOK := c.Attribute(domain.AttrAgility)
	skillValue, skillOK := c.Skill(req.Skill)
	strength, strengthOK := c.Attribute(domain.AttrStrength)

	ability := agility * skillValue
	roll := roller.Roll()
	total := ability + roll
	margin := total - req.Defense
	hit := total >= req.Defense

	damage := 0
	if hit {
		damage = strength + req.WeaponDamage - req.Soak
		if damage < 0 {
			damage = 0
		}
	}

	name := req.Attacker
	if c != nil {
		name = c.Name
	}

	return AttackResult{
		Attacker:     name,
		Skill:        req.Skill,
		AgilityValue: agility,
		SkillValue:   skillValue,
		Ability:      ability,
		Roll:         roll,
		Total:        total,
		Defense:      req.Defense,
		Hit:          hit,
		Margin:       margin,
		Tier:         marginTier(margin),
		Damage:       damage,
		Formula:      fmt.Sprintf("%d × %d + %d = %d vs %d", agility, skillValue, roll, total, req.Defense),
		DefaultsUsed: !agilityOK || !skillOK || !strengthOK,
	}
}
