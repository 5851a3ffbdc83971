package domain

import (
	"strings"
	"time"
)

// Default stat values used when a character or one of its stats is unknown.
// Callers that fall back to these must surface the fact to the user.
const (
	DefaultAttributeValue = 3
	DefaultSkillValue     = 2
)

// Attribute names recognized by the ruleset.
const (
	AttrStrength     = "strength"
	AttrHealth       = "health"
	AttrAgility      = "agility"
	AttrDexterity    = "dexterity"
	AttrPerception   = "perception"
	AttrIntelligence = "intelligence"
	AttrEmpathy      = "empathy"
	AttrWill         = "will"
)

// Attributes lists the eight core attributes in canonical order.
var Attributes = []string{
	AttrStrength, AttrHealth, AttrAgility, AttrDexterity,
	AttrPerception, AttrIntelligence, AttrEmpathy, AttrWill,
}

// Character is one entry in the character registry.
type Character struct {
	ID         string
	Name       string
	Concept    string
	TrueWill   string
	VoidScore  int
	Soulcredit int
	Attributes map[string]int
	Skills     map[string]int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Attribute returns the named attribute value, or the ruleset default when
// the character does not define it. ok is false on fallback.
func (c *Character) Attribute(name string) (value int, ok bool) {
	if c == nil {
		return DefaultAttributeValue, false
	}
	v, found := c.Attributes[normalizeStatName(name)]
	if !found {
		return DefaultAttributeValue, false
	}
	return v, true
}

// Skill returns the named skill value, or the ruleset default when the
// character does not have it. ok is false on fallback.
func (c *Character) Skill(name string) (value int, ok bool) {
	if c == nil {
		return DefaultSkillValue, false
	}
	v, found := c.Skills[normalizeStatName(name)]
	if !found {
		return DefaultSkillValue, false
	}
	return v, true
}

func normalizeStatName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks structural invariants before persisting a character.
func (c *Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrMissingRequiredField
	}
	for name, v := range c.Attributes {
		if v < 1 || v > 10 {
			return Errorf(ErrCodeValidation, "attribute %q out of range", name)
		}
	}
	for name, v := range c.Skills {
		if v < 0 || v > 10 {
			return Errorf(ErrCodeValidation, "skill %q out of range", name)
		}
	}
	if c.VoidScore < 0 || c.VoidScore > 10 {
		return NewDomainError(ErrCodeValidation, "void score out of range")
	}
	return nil
}
