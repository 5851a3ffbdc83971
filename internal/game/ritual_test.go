package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aeonisk/arbiter/internal/domain"
)

func TestPerformRitualWithOffering(t *testing.T) {
	result := PerformRitual(testCharacter(), RitualRequest{
		Character:  "Kestrel",
		Ritual:     "warding circle",
		Difficulty: 20,
		Offering:   true,
	}, FixedRoller(8))

	// 4 × 3 + 8 + 2 = 22
	assert.Equal(t, 12, result.Ability)
	assert.Equal(t, 22, result.Total)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.VoidGained)
	assert.Equal(t, "4 × 3 + 8 + 2 = 22 vs 20", result.Formula)
}

func TestPerformRitualFailureWithoutOfferingGainsVoid(t *testing.T) {
	result := PerformRitual(testCharacter(), RitualRequest{
		Character:  "Kestrel",
		Ritual:     "summoning",
		Difficulty: 30,
	}, FixedRoller(4))

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.VoidGained)
}

func TestPerformRitualFailureWithOfferingIsSafe(t *testing.T) {
	result := PerformRitual(testCharacter(), RitualRequest{
		Character:  "Kestrel",
		Ritual:     "summoning",
		Difficulty: 30,
		Offering:   true,
	}, FixedRoller(4))

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.VoidGained)
}

func TestPerformRitualVoidPenalty(t *testing.T) {
	character := testCharacter()
	character.VoidScore = 3

	result := PerformRitual(character, RitualRequest{
		Character:  "Kestrel",
		Ritual:     "attunement",
		Difficulty: 15,
	}, FixedRoller(10))

	// 4 × 3 + 10 - 3 = 19
	assert.Equal(t, 3, result.VoidPenalty)
	assert.Equal(t, 19, result.Total)
	assert.Equal(t, "4 × 3 + 10 - 3 = 19 vs 15", result.Formula)
}

func TestPerformRitualUnknownCharacter(t *testing.T) {
	result := PerformRitual(nil, RitualRequest{
		Character:  "Nobody",
		Ritual:     "blessing",
		Difficulty: 10,
	}, FixedRoller(6))

	assert.Equal(t, domain.DefaultAttributeValue, result.WillValue)
	assert.Equal(t, domain.DefaultSkillValue, result.RitualSkill)
	assert.True(t, result.DefaultsUsed)
}
