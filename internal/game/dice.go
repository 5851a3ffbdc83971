// Package game implements the Aeonisk/YAGS game mechanics exposed to the
// chat model as callable tools.
package game

import "math/rand/v2"

// Roller produces d20 results. Injected so checks are deterministic under
// test and auditable in play.
type Roller interface {
	Roll() int
}

// RandomRoller is the production d20.
type RandomRoller struct{}

func (RandomRoller) Roll() int {
	return rand.IntN(20) + 1
}

// FixedRoller always returns the same face. Test helper and "forced roll"
// support for worked examples.
type FixedRoller int

func (f FixedRoller) Roll() int {
	return int(f)
}
