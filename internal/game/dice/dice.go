// Package dice provides the randomness abstraction shared by every combat
// component: uniform integers, probability rolls, and dice expressions.
package dice

import "fmt"

// RollResult holds the full audit trail for a single dice roll evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression string, e.g. "2d6+3"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
//
// Postcondition: return value == sum(r.Dice) + r.Modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → [4 5] +3 = 12"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Source is the randomness provider for every combat roll.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// Chance reports whether a roll against probability p succeeds.
// p <= 0 never succeeds and p >= 1 always succeeds; neither consumes randomness.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Spread returns a factor drawn uniformly from [1-v, 1+v).
//
// Precondition: 0 <= v < 1.
func Spread(src Source, v float64) float64 {
	if v <= 0 {
		return 1
	}
	return 1 - v + src.Float64()*2*v
}

// Pick returns a uniformly chosen index in [0, n), or -1 when n <= 0.
func Pick(src Source, n int) int {
	if n <= 0 {
		return -1
	}
	return src.Intn(n)
}

// Check rolls against probability p like Chance. When src is a *Roller the
// roll is logged under label.
func Check(src Source, label string, p float64) bool {
	if r, ok := src.(*Roller); ok {
		return r.Check(label, p)
	}
	return Chance(src, p)
}
