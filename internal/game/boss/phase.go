// Package boss layers health-driven phases and scripted mechanics (area
// attacks, cleaves, group debuffs, summons) on top of a boss's normal turn.
package boss

// Phase is a boss's health tier.
type Phase string

const (
	Phase1 Phase = "phase1"
	Phase2 Phase = "phase2"
	Phase3 Phase = "phase3"
	Enrage Phase = "enrage"
)

// PhaseFor maps a health fraction onto a phase:
// above 0.75 phase1, above 0.50 phase2, above 0.25 phase3, else enrage.
func PhaseFor(fraction float64) Phase {
	switch {
	case fraction > 0.75:
		return Phase1
	case fraction > 0.50:
		return Phase2
	case fraction > 0.25:
		return Phase3
	default:
		return Enrage
	}
}

// Rank orders phases; an unknown or empty phase ranks 0.
func (p Phase) Rank() int {
	switch p {
	case Phase1:
		return 1
	case Phase2:
		return 2
	case Phase3:
		return 3
	case Enrage:
		return 4
	}
	return 0
}

// Reached reports whether p is at or past floor. An empty floor is always reached.
func (p Phase) Reached(floor Phase) bool {
	return p.Rank() >= floor.Rank()
}
