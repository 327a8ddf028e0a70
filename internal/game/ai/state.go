// Package ai decides, for every acting combatant, whom to target and which
// ability to use.
package ai

import (
	"time"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// MaxAdaptation caps the adaptation level of an adaptive hostile.
const MaxAdaptation = 3

// EnrageThreshold is the health fraction at or below which a hostile enrages.
const EnrageThreshold = 0.25

// State is the per-hostile AI state for one bout.
type State struct {
	// Phase is the hostile's behavioural tier label (boss phase name for bosses).
	Phase string
	// Adaptation grows with elapsed bout time, 0..MaxAdaptation.
	Adaptation int
	// IgnoreThreat forces uniformly random targeting.
	IgnoreThreat bool
	Enraged      bool
	LastAbility  string
	// CrowdControl counts stuns and interrupts received this bout.
	CrowdControl int
}

// Update advances the state after a round: adaptation from elapsed time,
// early adaptation from crowd control, and the one-way enrage transition.
//
// Precondition: interval > 0.
// Postcondition: Returns true only on the update that first sets Enraged.
// Enraged and IgnoreThreat, once set, are never cleared.
func (s *State) Update(hostile *combat.Combatant, elapsed, interval time.Duration) bool {
	level := 0
	if interval > 0 {
		level = int(elapsed / interval)
	}
	// Every three stuns or interrupts buys the hostile one level early.
	level = max(level, s.CrowdControl/3)
	s.Adaptation = max(s.Adaptation, min(MaxAdaptation, level))

	if s.Enraged || !hostile.IsAlive() {
		return false
	}
	if hostile.HealthFraction() <= EnrageThreshold {
		s.Enraged = true
		s.IgnoreThreat = true
		return true
	}
	return false
}

// NoteCrowdControl records a stun or interrupt received.
func (s *State) NoteCrowdControl() { s.CrowdControl++ }
