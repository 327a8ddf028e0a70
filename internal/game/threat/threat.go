// Package threat tracks, per encounter, how much attention each ally has drawn
// from each hostile.
package threat

import (
	"math"
	"sync"
	"time"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// Config controls time-based decay.
type Config struct {
	// DecayInterval is the wall-clock period of one decay step.
	DecayInterval time.Duration
	// DecayFactor multiplies every value once per step.
	DecayFactor float64
}

// DefaultConfig decays by 5% once per second.
func DefaultConfig() Config {
	return Config{DecayInterval: time.Second, DecayFactor: 0.95}
}

// bloodlineThreat is the apparent danger of recognised bloodline markers.
var bloodlineThreat = map[string]int{
	"berserker":   10,
	"vampire":     10,
	"stormcaller": 6,
	"dragonborn":  6,
}

// Table maps hostile ID → ally ID → non-negative threat for one encounter.
//
// Table is safe for concurrent use.
type Table struct {
	mu        sync.Mutex
	cfg       Config
	entries   map[string]map[string]int
	lastDecay time.Time
}

// NewTable creates an empty Table.
//
// Precondition: cfg.DecayInterval > 0; 0 < cfg.DecayFactor <= 1.
func NewTable(cfg Config) *Table {
	return &Table{cfg: cfg, entries: make(map[string]map[string]int)}
}

// Initialize creates a zero entry against hostileID for every living ally.
// Existing values are kept, so re-initializing only adds newcomers.
//
// Postcondition: Threat(hostileID, a.ID) is defined for every living ally a.
func (t *Table) Initialize(hostileID string, allies []*combat.Combatant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.entries[hostileID]
	if !ok {
		row = make(map[string]int, len(allies))
		t.entries[hostileID] = row
	}
	for _, a := range allies {
		if !a.IsAlive() {
			continue
		}
		if _, ok := row[a.ID]; !ok {
			row[a.ID] = 0
		}
	}
}

// Initialized reports whether hostileID has a row.
func (t *Table) Initialized(hostileID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[hostileID]
	return ok
}

// Add raises allyID's threat on hostileID by floor(amount × multiplier).
// A negative product lowers threat, clamped at zero.
//
// Postcondition: Returns false, changing nothing, when hostileID was never initialized.
// Stored threat >= 0.
func (t *Table) Add(hostileID, allyID string, amount int, multiplier float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.entries[hostileID]
	if !ok {
		return false
	}
	delta := int(math.Floor(float64(amount) * multiplier))
	row[allyID] = max(0, row[allyID]+delta)
	return true
}

// Reduce lowers allyID's threat on hostileID by an absolute amount or, when
// isPercentage is set, by that fraction of the current value (0.25 == 25%).
//
// Postcondition: Stored threat >= 0.
func (t *Table) Reduce(hostileID, allyID string, amount float64, isPercentage bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.entries[hostileID]
	if !ok {
		return false
	}
	cur, ok := row[allyID]
	if !ok {
		return false
	}
	if amount < 0 {
		amount = 0
	}
	var next int
	if isPercentage {
		next = int(math.Floor(float64(cur) * (1 - math.Min(amount, 1))))
	} else {
		next = cur - int(math.Floor(amount))
	}
	row[allyID] = max(0, next)
	return true
}

// Threat returns the tracked threat, or 0 for unknown pairs.
func (t *Table) Threat(hostileID, allyID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[hostileID][allyID]
}

// Snapshot returns a copy of hostileID's row.
func (t *Table) Snapshot(hostileID string) map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.entries[hostileID]))
	for k, v := range t.entries[hostileID] {
		out[k] = v
	}
	return out
}

// PowerThreat is the apparent danger of an ally's build, independent of
// accumulated threat.
//
// Postcondition: Returns >= 0.
func PowerThreat(a *combat.Combatant) int {
	bonus := 0
	if a.Traits.LifeSteal > 0 {
		bonus += int(a.Traits.LifeSteal * 50)
	}
	if a.Traits.StunChance > 0 {
		bonus += int(a.Traits.StunChance * 50)
	}
	bonus += bloodlineThreat[a.Traits.Bloodline]
	if a.Role == combat.RoleHealer {
		bonus += 5
	}
	return bonus
}

// Combined returns tracked threat plus PowerThreat.
func (t *Table) Combined(hostileID string, a *combat.Combatant) int {
	return t.Threat(hostileID, a.ID) + PowerThreat(a)
}

// HighestThreat returns the living ally with the greatest combined threat
// against hostileID. Ties go to the ally that comes first in allies.
//
// Postcondition: Returns nil only when no ally in allies is alive.
func (t *Table) HighestThreat(hostileID string, allies []*combat.Combatant) *combat.Combatant {
	var best *combat.Combatant
	bestScore := -1
	for _, a := range allies {
		if !a.IsAlive() {
			continue
		}
		if s := t.Combined(hostileID, a); s > bestScore {
			best, bestScore = a, s
		}
	}
	return best
}

// StartDecay anchors the decay clock at now.
func (t *Table) StartDecay(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastDecay = now
}

// Decay applies one multiplicative, floored decay step for every full
// DecayInterval elapsed since the last step, independent of round count.
//
// Postcondition: Returns the number of steps applied; every value stays >= 0.
func (t *Table) Decay(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastDecay.IsZero() {
		t.lastDecay = now
		return 0
	}
	if t.cfg.DecayInterval <= 0 {
		return 0
	}
	steps := int(now.Sub(t.lastDecay) / t.cfg.DecayInterval)
	if steps <= 0 {
		return 0
	}
	t.lastDecay = t.lastDecay.Add(time.Duration(steps) * t.cfg.DecayInterval)
	for i := 0; i < steps; i++ {
		nonZero := false
		for _, row := range t.entries {
			for id, v := range row {
				row[id] = int(math.Floor(float64(v) * t.cfg.DecayFactor))
				if row[id] > 0 {
					nonZero = true
				}
			}
		}
		if !nonZero {
			break
		}
	}
	return steps
}

// Clear drops hostileID's row, e.g. when that hostile is defeated.
func (t *Table) Clear(hostileID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, hostileID)
}

// Reset drops every row and the decay anchor.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.entries)
	t.lastDecay = time.Time{}
}
