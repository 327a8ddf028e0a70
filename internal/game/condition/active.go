package condition

import (
	"fmt"
	"math"
	"sort"
)

// ActiveEffect tracks one applied effect on a combatant.
type ActiveEffect struct {
	Def       *EffectDef
	Magnitude float64 // per-stack magnitude; remaining capacity for shields
	Stacks    int
	Remaining int    // ticks remaining; -1 = permanent
	SourceID  string // combatant that applied the effect, if any
}

// ActiveSet tracks all effects currently applied to one combatant.
// It is not safe for concurrent use; the caller must serialise access.
type ActiveSet struct {
	effects map[string]*ActiveEffect
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{effects: make(map[string]*ActiveEffect)}
}

// Apply adds or refreshes an effect.
// magnitude == 0 uses def.Magnitude; duration == 0 uses def.Duration.
// On re-apply stacks increment (capped at MaxStacks; MaxStacks == 0 means one stack),
// Remaining becomes max(existing, duration), and a shield's capacity is topped up
// to the larger of the two pools.
//
// Precondition: def must not be nil.
// Postcondition: Has(def.ID) is true.
func (s *ActiveSet) Apply(def *EffectDef, magnitude float64, duration int, sourceID string) error {
	if def == nil {
		return fmt.Errorf("Apply: def must not be nil")
	}
	if magnitude == 0 {
		magnitude = def.Magnitude
	}
	if duration == 0 {
		duration = def.Duration
	}
	if duration == 0 {
		duration = 1
	}

	maxStacks := def.MaxStacks
	if maxStacks == 0 {
		maxStacks = 1
	}

	if existing, ok := s.effects[def.ID]; ok {
		if existing.Stacks < maxStacks {
			existing.Stacks++
		}
		if existing.Remaining >= 0 && (duration < 0 || duration > existing.Remaining) {
			existing.Remaining = duration
		}
		if math.Abs(magnitude) > math.Abs(existing.Magnitude) {
			existing.Magnitude = magnitude
		}
		existing.SourceID = sourceID
		return nil
	}

	s.effects[def.ID] = &ActiveEffect{
		Def:       def,
		Magnitude: magnitude,
		Stacks:    1,
		Remaining: duration,
		SourceID:  sourceID,
	}
	return nil
}

// Remove deletes the effect with the given ID from the set.
// If the effect is not present, Remove is a no-op.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) {
	delete(s.effects, id)
}

// Clear removes every effect.
func (s *ActiveSet) Clear() {
	clear(s.effects)
}

// TickResult is the outcome of one Process call.
type TickResult struct {
	Damage  int
	Healing int
	Expired []string
}

// Process resolves one tick: damage-over-time and heal-over-time amounts are
// summed (magnitude × stacks, floored), then every timed effect's Remaining is
// decremented and effects reaching 0 are removed.
//
// Postcondition: For every id in Expired, Has(id) is false. Damage, Healing >= 0.
func (s *ActiveSet) Process() TickResult {
	var res TickResult
	for _, id := range s.sortedIDs() {
		ae := s.effects[id]
		amount := int(math.Floor(ae.Magnitude * float64(ae.Stacks)))
		switch ae.Def.Kind {
		case KindDoT:
			if amount > 0 {
				res.Damage += amount
			}
		case KindHoT:
			if amount > 0 {
				res.Healing += amount
			}
		}
		if ae.Remaining < 0 {
			continue
		}
		ae.Remaining--
		if ae.Remaining <= 0 {
			res.Expired = append(res.Expired, id)
			delete(s.effects, id)
		}
	}
	return res
}

// Has reports whether the effect with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	_, ok := s.effects[id]
	return ok
}

// Stacks returns the current stack count for effect id, or 0 if not present.
func (s *ActiveSet) Stacks(id string) int {
	if ae, ok := s.effects[id]; ok {
		return ae.Stacks
	}
	return 0
}

// Len returns the number of active effects.
func (s *ActiveSet) Len() int { return len(s.effects) }

// All returns copies of the active effects ordered by ID.
func (s *ActiveSet) All() []ActiveEffect {
	out := make([]ActiveEffect, 0, len(s.effects))
	for _, id := range s.sortedIDs() {
		out = append(out, *s.effects[id])
	}
	return out
}

// Clone returns an independent copy of the set. Definitions are shared.
func (s *ActiveSet) Clone() *ActiveSet {
	c := NewActiveSet()
	for id, ae := range s.effects {
		cp := *ae
		c.effects[id] = &cp
	}
	return c
}

func (s *ActiveSet) sortedIDs() []string {
	ids := make([]string, 0, len(s.effects))
	for id := range s.effects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
