package condition

import "math"

// Modifiers is the net fractional stat adjustment from active effects.
// An AttackPct of -0.25 means attack is reduced by a quarter.
type Modifiers struct {
	AttackPct  float64
	DefensePct float64
}

// ApplyAttack scales attack by the modifier, flooring at 0.
func (m Modifiers) ApplyAttack(attack int) int {
	return scale(attack, m.AttackPct)
}

// ApplyDefense scales defense by the modifier, flooring at 0.
func (m Modifiers) ApplyDefense(defense int) int {
	return scale(defense, m.DefensePct)
}

func scale(v int, pct float64) int {
	out := int(math.Floor(float64(v) * (1 + pct)))
	if out < 0 {
		return 0
	}
	return out
}

// StatModifiers sums attack and defense modifiers across all active effects,
// multiplied by stack count.
func (s *ActiveSet) StatModifiers() Modifiers {
	var m Modifiers
	for _, ae := range s.effects {
		switch ae.Def.Kind {
		case KindAttackMod:
			m.AttackPct += ae.Magnitude * float64(ae.Stacks)
		case KindDefenseMod:
			m.DefensePct += ae.Magnitude * float64(ae.Stacks)
		}
	}
	return m
}

// Absorb drains incoming damage through active shields in ID order.
// Depleted shields are removed.
//
// Precondition: dmg >= 0.
// Postcondition: remaining + absorbed == dmg; remaining >= 0.
func (s *ActiveSet) Absorb(dmg int) (remaining, absorbed int) {
	remaining = dmg
	for _, id := range s.sortedIDs() {
		if remaining == 0 {
			break
		}
		ae := s.effects[id]
		if ae.Def.Kind != KindShield {
			continue
		}
		pool := int(ae.Magnitude)
		take := min(pool, remaining)
		if take < 0 {
			take = 0
		}
		remaining -= take
		absorbed += take
		ae.Magnitude -= float64(take)
		if ae.Magnitude <= 0 {
			delete(s.effects, id)
		}
	}
	return remaining, absorbed
}

// ShieldRemaining returns the total absorption capacity left.
func (s *ActiveSet) ShieldRemaining() int {
	total := 0
	for _, ae := range s.effects {
		if ae.Def.Kind == KindShield && ae.Magnitude > 0 {
			total += int(ae.Magnitude)
		}
	}
	return total
}

// IsStunned reports whether any stun effect is active.
func (s *ActiveSet) IsStunned() bool {
	for _, ae := range s.effects {
		if ae.Def.Kind == KindStun {
			return true
		}
	}
	return false
}

// BeneficialCount returns the number of active beneficial effects.
func (s *ActiveSet) BeneficialCount() int {
	n := 0
	for _, ae := range s.effects {
		if ae.Def.Beneficial {
			n++
		}
	}
	return n
}

// HarmfulCount returns the number of active non-beneficial effects.
func (s *ActiveSet) HarmfulCount() int {
	return len(s.effects) - s.BeneficialCount()
}

// PartyBuffsFrom counts active party-wide beneficial effects applied by sourceID.
func (s *ActiveSet) PartyBuffsFrom(sourceID string) int {
	n := 0
	for _, ae := range s.effects {
		if ae.Def.Beneficial && ae.Def.PartyWide && ae.SourceID == sourceID {
			n++
		}
	}
	return n
}
