package action

import (
	"github.com/cory-johannsen/idlecombat/internal/game/ai"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// Heal-target thresholds.
const (
	tankHealBelow   = 0.7
	sharedLowHealth = 0.5
	allyHealBelow   = 0.6
)

// HealTarget picks who caster heals among friends:
//   - the tank, when below 70% and either lower than the caster or both below 50%;
//   - otherwise the lowest living friend, when below 60% and lower than the caster;
//   - otherwise the caster itself.
//
// Precondition: caster must be alive.
// Postcondition: Returns a living combatant.
func HealTarget(caster *combat.Combatant, friends []*combat.Combatant) *combat.Combatant {
	self := caster.HealthFraction()
	if tank := combat.FirstWithRole(friends, combat.RoleTank); tank != nil && tank != caster {
		tf := tank.HealthFraction()
		if tf < tankHealBelow && (tf < self || (tf < sharedLowHealth && self < sharedLowHealth)) {
			return tank
		}
	}
	var lowest *combat.Combatant
	for _, f := range combat.Living(friends) {
		if lowest == nil || f.HealthFraction() < lowest.HealthFraction() {
			lowest = f
		}
	}
	if lowest != nil && lowest != caster && lowest.HealthFraction() < allyHealBelow && lowest.HealthFraction() < self {
		return lowest
	}
	return caster
}

// allyTarget picks the hostile an ally acts against: an interruptible caster
// for interrupt abilities, else the primary hostile, else the first living add.
func allyTarget(enc *combat.Encounter, def *combat.AbilityDef) *combat.Combatant {
	living := enc.LivingHostiles()
	if len(living) == 0 {
		return nil
	}
	if def != nil && def.Interrupt {
		for _, h := range living {
			if h.Casting != nil && h.Casting.Interruptible {
				return h
			}
		}
	}
	if p := enc.Primary(); p.IsAlive() {
		return p
	}
	return living[0]
}

func (e *Executor) allySituation(enc *combat.Encounter, a *combat.Combatant) ai.Situation {
	target := allyTarget(enc, nil)
	hh := 0.0
	if target != nil {
		hh = target.HealthFraction()
	}
	return ai.Situation{
		Actor:         a,
		Target:        target,
		Friends:       enc.Allies,
		Opponents:     enc.Hostiles,
		HostileHealth: hh,
		Stance:        e.stance,
		Round:         enc.Round,
		Phase:         enc.Phase,
	}
}

func (e *Executor) hostileSituation(enc *combat.Encounter, h, target *combat.Combatant, st *ai.State) ai.Situation {
	return ai.Situation{
		Actor:         h,
		Target:        target,
		Friends:       enc.Hostiles,
		Opponents:     enc.Allies,
		HostileHealth: h.HealthFraction(),
		State:         st,
		Adaptive:      enc.Phase == combat.PhaseAdaptive,
		Round:         enc.Round,
		Phase:         enc.Phase,
	}
}
