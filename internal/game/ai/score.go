package ai

import "github.com/cory-johannsen/idlecombat/internal/game/combat"

// ScoreContext is everything Score looks at for one candidate ability.
type ScoreContext struct {
	Actor     *combat.Combatant
	Ability   *combat.AbilityDef
	Previous  *combat.AbilityDef // last ability used by Actor, may be nil
	Target    *combat.Combatant  // may be nil
	Friends   []*combat.Combatant
	Opponents []*combat.Combatant
	// State is the actor's AI state; nil for allies.
	State *State
	// Adaptive marks a hostile fighting in the adaptive encounter phase.
	Adaptive bool
	// Stance applies to allies only.
	Stance Stance
}

// Score rates a candidate ability in [0, 100].
func Score(ctx ScoreContext) float64 {
	a := ctx.Ability
	score := 50.0
	score += comboBonus(ctx.Previous, a)

	oppHealth := combat.AverageHealth(ctx.Opponents)
	ownHealth := combat.AverageHealth(ctx.Friends)

	switch a.Type {
	case combat.AbilityAttack:
		score += 30 * (1 - oppHealth)
		if ctx.Target != nil && ctx.Target.Effects != nil && ctx.Target.Effects.HarmfulCount() > 0 {
			score += 15
		}
		if len(combat.Living(ctx.Opponents)) > 0 && oppHealth < 0.2 {
			score += 40
		}
	case combat.AbilityDebuff:
		if ctx.Target == nil || ctx.Target.Effects == nil || ctx.Target.Effects.HarmfulCount() == 0 {
			score += 25
		}
		if combat.FirstWithRole(ctx.Opponents, combat.RoleHealer) != nil {
			score += 20
		}
	case combat.AbilityHeal, combat.AbilityBuff:
		score += 30 * (1 - ownHealth)
	}

	if ctx.Adaptive && ctx.State != nil && ctx.State.Adaptation > 1 &&
		(a.Type == combat.AbilityBuff || a.Type == combat.AbilityHeal) {
		score += 20
	}

	if ctx.Actor != nil && ctx.Actor.Side == combat.SideAlly {
		switch ctx.Stance {
		case StanceAggressive:
			if a.Type == combat.AbilityAttack {
				score += 10
			}
		case StanceDefensive:
			if a.Type == combat.AbilityHeal || a.Type == combat.AbilityBuff {
				score += 10
			}
		}
	}

	return min(100, max(0, score))
}

// comboBonus returns the largest combo bonus prev → next earns.
func comboBonus(prev, next *combat.AbilityDef) float64 {
	if prev == nil || next.Type != combat.AbilityAttack {
		return 0
	}
	bonus := 0.0
	if prev.Type == combat.AbilityDebuff {
		bonus = 25
	}
	if prev.IsStun() && next.Multiplier > 1.5 {
		bonus = max(bonus, 30)
	}
	if prev.Type == combat.AbilityAttack && next.Multiplier > 2.0 {
		bonus = max(bonus, 20)
	}
	return bonus
}
