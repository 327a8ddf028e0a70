package action

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// DetailOverTime tags damage and healing produced by status effects.
const DetailOverTime = "over_time"

// TickStatus resolves one tick of c's status effects through the resolver's
// effect store: damage over time, then healing over time, then duration
// decrement and expiry. A running cast counts down by one. Dead combatants
// are skipped.
//
// Postcondition: a combatant killed by damage over time is reported defeated exactly once.
func (e *Executor) TickStatus(enc *combat.Encounter, c *combat.Combatant) {
	if !c.IsAlive() {
		return
	}
	if c.Casting != nil && c.Casting.Remaining > 0 {
		c.Casting.Remaining--
	}
	res := e.Resolver.Store().Process(c)
	if res.Damage > 0 {
		dealt, died := c.ApplyDamage(res.Damage)
		if dealt > 0 {
			e.publish(enc, combat.EventDamageTaken, c, c, dealt, "", DetailOverTime)
		}
		if died {
			e.defeated(enc, c, c)
			return
		}
	}
	if res.Healing > 0 {
		if healed := c.Heal(res.Healing); healed > 0 {
			e.publish(enc, combat.EventHeal, c, c, healed, "", DetailOverTime)
		}
	}
	if len(res.Expired) > 0 {
		e.Logger.Debug("status effects expired",
			zap.String("id", c.ID),
			zap.Strings("effects", res.Expired),
		)
	}
}
