package ai

import (
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
	"github.com/cory-johannsen/idlecombat/internal/game/threat"
)

// Strategy is the closed set of hostile targeting strategies.
type Strategy int

const (
	StrategyDefensive Strategy = iota
	StrategyAggressive
	StrategyTactical
	StrategyDisruptor
	StrategyAntiMagic
	StrategySynergyBreaker
	StrategyPredator
	StrategyBloodlineHunter
	StrategyBoss
)

var strategyNames = map[string]Strategy{
	"defensive":        StrategyDefensive,
	"aggressive":       StrategyAggressive,
	"tactical":         StrategyTactical,
	"disruptor":        StrategyDisruptor,
	"anti_magic":       StrategyAntiMagic,
	"synergy_breaker":  StrategySynergyBreaker,
	"predator":         StrategyPredator,
	"bloodline_hunter": StrategyBloodlineHunter,
	"boss":             StrategyBoss,
}

// ParseStrategy maps a template's strategy name onto the enum.
// Empty and unknown names map to StrategyDefensive.
func ParseStrategy(name string) Strategy {
	if s, ok := strategyNames[name]; ok {
		return s
	}
	return StrategyDefensive
}

// KnownStrategy reports whether name is a recognised strategy.
func KnownStrategy(name string) bool {
	_, ok := strategyNames[name]
	return name == "" || ok
}

// String returns the strategy's template name.
func (s Strategy) String() string {
	for name, v := range strategyNames {
		if v == s {
			return name
		}
	}
	return "defensive"
}

var (
	tacticalPriority = []combat.Role{combat.RoleHealer, combat.RoleDPS, combat.RoleTank}
	bossPriority     = []combat.Role{combat.RoleTank, combat.RoleHealer, combat.RoleDPS}
)

// supportWeight is the base support value of a role for synergy_breaker.
var supportWeight = map[combat.Role]int{
	combat.RoleHealer: 3,
	combat.RoleTank:   2,
	combat.RoleDPS:    1,
}

// Selector picks the ally a hostile acts against.
type Selector struct {
	threat *threat.Table
	src    dice.Source
}

// NewSelector creates a Selector.
//
// Precondition: table and src must be non-nil.
func NewSelector(table *threat.Table, src dice.Source) *Selector {
	return &Selector{threat: table, src: src}
}

// SelectTarget chooses a living ally for hostile. An ignore-threat or enraged
// state overrides the strategy with a uniformly random living ally.
//
// Postcondition: Returns nil only when no ally is alive.
func (s *Selector) SelectTarget(hostile *combat.Combatant, st *State, allies []*combat.Combatant) *combat.Combatant {
	living := combat.Living(allies)
	if len(living) == 0 {
		return nil
	}
	if st != nil && (st.IgnoreThreat || st.Enraged) {
		return living[dice.Pick(s.src, len(living))]
	}

	var pick *combat.Combatant
	switch ParseStrategy(hostile.Strategy) {
	case StrategyAggressive:
		pick = lowestHealth(living)
	case StrategyTactical:
		pick = byRolePriority(living, tacticalPriority)
	case StrategyDisruptor:
		pick = firstCasting(living)
	case StrategyAntiMagic:
		pick = mostResource(living)
	case StrategySynergyBreaker:
		pick = mostSupport(living)
		if pick == nil {
			pick = byRolePriority(living, tacticalPriority)
		}
	case StrategyPredator:
		pick = mostBuffed(living)
	case StrategyBloodlineHunter:
		pick = bloodlinePriority(living)
	case StrategyBoss:
		pick = byRolePriority(living, bossPriority)
	}
	if pick != nil {
		return pick
	}
	return s.highest(hostile.ID, living)
}

// highest is the terminal fallback of every strategy.
func (s *Selector) highest(hostileID string, living []*combat.Combatant) *combat.Combatant {
	if t := s.threat.HighestThreat(hostileID, living); t != nil {
		return t
	}
	return living[0]
}

func lowestHealth(cs []*combat.Combatant) *combat.Combatant {
	var best *combat.Combatant
	for _, c := range cs {
		if best == nil || c.HealthFraction() < best.HealthFraction() {
			best = c
		}
	}
	return best
}

func byRolePriority(cs []*combat.Combatant, order []combat.Role) *combat.Combatant {
	for _, r := range order {
		if c := combat.FirstWithRole(cs, r); c != nil {
			return c
		}
	}
	return nil
}

func firstCasting(cs []*combat.Combatant) *combat.Combatant {
	for _, c := range cs {
		if c.IsCasting() {
			return c
		}
	}
	return nil
}

func mostResource(cs []*combat.Combatant) *combat.Combatant {
	var best *combat.Combatant
	for _, c := range cs {
		if c.CurrentResource > 0 && (best == nil || c.CurrentResource > best.CurrentResource) {
			best = c
		}
	}
	return best
}

// mostSupport scores each ally by role weight plus the party-wide buffs it
// currently grants to the living party.
func mostSupport(cs []*combat.Combatant) *combat.Combatant {
	var best *combat.Combatant
	bestScore := 0
	for _, c := range cs {
		score := supportWeight[c.Role]
		for _, o := range cs {
			score += o.Effects.PartyBuffsFrom(c.ID)
		}
		// Role weight alone is not support; require an active party buff.
		if score > supportWeight[c.Role] && score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func mostBuffed(cs []*combat.Combatant) *combat.Combatant {
	var best *combat.Combatant
	bestCount := 0
	for _, c := range cs {
		if n := c.Effects.BeneficialCount(); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// bloodlinePriority prefers builds about to trigger a rage mechanic (berserker
// traits under half health), then allies that just used a non-basic ability.
func bloodlinePriority(cs []*combat.Combatant) *combat.Combatant {
	var best *combat.Combatant
	bestScore := 0
	for _, c := range cs {
		score := 0
		if c.Traits.Bloodline != "" {
			score++
		}
		if (c.Traits.BerserkerPct > 0 || c.Traits.Bloodline == "berserker") && c.HealthFraction() < 0.5 {
			score += 3
		}
		if c.LastAbility != "" && c.LastAbility != combat.BasicAttackID {
			score++
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
