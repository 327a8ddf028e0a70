package ai

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
)

// Situation describes the acting combatant's view of the fight.
type Situation struct {
	Actor     *combat.Combatant
	Target    *combat.Combatant
	Friends   []*combat.Combatant
	Opponents []*combat.Combatant
	// HostileHealth is the health fraction phase gates are checked against.
	HostileHealth float64
	State         *State
	Adaptive      bool
	Stance        Stance
	Round         int
	Phase         combat.Phase
}

// Candidate is a scored usable ability.
type Candidate struct {
	Ability *combat.AbilityDef
	Score   float64
}

// Chooser selects abilities from a Catalog.
type Chooser struct {
	catalog *combat.Catalog
	src     dice.Source
	logger  *zap.Logger
}

// NewChooser creates a Chooser.
//
// Precondition: catalog, src and logger must be non-nil.
func NewChooser(catalog *combat.Catalog, src dice.Source, logger *zap.Logger) *Chooser {
	return &Chooser{catalog: catalog, src: src, logger: logger}
}

// Catalog returns the ability catalog.
func (c *Chooser) Catalog() *combat.Catalog { return c.catalog }

// Usable lists the actor's abilities that pass every gate: known definition,
// no cooldown, affordable cost, health phase gate, chance roll, When expression.
// Unknown ability IDs are skipped.
func (c *Chooser) Usable(sit Situation) []*combat.AbilityDef {
	actor := sit.Actor
	env := gateEnv(sit)
	var out []*combat.AbilityDef
	for _, id := range actor.Abilities {
		def, ok := c.catalog.Get(id)
		if !ok || id == combat.BasicAttackID {
			continue
		}
		if actor.Cooldown(id) > 0 || !actor.CanAfford(def.Cost) {
			continue
		}
		if !gateMatches(def.Gate, sit.HostileHealth) {
			continue
		}
		if def.Chance > 0 && !dice.Check(c.src, "ability:"+id, def.Chance) {
			continue
		}
		if !def.Allows(env) {
			continue
		}
		out = append(out, def)
	}
	return out
}

// Rank scores the usable abilities plus the basic attack, best first.
// Equal scores keep catalog order from the actor's ability list.
func (c *Chooser) Rank(sit Situation) []Candidate {
	usable := c.Usable(sit)
	usable = append(usable, c.catalog.Basic())

	var prev *combat.AbilityDef
	if sit.Actor.LastAbility != "" {
		prev, _ = c.catalog.Get(sit.Actor.LastAbility)
	}

	out := make([]Candidate, 0, len(usable))
	for _, def := range usable {
		out = append(out, Candidate{
			Ability: def,
			Score: Score(ScoreContext{
				Actor:     sit.Actor,
				Ability:   def,
				Previous:  prev,
				Target:    sit.Target,
				Friends:   sit.Friends,
				Opponents: sit.Opponents,
				State:     sit.State,
				Adaptive:  sit.Adaptive,
				Stance:    sit.Stance,
			}),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Choose draws one ability, weighted by score, from the top three candidates.
//
// Postcondition: Returns a non-nil ability; the basic attack when nothing else is usable.
func (c *Chooser) Choose(sit Situation) *combat.AbilityDef {
	ranked := c.Rank(sit)
	top := ranked[:min(3, len(ranked))]
	pick := weightedPick(c.src, top)
	c.logger.Debug("ability chosen",
		zap.String("actor", sit.Actor.ID),
		zap.String("ability", pick.Ability.ID),
		zap.Float64("score", pick.Score),
		zap.Int("candidates", len(ranked)),
	)
	return pick.Ability
}

func weightedPick(src dice.Source, cs []Candidate) Candidate {
	if len(cs) == 1 {
		return cs[0]
	}
	total := 0.0
	for _, c := range cs {
		total += c.Score
	}
	if total <= 0 {
		return cs[dice.Pick(src, len(cs))]
	}
	r := src.Float64() * total
	for _, c := range cs {
		if r < c.Score {
			return c
		}
		r -= c.Score
	}
	return cs[len(cs)-1]
}

func gateMatches(g combat.Gate, hostileHealth float64) bool {
	switch g {
	case combat.GateLow:
		return hostileHealth < 0.5
	case combat.GateHigh:
		return hostileHealth >= 0.5
	default:
		return true
	}
}

func gateEnv(sit Situation) combat.GateEnv {
	a := sit.Actor
	env := combat.GateEnv{
		Round:         sit.Round,
		HealthPct:     a.HealthFraction(),
		ResourcePct:   a.ResourceFraction(),
		TargetHealth:  sit.HostileHealth,
		AlliesAlive:   len(combat.Living(sit.Friends)),
		OpponentsLeft: len(combat.Living(sit.Opponents)),
		Phase:         string(sit.Phase),
	}
	if sit.State != nil {
		env.Enraged = sit.State.Enraged
	}
	if a.Effects != nil {
		for _, e := range a.Effects.All() {
			env.Effects = append(env.Effects, e.Def.ID)
		}
	}
	return env
}

// Plan is one ally's intended ability for the coming turn.
type Plan struct {
	Actor   *combat.Combatant
	Ability *combat.AbilityDef
}

// Coordinate downgrades to the basic attack every plan whose non-basic
// ability was picked by more than two allies.
//
// Postcondition: no non-basic ability appears more than twice in plans.
func Coordinate(plans []Plan, basic *combat.AbilityDef) []Plan {
	counts := make(map[string]int)
	for _, p := range plans {
		if p.Ability.ID != combat.BasicAttackID {
			counts[p.Ability.ID]++
		}
	}
	out := make([]Plan, len(plans))
	for i, p := range plans {
		if counts[p.Ability.ID] > 2 {
			p.Ability = basic
		}
		out[i] = p
	}
	return out
}
