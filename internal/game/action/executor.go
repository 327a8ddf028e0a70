// Package action executes the abilities chosen by the AI: it pays costs,
// starts and interrupts casts, and routes damage, healing, and status effects
// through the resolver, the threat table, and the event publisher.
package action

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/ai"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/condition"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
	"github.com/cory-johannsen/idlecombat/internal/game/threat"
)

// DamageHook may rewrite a hit's damage before it lands. A scripting layer
// implements it; the returned amount is clamped at zero.
type DamageHook interface {
	OnDamage(attackerID, targetID string, amount int) int
}

// Config holds execution tuning.
type Config struct {
	// InterruptCooldown is the cooldown, in rounds, put on an interrupted ability.
	InterruptCooldown int
	// BuffDuration is used when an ability names no effect duration.
	BuffDuration int
}

// DefaultConfig returns a 10 round interrupt penalty and 3 round buffs.
func DefaultConfig() Config {
	return Config{InterruptCooldown: 10, BuffDuration: 3}
}

// Deps are the collaborators an Executor drives. Threat and States are
// scoped to one bout.
type Deps struct {
	Catalog   *combat.Catalog
	Effects   *condition.Registry
	Resolver  *combat.Resolver
	Threat    *threat.Table
	States    *ai.Registry
	Chooser   *ai.Chooser
	Selector  *ai.Selector
	Publisher combat.Publisher
	Source    dice.Source
	Hook      DamageHook // may be nil
	Logger    *zap.Logger
}

// Outcome describes what one combatant did on its turn.
type Outcome struct {
	Ability *combat.AbilityDef // nil when the turn was skipped
	Skipped bool               // stunned, dead, or without a target
	Casting bool               // a cast started or is still in progress
}

// Personal reports whether the turn used a non-basic ability.
func (o Outcome) Personal() bool {
	return o.Ability != nil && o.Ability.ID != combat.BasicAttackID
}

// Executor resolves turns for one bout.
//
// It is not safe for concurrent use; the orchestrator's tick serialises access.
type Executor struct {
	Deps
	cfg    Config
	stance ai.Stance
}

// New creates an Executor.
//
// Precondition: every field of deps except Hook must be non-nil.
func New(cfg Config, deps Deps) *Executor {
	return &Executor{Deps: deps, cfg: cfg, stance: ai.StanceBalanced}
}

// SetStance fixes the party stance for the current tick.
func (e *Executor) SetStance(st ai.Stance) { e.stance = st }

// Stance returns the stance in effect.
func (e *Executor) Stance() ai.Stance { return e.stance }

// PrepareTurn decrements c's cooldowns and regenerates its resource.
func (e *Executor) PrepareTurn(c *combat.Combatant) {
	c.TickCooldowns()
	c.Regenerate()
}

// PlanParty prepares every living ally and simulates the ability each would
// pick, then downgrades crowded picks to the basic attack. Stunned allies
// are left out of the plan.
//
// Postcondition: no non-basic ability appears more than twice in the result.
func (e *Executor) PlanParty(enc *combat.Encounter) []ai.Plan {
	var plans []ai.Plan
	for _, a := range enc.LivingAllies() {
		e.PrepareTurn(a)
		if a.IsStunned() {
			continue
		}
		plans = append(plans, ai.Plan{Actor: a, Ability: e.Chooser.Choose(e.allySituation(enc, a))})
	}
	return ai.Coordinate(plans, e.Catalog.Basic())
}

// ActParty runs the ally turn: plan, then execute each plan in party order.
// Allies that die or are stunned before their slot comes up are skipped.
func (e *Executor) ActParty(enc *combat.Encounter) []Outcome {
	var out []Outcome
	for _, a := range enc.LivingAllies() {
		if a.IsStunned() {
			e.publish(enc, combat.EventStunned, a, a, 0, "", condition.Stunned)
			out = append(out, Outcome{Skipped: true})
		}
	}
	for _, p := range e.PlanParty(enc) {
		if enc.Ended() {
			break
		}
		out = append(out, e.ActAlly(enc, p.Actor, p.Ability))
	}
	return out
}

// ActAlly executes def for ally a against the hostile side.
// Dead actors and turns with no living hostile are skipped.
func (e *Executor) ActAlly(enc *combat.Encounter, a *combat.Combatant, def *combat.AbilityDef) Outcome {
	if !a.IsAlive() {
		return Outcome{Skipped: true}
	}
	target := allyTarget(enc, def)
	if target == nil && (def.Type == combat.AbilityAttack || def.Type == combat.AbilityDebuff) {
		return Outcome{Skipped: true}
	}
	e.execute(enc, a, def, target, nil)
	return Outcome{Ability: def}
}

// ActHostile runs h's turn: stun check, cast progress, target selection,
// ability choice, and execution.
//
// Postcondition: a cast-time ability leaves h.Casting set instead of resolving.
func (e *Executor) ActHostile(enc *combat.Encounter, h *combat.Combatant) Outcome {
	if !h.IsAlive() {
		return Outcome{Skipped: true}
	}
	st := e.States.Ensure(h.ID)
	e.PrepareTurn(h)

	if h.IsStunned() {
		e.publish(enc, combat.EventStunned, h, h, 0, "", condition.Stunned)
		return Outcome{Skipped: true}
	}

	if h.Casting != nil {
		return e.continueCast(enc, h, st)
	}

	target := e.Selector.SelectTarget(h, st, enc.Allies)
	if target == nil {
		return Outcome{Skipped: true}
	}
	def := e.Chooser.Choose(e.hostileSituation(enc, h, target, st))

	if def.CastTime > 0 {
		if !h.Spend(def.Cost) {
			def = e.Catalog.Basic()
		} else {
			h.SetCooldown(def.ID, def.Cooldown)
			h.Casting = &combat.Cast{
				AbilityID:     def.ID,
				Remaining:     def.CastTime,
				Interruptible: !def.Uninterruptible,
				TargetID:      target.ID,
			}
			e.publish(enc, combat.EventCastStarted, h, target, def.CastTime, def.ID, "")
			e.Logger.Debug("cast started",
				zap.String("hostile", h.ID),
				zap.String("ability", def.ID),
				zap.Int("rounds", def.CastTime),
			)
			return Outcome{Ability: def, Casting: true}
		}
	}
	e.execute(enc, h, def, target, st)
	return Outcome{Ability: def}
}

// continueCast resolves a finished cast, or waits while rounds remain.
// The cost and cooldown were paid when the cast started.
func (e *Executor) continueCast(enc *combat.Encounter, h *combat.Combatant, st *ai.State) Outcome {
	cast := h.Casting
	if cast.Remaining > 0 {
		return Outcome{Casting: true}
	}
	h.Casting = nil
	def, ok := e.Catalog.Get(cast.AbilityID)
	if !ok {
		def = e.Catalog.Basic()
	}
	target := enc.Find(cast.TargetID)
	if !target.IsAlive() {
		target = e.Selector.SelectTarget(h, st, enc.Allies)
	}
	if target == nil {
		return Outcome{Skipped: true}
	}
	e.resolve(enc, h, def, target)
	e.remember(h, def, st)
	return Outcome{Ability: def}
}

// execute pays def's cost and cooldown, then resolves it. An unaffordable
// ability degrades to the basic attack.
func (e *Executor) execute(enc *combat.Encounter, actor *combat.Combatant, def *combat.AbilityDef, target *combat.Combatant, st *ai.State) {
	if !actor.Spend(def.Cost) {
		def = e.Catalog.Basic()
		if target == nil {
			target = allyTarget(enc, def)
		}
	}
	actor.SetCooldown(def.ID, def.Cooldown)
	e.resolve(enc, actor, def, target)
	e.remember(actor, def, st)
}

func (e *Executor) remember(actor *combat.Combatant, def *combat.AbilityDef, st *ai.State) {
	actor.LastAbility = def.ID
	if st != nil {
		st.LastAbility = def.ID
	}
}

// resolve applies def's effect by type. AoE attacks and debuffs hit every
// living opponent; AoE heals and buffs cover every living friend.
func (e *Executor) resolve(enc *combat.Encounter, actor *combat.Combatant, def *combat.AbilityDef, target *combat.Combatant) {
	switch def.Type {
	case combat.AbilityAttack:
		targets := []*combat.Combatant{target}
		if def.AoE {
			targets = enc.Opponents(actor)
		}
		for _, t := range targets {
			if t == nil || !t.IsAlive() {
				continue
			}
			if def.Interrupt && actor.Side == combat.SideAlly && e.Interrupt(enc, actor, t) {
				continue
			}
			e.Strike(enc, actor, t, e.attackValue(actor, def), def.ID)
			if def.Effect != "" && t.IsAlive() {
				e.ApplyEffect(enc, actor, t, def.Effect, def.EffectMagnitude, def.EffectDuration)
			}
		}

	case combat.AbilityHeal:
		targets := []*combat.Combatant{HealTarget(actor, enc.Friends(actor))}
		if def.AoE {
			targets = enc.Friends(actor)
		}
		base := e.attackValue(actor, def)
		for _, t := range targets {
			healed := e.Resolver.ResolveHeal(actor, t, base)
			if healed > 0 {
				e.publish(enc, combat.EventHeal, actor, t, healed, def.ID, "")
			}
		}

	case combat.AbilityBuff:
		targets := []*combat.Combatant{actor}
		if def.AoE {
			targets = enc.Friends(actor)
		}
		for _, t := range targets {
			e.ApplyEffect(enc, actor, t, def.Effect, def.EffectMagnitude, e.duration(def))
		}

	case combat.AbilityDebuff:
		targets := []*combat.Combatant{target}
		if def.AoE {
			targets = enc.Opponents(actor)
		}
		for _, t := range targets {
			if t == nil || !t.IsAlive() {
				continue
			}
			e.ApplyEffect(enc, actor, t, def.Effect, def.EffectMagnitude, e.duration(def))
		}
	}
}

func (e *Executor) duration(def *combat.AbilityDef) int {
	if def.EffectDuration > 0 {
		return def.EffectDuration
	}
	return e.cfg.BuffDuration
}

// attackValue is floor(Attack × multiplier) plus any rolled bonus dice.
func (e *Executor) attackValue(actor *combat.Combatant, def *combat.AbilityDef) int {
	mult := def.Multiplier
	if mult == 0 {
		mult = 1
	}
	v := int(math.Floor(float64(actor.Attack) * mult))
	if expr := def.BonusExpr(); expr != nil {
		if r, ok := e.Source.(*dice.Roller); ok {
			v += r.Roll(*expr).Total()
		} else {
			v += dice.Roll(*expr, e.Source).Total()
		}
	}
	return max(0, v)
}

// Strike resolves one hit of attack against target and applies every
// consequence: events, the damage hook, threat, life-steal, the stun trait,
// and death handling.
//
// Postcondition: a hostile target that dies has its threat row cleared and a
// hostile-defeated event published exactly once.
func (e *Executor) Strike(enc *combat.Encounter, actor, target *combat.Combatant, attack int, abilityID string) {
	if !actor.IsAlive() || !target.IsAlive() {
		return
	}
	res := e.Resolver.ResolveDamage(combat.DamageInput{
		Attack:   attack,
		Defense:  target.Defense,
		Attacker: actor,
		Defender: target,
	})
	if res.Missed {
		e.publish(enc, combat.EventMiss, actor, target, 0, abilityID, "")
		return
	}
	if res.Absorbed > 0 {
		e.publish(enc, combat.EventShieldAbsorb, actor, target, res.Absorbed, abilityID, "")
	}

	amount := res.Amount
	if e.Hook != nil {
		amount = max(0, e.Hook.OnDamage(actor.ID, target.ID, amount))
	}
	dealt, died := target.ApplyDamage(amount)

	if res.Critical {
		detail := ""
		if res.DoubleCritical {
			detail = "double"
		}
		e.publish(enc, combat.EventCriticalHit, actor, target, dealt, abilityID, detail)
	}
	e.publish(enc, combat.EventDamageDealt, actor, target, dealt, abilityID, "")
	e.publish(enc, combat.EventDamageTaken, actor, target, dealt, abilityID, "")

	if actor.Side == combat.SideAlly && target.Side == combat.SideHostile && dealt > 0 {
		mult := ai.RoleThreatMultiplier(actor.Role) * e.stance.ThreatMultiplier()
		e.Threat.Add(target.ID, actor.ID, dealt, mult)
	}

	if ls := actor.Traits.LifeSteal; ls > 0 && dealt > 0 {
		if healed := actor.Heal(int(math.Floor(float64(dealt) * ls))); healed > 0 {
			e.publish(enc, combat.EventHeal, actor, actor, healed, abilityID, "life_steal")
		}
	}

	if died {
		e.defeated(enc, actor, target)
		return
	}
	if dealt > 0 && dice.Check(e.Source, "stun:"+actor.ID, actor.Traits.StunChance) {
		e.ApplyEffect(enc, actor, target, condition.Stunned, 0, 0)
	}
}

func (e *Executor) defeated(enc *combat.Encounter, killer, c *combat.Combatant) {
	if c.Side == combat.SideHostile {
		e.Threat.Clear(c.ID)
		e.publish(enc, combat.EventHostileDefeated, killer, c, 0, "", "")
	} else {
		e.publish(enc, combat.EventAllyDefeated, killer, c, 0, "", "")
	}
	e.Logger.Debug("combatant defeated",
		zap.String("id", c.ID),
		zap.String("side", c.Side.String()),
		zap.Int("round", enc.Round),
	)
}

// Interrupt cancels target's cast when it is interruptible and puts the cast
// ability on the interrupt cooldown.
//
// Postcondition: Returns true when a cast was cancelled; target.Casting is then nil.
func (e *Executor) Interrupt(enc *combat.Encounter, actor, target *combat.Combatant) bool {
	cast := target.Casting
	if cast == nil || !cast.Interruptible {
		return false
	}
	target.Casting = nil
	target.SetCooldown(cast.AbilityID, max(target.Cooldown(cast.AbilityID), e.cfg.InterruptCooldown))
	if target.Side == combat.SideHostile {
		e.States.Ensure(target.ID).NoteCrowdControl()
	}
	e.publish(enc, combat.EventCastInterrupted, actor, target, 0, cast.AbilityID, "")
	e.Logger.Debug("cast interrupted",
		zap.String("by", actor.ID),
		zap.String("target", target.ID),
		zap.String("ability", cast.AbilityID),
	)
	return true
}

// ApplyEffect puts effectID on target. Unknown effects are logged and skipped.
// A stun counts as crowd control against hostiles and breaks an interruptible cast.
func (e *Executor) ApplyEffect(enc *combat.Encounter, source, target *combat.Combatant, effectID string, magnitude float64, duration int) {
	def, ok := e.Effects.Get(effectID)
	if !ok {
		e.Logger.Warn("unknown status effect", zap.String("effect", effectID))
		return
	}
	if err := target.Effects.Apply(def, magnitude, duration, source.ID); err != nil {
		e.Logger.Warn("applying status effect", zap.String("effect", effectID), zap.Error(err))
		return
	}
	e.publish(enc, combat.EventEffectApplied, source, target, 0, "", def.ID)
	if def.Kind != condition.KindStun {
		return
	}
	e.publish(enc, combat.EventStunned, source, target, 0, "", def.ID)
	if target.Side == combat.SideHostile {
		e.States.Ensure(target.ID).NoteCrowdControl()
	}
	if target.Casting != nil && target.Casting.Interruptible {
		e.Interrupt(enc, source, target)
	}
}

func (e *Executor) publish(enc *combat.Encounter, t combat.EventType, source, target *combat.Combatant, amount int, abilityID, detail string) {
	e.Publisher.Publish(combat.Event{
		Type:        t,
		EncounterID: enc.ID,
		Round:       enc.Round,
		SourceID:    source.ID,
		TargetID:    target.ID,
		Position:    combat.Position{Side: target.Side, Slot: enc.SlotOf(target)},
		Amount:      amount,
		AbilityID:   abilityID,
		Detail:      detail,
	})
}
