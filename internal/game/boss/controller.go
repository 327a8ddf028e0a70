package boss

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/action"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
)

// Spawner builds a fresh combatant with a unique ID from a hostile template.
type Spawner interface {
	Spawn(templateID string) (*combat.Combatant, error)
}

// PhaseHook is notified of boss phase transitions. A scripting layer implements it.
type PhaseHook interface {
	OnPhaseChange(bossID, phase string)
}

type tracked struct {
	mechanics []*Mechanic
	cooldowns map[string]int
	phase     Phase
}

// Controller runs phases and mechanics for the bosses of one bout.
//
// It is not safe for concurrent use; the orchestrator's tick serialises access.
type Controller struct {
	exec    *action.Executor
	spawner Spawner
	hook    PhaseHook
	logger  *zap.Logger
	bosses  map[string]*tracked
	order   []string
}

// NewController creates a Controller that fires mechanics through exec.
//
// Precondition: exec and logger must be non-nil. spawner may be nil when no
// registered mechanic summons; hook may be nil.
func NewController(exec *action.Executor, spawner Spawner, hook PhaseHook, logger *zap.Logger) *Controller {
	return &Controller{
		exec:    exec,
		spawner: spawner,
		hook:    hook,
		logger:  logger,
		bosses:  make(map[string]*tracked),
	}
}

// Register starts tracking b with its mechanics. The initial phase is derived
// from b's current health without publishing a transition.
//
// Precondition: every mechanic must have passed Validate.
func (c *Controller) Register(b *combat.Combatant, mechanics []*Mechanic) {
	if _, ok := c.bosses[b.ID]; !ok {
		c.order = append(c.order, b.ID)
	}
	c.bosses[b.ID] = &tracked{
		mechanics: mechanics,
		cooldowns: make(map[string]int),
		phase:     PhaseFor(b.HealthFraction()),
	}
	c.exec.States.Ensure(b.ID).Phase = string(c.bosses[b.ID].phase)
}

// IsBoss reports whether id is registered.
func (c *Controller) IsBoss(id string) bool {
	_, ok := c.bosses[id]
	return ok
}

// Phase returns the last observed phase of boss id, or "" when unregistered.
func (c *Controller) Phase(id string) Phase {
	if t, ok := c.bosses[id]; ok {
		return t.phase
	}
	return ""
}

// Observe recomputes every living boss's phase. On a transition it
// publishes phase-changed and calls the hook. Entering enrage permanently
// sets the boss's Enraged and IgnoreThreat flags and, for the primary
// hostile, moves the encounter to the enraged phase.
func (c *Controller) Observe(enc *combat.Encounter) {
	for _, id := range c.order {
		b := enc.Find(id)
		if !b.IsAlive() {
			continue
		}
		t := c.bosses[id]
		next := PhaseFor(b.HealthFraction())
		if next == t.phase {
			continue
		}
		// Phases only advance; healing does not return a boss to an earlier tier.
		if next.Rank() < t.phase.Rank() {
			continue
		}
		t.phase = next
		st := c.exec.States.Ensure(id)
		st.Phase = string(next)
		if next == Enrage {
			st.Enraged = true
			st.IgnoreThreat = true
			if enc.Primary() == b {
				enc.Phase = combat.PhaseEnraged
			}
		}
		c.exec.Publisher.Publish(combat.Event{
			Type:        combat.EventPhaseChanged,
			EncounterID: enc.ID,
			Round:       enc.Round,
			SourceID:    id,
			TargetID:    id,
			Position:    combat.Position{Side: combat.SideHostile, Slot: enc.SlotOf(b)},
			Detail:      string(next),
		})
		if c.hook != nil {
			c.hook.OnPhaseChange(id, string(next))
		}
		c.logger.Info("boss phase changed",
			zap.String("encounter", enc.ID),
			zap.String("boss", id),
			zap.String("phase", string(next)),
		)
	}
}

// AfterAction ticks b's mechanic cooldowns and, when b's turn did not use a
// personal ability, fires the first ready mechanic whose phase floor is
// reached and whose chance roll passes.
//
// Postcondition: Returns the fired mechanic's ID, or "" when none fired.
func (c *Controller) AfterAction(enc *combat.Encounter, b *combat.Combatant, out action.Outcome) string {
	t, ok := c.bosses[b.ID]
	if !ok {
		return ""
	}
	for id, cd := range t.cooldowns {
		if cd <= 1 {
			delete(t.cooldowns, id)
		} else {
			t.cooldowns[id] = cd - 1
		}
	}
	if !b.IsAlive() || out.Skipped || out.Casting || out.Personal() {
		return ""
	}
	if len(enc.LivingAllies()) == 0 {
		return ""
	}
	for _, m := range t.mechanics {
		if t.cooldowns[m.ID] > 0 || !t.phase.Reached(m.MinPhase) {
			continue
		}
		if m.Chance > 0 && !dice.Check(c.exec.Source, "mechanic:"+m.ID, m.Chance) {
			continue
		}
		if err := c.fire(enc, b, m); err != nil {
			c.logger.Warn("boss mechanic failed",
				zap.String("boss", b.ID),
				zap.String("mechanic", m.ID),
				zap.Error(err),
			)
			continue
		}
		if m.Cooldown > 0 {
			t.cooldowns[m.ID] = m.Cooldown
		}
		return m.ID
	}
	return ""
}

func (c *Controller) fire(enc *combat.Encounter, b *combat.Combatant, m *Mechanic) error {
	c.logger.Debug("boss mechanic",
		zap.String("boss", b.ID),
		zap.String("mechanic", m.ID),
		zap.String("kind", string(m.Kind)),
	)
	switch m.Kind {
	case KindArea:
		atk := scaled(b.Attack, m.Multiplier)
		for _, a := range enc.LivingAllies() {
			c.exec.Strike(enc, b, a, atk, m.ID)
		}
	case KindCleave:
		c.cleave(enc, b, m)
	case KindGroupDebuff:
		for _, a := range enc.LivingAllies() {
			c.exec.ApplyEffect(enc, b, a, m.Effect, 0, m.Duration)
		}
	case KindSummon:
		return c.summon(enc, b, m)
	}
	return nil
}

// cleave hits the tank at full strength, then up to ExtraTargets random
// living non-tank allies.
func (c *Controller) cleave(enc *combat.Encounter, b *combat.Combatant, m *Mechanic) {
	living := enc.LivingAllies()
	primary := combat.FirstWithRole(living, combat.RoleTank)
	if primary == nil {
		primary = c.exec.Selector.SelectTarget(b, c.exec.States.Ensure(b.ID), living)
	}
	atk := scaled(b.Attack, m.Multiplier)
	c.exec.Strike(enc, b, primary, atk, m.ID)

	var rest []*combat.Combatant
	for _, a := range living {
		if a != primary && a.Role != combat.RoleTank {
			rest = append(rest, a)
		}
	}
	for i := 0; i < m.ExtraTargets && len(rest) > 0; i++ {
		j := dice.Pick(c.exec.Source, len(rest))
		c.exec.Strike(enc, b, rest[j], atk, m.ID)
		rest = append(rest[:j], rest[j+1:]...)
	}
}

// summon spawns N adds from m.Template. Each add gets a fresh AI state and a
// threat row; it does not inherit the boss's flags.
func (c *Controller) summon(enc *combat.Encounter, b *combat.Combatant, m *Mechanic) error {
	if c.spawner == nil {
		return fmt.Errorf("summon %q: no spawner configured", m.ID)
	}
	var n int
	if r, ok := c.exec.Source.(*dice.Roller); ok {
		n = r.Roll(*m.CountExpr()).Total()
	} else {
		n = dice.Roll(*m.CountExpr(), c.exec.Source).Total()
	}
	n = max(1, n)
	for range n {
		add, err := c.spawner.Spawn(m.Template)
		if err != nil {
			return fmt.Errorf("summon %q: %w", m.ID, err)
		}
		add.Role = combat.RoleAdd
		enc.AddHostile(add)
		c.exec.Threat.Initialize(add.ID, enc.Allies)
		c.exec.States.Ensure(add.ID)
	}
	c.exec.Publisher.Publish(combat.Event{
		Type:        combat.EventAddsSummoned,
		EncounterID: enc.ID,
		Round:       enc.Round,
		SourceID:    b.ID,
		TargetID:    b.ID,
		Position:    combat.Position{Side: combat.SideHostile, Slot: enc.SlotOf(b)},
		Amount:      n,
		AbilityID:   m.ID,
		Detail:      m.Template,
	})
	return nil
}

func scaled(attack int, mult float64) int {
	return int(math.Floor(float64(attack) * mult))
}
