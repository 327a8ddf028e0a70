// Package gameserver runs bouts: it owns the encounter state machine, drives
// ticks from a scheduler, and reports results to its collaborators.
package gameserver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/action"
	"github.com/cory-johannsen/idlecombat/internal/game/ai"
	"github.com/cory-johannsen/idlecombat/internal/game/boss"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/condition"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
	"github.com/cory-johannsen/idlecombat/internal/game/npc"
	"github.com/cory-johannsen/idlecombat/internal/game/threat"
	"github.com/cory-johannsen/idlecombat/internal/observability"
)

// State is the orchestrator's lifecycle state.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateEnded:
		return "ended"
	default:
		return "not_started"
	}
}

// recordTimeout bounds how long a bout recorder may block the tick.
const recordTimeout = 5 * time.Second

// Config holds orchestrator tuning.
type Config struct {
	// Speed is the delay between ticks.
	Speed time.Duration
	// AdaptationInterval is the elapsed bout time per adaptation level.
	AdaptationInterval time.Duration
	Threat             threat.Config
	Action             action.Config
}

// DefaultConfig returns a 500ms tick, 30s adaptation steps, and the default
// threat and action tuning.
func DefaultConfig() Config {
	return Config{
		Speed:              500 * time.Millisecond,
		AdaptationInterval: 30 * time.Second,
		Threat:             threat.DefaultConfig(),
		Action:             action.DefaultConfig(),
	}
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Catalog  *combat.Catalog
	Effects  *condition.Registry
	Resolver *combat.Resolver
	Source   dice.Source
	// Templates spawns summoned adds and supplies boss mechanics. May be nil.
	Templates *npc.Registry
	Publisher combat.Publisher
	Scheduler Scheduler
	Stance    *ai.StanceSetting
	// The remaining interfaces may be nil.
	DamageHook action.DamageHook
	PhaseHook  boss.PhaseHook
	Rewards    RewardCollaborator
	Recorder   BoutRecorder
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// bout is the per-encounter arena, discarded when the bout ends.
type bout struct {
	enc    *combat.Encounter
	exec   *action.Executor
	bosses *boss.Controller
	live   map[string]*combat.Combatant // snapshot ID → live combatant
	logger *zap.Logger
	done   chan struct{}
}

// Orchestrator runs one bout at a time.
//
// mu serialises the scheduler's tick goroutine against inbound calls; the
// tick is the only writer of encounter state.
type Orchestrator struct {
	cfg      Config
	deps     Deps
	threat   *threat.Table
	chooser  *ai.Chooser
	selector *ai.Selector

	mu      sync.Mutex
	state   State
	cur     *bout
	last    *combat.Encounter
	summary *BoutSummary
	pending bool
}

// NewOrchestrator creates an idle Orchestrator.
//
// Precondition: Catalog, Effects, Resolver, Source, Publisher, Scheduler, and
// Logger must be non-nil; cfg.Speed > 0.
// Postcondition: State() is StateNotStarted.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	tbl := threat.NewTable(cfg.Threat)
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		threat:   tbl,
		chooser:  ai.NewChooser(deps.Catalog, deps.Source, deps.Logger),
		selector: ai.NewSelector(tbl, deps.Source),
	}
}

// Threat returns the threat table shared by the orchestrator's bouts.
func (o *Orchestrator) Threat() *threat.Table { return o.threat }

// StartPartyCombat begins a bout between party and hostile.
//
// Postcondition: Returns false, logs a warning, and changes nothing when a
// bout is already running, hostile is missing or dead, or party has no living
// member.
func (o *Orchestrator) StartPartyCombat(party []*combat.Combatant, hostile *combat.Combatant) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateInProgress {
		o.deps.Logger.Warn("combat start rejected", zap.String("reason", "already in combat"))
		return false
	}
	if hostile == nil {
		o.deps.Logger.Warn("combat start rejected", zap.String("reason", "no hostile"))
		return false
	}
	if !hostile.IsAlive() {
		o.deps.Logger.Warn("combat start rejected",
			zap.String("reason", "hostile not alive"),
			zap.String("hostile", hostile.ID),
		)
		return false
	}
	var members []*combat.Combatant
	for _, c := range party {
		if c != nil && c.IsAlive() {
			members = append(members, c)
		}
	}
	if len(members) == 0 {
		o.deps.Logger.Warn("combat start rejected",
			zap.String("reason", "no living party member"),
			zap.String("hostile", hostile.ID),
		)
		return false
	}

	o.cur = o.newBout(members, hostile)
	o.state = StateInProgress
	enc := o.cur.enc
	o.deps.Publisher.Publish(combat.Event{
		Type:        combat.EventCombatStarted,
		EncounterID: enc.ID,
		Round:       enc.Round,
		SourceID:    enc.Primary().ID,
		TargetID:    enc.Primary().ID,
		Position:    combat.Position{Side: combat.SideHostile},
	})
	o.cur.logger.Info("bout started",
		zap.String("hostile", hostile.ID),
		zap.Int("party", len(members)),
		zap.Bool("boss", o.cur.bosses.IsBoss(enc.Primary().ID)),
	)
	o.scheduleLocked()
	return true
}

// StartSingleCombat begins a bout between one ally and hostile.
func (o *Orchestrator) StartSingleCombat(ally, hostile *combat.Combatant) bool {
	if ally == nil {
		o.deps.Logger.Warn("combat start rejected", zap.String("reason", "no ally"))
		return false
	}
	return o.StartPartyCombat([]*combat.Combatant{ally}, hostile)
}

// StartFromProvider begins a bout with the provider's heroes. The provider's
// tank, when it is a living party member, takes the first ally slot so that
// tank lookups during the bout resolve to it.
func (o *Orchestrator) StartFromProvider(p PartyProvider, hostile *combat.Combatant) bool {
	if p == nil {
		o.deps.Logger.Warn("combat start rejected", zap.String("reason", "no party provider"))
		return false
	}
	return o.StartPartyCombat(tankFirst(p), hostile)
}

func tankFirst(p PartyProvider) []*combat.Combatant {
	heroes := p.Heroes()
	tank := p.Tank()
	if !tank.IsAlive() {
		return heroes
	}
	if member, ok := p.HeroByID(tank.ID); !ok || member != tank {
		return heroes
	}
	ordered := make([]*combat.Combatant, 0, len(heroes))
	ordered = append(ordered, tank)
	for _, h := range heroes {
		if h != tank {
			ordered = append(ordered, h)
		}
	}
	return ordered
}

func (o *Orchestrator) newBout(members []*combat.Combatant, hostile *combat.Combatant) *bout {
	now := o.deps.Now()
	live := make(map[string]*combat.Combatant, len(members)+1)
	allies := make([]*combat.Combatant, 0, len(members))
	for _, c := range members {
		allies = append(allies, c.Snapshot())
		live[c.ID] = c
	}
	h := hostile.Snapshot()
	live[h.ID] = hostile

	enc := combat.NewEncounter(uuid.NewString(), allies, []*combat.Combatant{h}, combat.PhaseNormal, now)
	logger := observability.ForBout(o.deps.Logger, enc.ID)

	o.threat.Reset()
	o.threat.Initialize(h.ID, allies)
	o.threat.StartDecay(now)

	states := ai.NewRegistry()
	states.Ensure(h.ID)
	exec := action.New(o.cfg.Action, action.Deps{
		Catalog:   o.deps.Catalog,
		Effects:   o.deps.Effects,
		Resolver:  o.deps.Resolver,
		Threat:    o.threat,
		States:    states,
		Chooser:   o.chooser,
		Selector:  o.selector,
		Publisher: o.deps.Publisher,
		Source:    o.deps.Source,
		Hook:      o.deps.DamageHook,
		Logger:    logger,
	})

	var spawner boss.Spawner
	if o.deps.Templates != nil {
		spawner = o.deps.Templates
	}
	ctrl := boss.NewController(exec, spawner, o.deps.PhaseHook, logger)
	if h.Role == combat.RoleBoss {
		var mechanics []*boss.Mechanic
		if o.deps.Templates != nil {
			if tmpl, ok := o.deps.Templates.Get(h.TemplateID); ok {
				mechanics = tmpl.Mechanics
			}
		}
		ctrl.Register(h, mechanics)
	}

	return &bout{enc: enc, exec: exec, bosses: ctrl, live: live, logger: logger, done: make(chan struct{})}
}

func (o *Orchestrator) scheduleLocked() {
	if o.pending || o.cur == nil {
		return
	}
	o.pending = true
	id := o.cur.enc.ID
	o.deps.Scheduler.Schedule(o.cfg.Speed, func() { o.onTick(id) })
}

func (o *Orchestrator) onTick(encounterID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateInProgress || o.cur == nil || o.cur.enc.ID != encounterID {
		return
	}
	o.pending = false
	if o.stepLocked() {
		o.scheduleLocked()
	}
}

// Step runs one tick synchronously, independent of the scheduler.
//
// Postcondition: Returns true while the bout is still in progress afterwards.
func (o *Orchestrator) Step() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stepLocked()
}

// stepLocked runs one tick in fixed order: status effects, termination
// check, the turn owner's actions, termination check, turn flip, AI update.
func (o *Orchestrator) stepLocked() bool {
	if o.state != StateInProgress {
		return false
	}
	b := o.cur
	enc := b.enc
	now := o.deps.Now()

	o.threat.Decay(now)

	for _, c := range append(enc.LivingAllies(), enc.LivingHostiles()...) {
		b.exec.TickStatus(enc, c)
	}
	if o.checkEndLocked() {
		return false
	}

	if enc.TurnOwner == combat.SideAlly {
		b.exec.SetStance(o.deps.Stance.Get())
		b.exec.ActParty(enc)
	} else {
		// Adds summoned this turn act from the next hostile turn on.
		for _, h := range enc.LivingHostiles() {
			if len(enc.LivingAllies()) == 0 {
				break
			}
			out := b.exec.ActHostile(enc, h)
			b.bosses.AfterAction(enc, h, out)
		}
	}
	if o.checkEndLocked() {
		return false
	}

	enc.FlipTurn()
	o.updateAILocked(now)
	b.logger.Debug("tick",
		zap.Int("round", enc.Round),
		zap.String("turn", enc.TurnOwner.String()),
		zap.Int("allies", len(enc.LivingAllies())),
		zap.Int("hostiles", len(enc.LivingHostiles())),
	)
	return true
}

// updateAILocked advances every living hostile's AI state and observes boss phases.
// The encounter becomes enraged when the primary enrages and adaptive once the
// primary has adapted at least one level.
func (o *Orchestrator) updateAILocked(now time.Time) {
	b := o.cur
	enc := b.enc
	elapsed := now.Sub(enc.StartedAt)
	for _, h := range enc.LivingHostiles() {
		st := b.exec.States.Ensure(h.ID)
		if st.Update(h, elapsed, o.cfg.AdaptationInterval) {
			b.logger.Info("hostile enraged", zap.String("hostile", h.ID), zap.Int("round", enc.Round))
		}
		if h != enc.Primary() {
			continue
		}
		switch {
		case st.Enraged:
			enc.Phase = combat.PhaseEnraged
		case st.Adaptation > 0:
			enc.Phase = combat.PhaseAdaptive
		}
	}
	b.bosses.Observe(enc)
}

// checkEndLocked ends the bout when the primary hostile is down (victory,
// checked first) or no ally is standing (defeat).
func (o *Orchestrator) checkEndLocked() bool {
	enc := o.cur.enc
	switch {
	case !enc.Primary().IsAlive():
		o.finishLocked(ResultVictory)
	case len(enc.LivingAllies()) == 0:
		o.finishLocked(ResultDefeat)
	default:
		return false
	}
	return true
}

// finishLocked terminates the current bout exactly once: it cancels the
// pending tick, mirrors health onto the live combatants, resets threat, and
// notifies the publisher, rewarder, and recorder.
func (o *Orchestrator) finishLocked(result Result) {
	b := o.cur
	enc := b.enc
	if !enc.End(result == ResultVictory) {
		return
	}
	o.deps.Scheduler.Cancel()
	o.pending = false
	o.state = StateEnded

	for _, c := range append(append([]*combat.Combatant(nil), enc.Allies...), enc.Primary()) {
		c.MirrorTo(b.live[c.ID])
	}
	o.threat.Reset()

	summary := o.summarize(result)
	o.deps.Publisher.Publish(combat.Event{
		Type:        combat.EventCombatEnded,
		EncounterID: enc.ID,
		Round:       enc.Round,
		SourceID:    enc.Primary().ID,
		TargetID:    enc.Primary().ID,
		Position:    combat.Position{Side: combat.SideHostile},
		Detail:      string(result),
		Victory:     result == ResultVictory,
	})
	b.logger.Info("bout ended",
		zap.String("result", string(result)),
		zap.Int("rounds", summary.Rounds),
		zap.Int("survivors", summary.Survivors),
		zap.Duration("duration", summary.Duration()),
	)

	if result == ResultVictory && o.deps.Rewards != nil {
		o.deps.Rewards.Award(summary)
	}
	if o.deps.Recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := o.deps.Recorder.RecordBout(ctx, summary); err != nil {
			b.logger.Warn("recording bout", zap.Error(err))
		}
	}
	o.last = enc
	o.summary = &summary
	o.cur = nil
	close(b.done)
}

func (o *Orchestrator) summarize(result Result) BoutSummary {
	enc := o.cur.enc
	primary := enc.Primary()
	s := BoutSummary{
		EncounterID:     enc.ID,
		Result:          result,
		HostileID:       primary.ID,
		HostileTemplate: primary.TemplateID,
		HostileName:     primary.Name,
		Survivors:       len(enc.LivingAllies()),
		Adds:            len(enc.Adds),
		Rounds:          enc.Round,
		StartedAt:       enc.StartedAt,
		EndedAt:         o.deps.Now(),
	}
	for _, a := range enc.Allies {
		s.Party = append(s.Party, a.ID)
	}
	return s
}

// EndCombat stops the running bout without a winner.
//
// Postcondition: no tick is pending and the threat table is empty. A no-op
// when no bout is running.
func (o *Orchestrator) EndCombat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateInProgress {
		return
	}
	o.finishLocked(ResultAborted)
}

// Done returns a channel closed when the running bout ends. With no bout
// running the returned channel is already closed.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur != nil {
		return o.cur.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// LastSummary returns the summary of the most recently ended bout.
func (o *Orchestrator) LastSummary() (BoutSummary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.summary == nil {
		return BoutSummary{}, false
	}
	return *o.summary, true
}

// IsInCombat reports whether a bout is running.
func (o *Orchestrator) IsInCombat() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateInProgress
}

// State returns the lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// CombatState returns a deep copy of the running encounter, or of the last
// ended one. Returns nil before the first bout.
func (o *Orchestrator) CombatState() *combat.Encounter {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.cur != nil:
		return o.cur.enc.Snapshot()
	case o.last != nil:
		return o.last.Snapshot()
	}
	return nil
}

// CurrentEnemy returns a copy of the running bout's primary hostile, or nil.
func (o *Orchestrator) CurrentEnemy() *combat.Combatant {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return nil
	}
	return o.cur.enc.Primary().Snapshot()
}

// AIStates returns copies of the running bout's per-hostile AI state.
func (o *Orchestrator) AIStates() map[string]ai.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return nil
	}
	return o.cur.exec.States.Snapshot()
}
