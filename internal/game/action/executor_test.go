package action_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlecombat/internal/game/action"
	"github.com/cory-johannsen/idlecombat/internal/game/ai"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/condition"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
	"github.com/cory-johannsen/idlecombat/internal/game/threat"
)

// fixedSource returns n mod bound from Intn and f from Float64. With f = 0.5
// the default resolver never misses or crits and variance is neutral.
type fixedSource struct {
	n int
	f float64
}

func (s fixedSource) Intn(bound int) int { return s.n % bound }
func (s fixedSource) Float64() float64   { return s.f }

type zeroHook struct{ calls int }

func (h *zeroHook) OnDamage(_, _ string, _ int) int {
	h.calls++
	return 0
}

type harness struct {
	enc   *combat.Encounter
	exec  *action.Executor
	rec   *combat.Recorder
	tbl   *threat.Table
	state *ai.Registry
}

func member(id string, role combat.Role) *combat.Combatant {
	return &combat.Combatant{ID: id, Name: id, Role: role, MaxHP: 100, CurrentHP: 100, Attack: 15, Defense: 2}
}

func fiveParty() []*combat.Combatant {
	return []*combat.Combatant{
		member("tank", combat.RoleTank),
		member("healer", combat.RoleHealer),
		member("dps1", combat.RoleDPS),
		member("dps2", combat.RoleDPS),
		member("dps3", combat.RoleDPS),
	}
}

func ogre() *combat.Combatant {
	return &combat.Combatant{
		ID: "ogre", Name: "Ogre", Role: combat.RoleBoss,
		MaxHP: 500, CurrentHP: 500, Attack: 20, Defense: 5, Strategy: "defensive",
	}
}

func catalog(t *testing.T) *combat.Catalog {
	t.Helper()
	cat := combat.NewCatalog()
	for _, def := range []*combat.AbilityDef{
		{ID: "mend", Type: combat.AbilityHeal, Multiplier: 2},
		{ID: "prayer", Type: combat.AbilityHeal, Multiplier: 1, AoE: true},
		{ID: "rally", Type: combat.AbilityBuff, Effect: "rallied", AoE: true},
		{ID: "sunder", Type: combat.AbilityDebuff, Effect: "exposed"},
		{ID: "kick", Type: combat.AbilityAttack, Multiplier: 0.5, Interrupt: true, Cooldown: 4},
		{ID: "meteor", Type: combat.AbilityAttack, Multiplier: 3, CastTime: 3},
		{ID: "whirlwind", Type: combat.AbilityAttack, Multiplier: 1, AoE: true},
		{ID: "mystery", Type: combat.AbilityBuff, Effect: "no_such_effect"},
	} {
		require.NoError(t, cat.Register(def))
	}
	return cat
}

func newHarness(t *testing.T, src dice.Source, logger *zap.Logger, allies []*combat.Combatant, hostiles ...*combat.Combatant) *harness {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	enc := combat.NewEncounter("enc-1", allies, hostiles, combat.PhaseNormal, time.Now())
	tbl := threat.NewTable(threat.DefaultConfig())
	for _, h := range hostiles {
		tbl.Initialize(h.ID, allies)
	}
	rec := &combat.Recorder{}
	states := ai.NewRegistry()
	cat := catalog(t)
	exec := action.New(action.DefaultConfig(), action.Deps{
		Catalog:   cat,
		Effects:   condition.DefaultRegistry(),
		Resolver:  combat.NewResolver(combat.DefaultResolverConfig(), src, nil),
		Threat:    tbl,
		States:    states,
		Chooser:   ai.NewChooser(cat, src, logger),
		Selector:  ai.NewSelector(tbl, src),
		Publisher: rec,
		Source:    src,
		Logger:    logger,
	})
	return &harness{enc: enc, exec: exec, rec: rec, tbl: tbl, state: states}
}

func (h *harness) ability(t *testing.T, id string) *combat.AbilityDef {
	t.Helper()
	def, ok := h.exec.Catalog.Get(id)
	require.True(t, ok)
	return def
}

func TestTankOutThreatsDPS(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	for range 6 {
		h.exec.ActParty(h.enc)
	}
	tank := h.tbl.Threat("ogre", "tank")
	assert.Equal(t, 120, tank, "6 hits of 10 at ×2.0")
	for _, id := range []string{"dps1", "dps2", "dps3", "healer"} {
		assert.Greater(t, tank, h.tbl.Threat("ogre", id), id)
	}
	assert.Equal(t, 30, h.tbl.Threat("ogre", "healer"), "healer generates ×0.5")
	assert.Equal(t, "tank", h.tbl.HighestThreat("ogre", h.enc.Allies).ID)
}

func TestStanceScalesThreat(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	h.exec.SetStance(ai.StanceDefensive)
	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.exec.Catalog.Basic())
	assert.Equal(t, 12, h.tbl.Threat("ogre", "dps1"), "10 damage ×1.25")
}

func TestHealTarget(t *testing.T) {
	p := fiveParty()
	for _, c := range p {
		c.Normalize()
	}
	tank, healer := p[0], p[1]

	healer.ApplyDamage(10)
	tank.ApplyDamage(40)
	assert.Same(t, tank, action.HealTarget(healer, p), "tank at 60% under a healer at 90%")

	tank.Heal(40)
	p[3].ApplyDamage(55)
	assert.Same(t, p[3], action.HealTarget(healer, p), "lowest ally below 60%")

	p[3].Heal(55)
	assert.Same(t, healer, action.HealTarget(healer, p), "nobody else needs it")

	healer.ApplyDamage(50) // 40%
	tank.ApplyDamage(55)   // 45%
	assert.Same(t, tank, action.HealTarget(healer, p), "both below half: tank first")
}

func TestHealerHealsTankNotSelf(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	tank, healer := h.enc.Allies[0], h.enc.Allies[1]
	healer.ApplyDamage(10)
	tank.ApplyDamage(40)

	h.exec.ActAlly(h.enc, healer, h.ability(t, "mend"))

	assert.Equal(t, 90, tank.CurrentHP, "healed floor(15×2)")
	assert.Equal(t, 90, healer.CurrentHP)
	heals := h.rec.OfType(combat.EventHeal)
	require.Len(t, heals, 1)
	assert.Equal(t, "tank", heals[0].TargetID)
	assert.Equal(t, 30, heals[0].Amount)
}

func TestAoEHealReportsAppliedDelta(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	h.enc.Allies[2].ApplyDamage(5)
	h.enc.Allies[3].ApplyDamage(40)

	h.exec.ActAlly(h.enc, h.enc.Allies[1], h.ability(t, "prayer"))

	heals := h.rec.OfType(combat.EventHeal)
	require.Len(t, heals, 2, "full-health allies gain nothing")
	assert.Equal(t, 5, heals[0].Amount)
	assert.Equal(t, 15, heals[1].Amount)
}

func TestInterruptCancelsCast(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	boss := h.enc.Primary()
	boss.Casting = &combat.Cast{AbilityID: "meteor", Remaining: 2, Interruptible: true, TargetID: "tank"}

	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.ability(t, "kick"))

	assert.Nil(t, boss.Casting)
	assert.GreaterOrEqual(t, boss.Cooldown("meteor"), 10)
	assert.Equal(t, 500, boss.CurrentHP, "the interrupting hit is spent on the interrupt")
	assert.Equal(t, 4, h.enc.Allies[2].Cooldown("kick"))
	require.Len(t, h.rec.OfType(combat.EventCastInterrupted), 1)
	st, ok := h.state.StateFor("ogre")
	require.True(t, ok)
	assert.Equal(t, 1, st.CrowdControl)
}

func TestInterruptIgnoresUninterruptibleCast(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	boss := h.enc.Primary()
	boss.Casting = &combat.Cast{AbilityID: "meteor", Remaining: 2, Interruptible: false, TargetID: "tank"}

	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.ability(t, "kick"))

	assert.NotNil(t, boss.Casting)
	assert.Less(t, boss.CurrentHP, 500, "kick lands as a normal hit")
}

func TestHostileStartsAndResolvesCast(t *testing.T) {
	boss := ogre()
	boss.Abilities = []string{"meteor"}
	// f = 0.1 makes the weighted draw take the first candidate without missing or critting.
	h := newHarness(t, fixedSource{f: 0.1}, nil, fiveParty(), boss)
	tank := h.enc.Allies[0]
	h.tbl.Add("ogre", "tank", 50, 1)

	out := h.exec.ActHostile(h.enc, boss)
	assert.True(t, out.Casting)
	require.NotNil(t, boss.Casting)
	assert.Equal(t, 3, boss.Casting.Remaining)
	assert.Equal(t, "tank", boss.Casting.TargetID)
	assert.Equal(t, 100, tank.CurrentHP)
	require.Len(t, h.rec.OfType(combat.EventCastStarted), 1)

	boss.Casting.Remaining = 1
	out = h.exec.ActHostile(h.enc, boss)
	assert.True(t, out.Casting, "still casting")

	boss.Casting.Remaining = 0
	out = h.exec.ActHostile(h.enc, boss)
	assert.False(t, out.Casting)
	assert.Equal(t, "meteor", out.Ability.ID)
	assert.Nil(t, boss.Casting)
	// floor(20×3)=60 attack, 60-2 = 58 base, ×(0.9+0.1×0.2) variance = 53.36.
	assert.Equal(t, 47, tank.CurrentHP)
}

func TestStunnedHostileSkipsTurn(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	boss := h.enc.Primary()
	h.exec.ApplyEffect(h.enc, h.enc.Allies[0], boss, condition.Stunned, 0, 0)

	out := h.exec.ActHostile(h.enc, boss)
	assert.True(t, out.Skipped)
	for _, a := range h.enc.Allies {
		assert.Equal(t, 100, a.CurrentHP)
	}
	st, _ := h.state.StateFor("ogre")
	assert.Equal(t, 1, st.CrowdControl)
}

func TestStunBreaksInterruptibleCast(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	boss := h.enc.Primary()
	boss.Casting = &combat.Cast{AbilityID: "meteor", Remaining: 2, Interruptible: true}

	h.exec.ApplyEffect(h.enc, h.enc.Allies[0], boss, condition.Stunned, 0, 0)
	assert.Nil(t, boss.Casting)
	assert.GreaterOrEqual(t, boss.Cooldown("meteor"), 10)
}

func TestStunTraitOnHit(t *testing.T) {
	allies := fiveParty()
	allies[2].Traits.StunChance = 1
	h := newHarness(t, fixedSource{f: 0.5}, nil, allies, ogre())

	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.exec.Catalog.Basic())
	assert.True(t, h.enc.Primary().IsStunned())
}

func TestLifeStealUsesDamageDealt(t *testing.T) {
	allies := fiveParty()
	allies[2].Traits.LifeSteal = 0.5
	allies[2].CurrentHP = 50
	h := newHarness(t, fixedSource{f: 0.5}, nil, allies, ogre())

	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.exec.Catalog.Basic())
	assert.Equal(t, 55, h.enc.Allies[2].CurrentHP, "half of 10 dealt")
}

func TestHostileDefeatedOnce(t *testing.T) {
	boss := ogre()
	boss.CurrentHP = 15
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), boss)

	h.exec.ActParty(h.enc)

	assert.False(t, boss.IsAlive())
	assert.Len(t, h.rec.OfType(combat.EventHostileDefeated), 1)
	assert.False(t, h.tbl.Initialized("ogre"), "threat row cleared on death")
	h.exec.Strike(h.enc, h.enc.Allies[0], boss, 50, combat.BasicAttackID)
	assert.Len(t, h.rec.OfType(combat.EventHostileDefeated), 1)
}

func TestDamageHookOverridesAmount(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	hook := &zeroHook{}
	h.exec.Hook = hook

	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.exec.Catalog.Basic())
	assert.Equal(t, 1, hook.calls)
	assert.Equal(t, 500, h.enc.Primary().CurrentHP)
}

func TestMissPublishesEvent(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.01}, nil, fiveParty(), ogre())
	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.exec.Catalog.Basic())
	assert.Len(t, h.rec.OfType(combat.EventMiss), 1)
	assert.Equal(t, 500, h.enc.Primary().CurrentHP)
}

func TestAoEAttackHitsEveryOpponent(t *testing.T) {
	add := &combat.Combatant{ID: "imp", Name: "Imp", Role: combat.RoleAdd, MaxHP: 30, CurrentHP: 30}
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre(), add)
	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.ability(t, "whirlwind"))
	assert.Equal(t, 490, h.enc.Primary().CurrentHP)
	assert.Equal(t, 15, add.CurrentHP)
}

func TestDebuffAppliesEffect(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	h.exec.ActAlly(h.enc, h.enc.Allies[2], h.ability(t, "sunder"))
	assert.True(t, h.enc.Primary().Effects.Has("exposed"))
	evs := h.rec.OfType(combat.EventEffectApplied)
	require.Len(t, evs, 1)
	assert.Equal(t, "exposed", evs[0].Detail)
	assert.Equal(t, combat.Position{Side: combat.SideHostile, Slot: 0}, evs[0].Position)
}

func TestUnknownEffectIsLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t, fixedSource{f: 0.5}, zap.New(core), fiveParty(), ogre())
	out := h.exec.ActAlly(h.enc, h.enc.Allies[2], h.ability(t, "mystery"))
	assert.Equal(t, "mystery", out.Ability.ID)
	assert.Equal(t, 1, logs.FilterMessage("unknown status effect").Len())
}

func TestPlanParty_DowngradesRedundantBuffs(t *testing.T) {
	allies := fiveParty()
	for _, a := range allies {
		a.Abilities = []string{"rally"}
	}
	h := newHarness(t, fixedSource{f: 0}, nil, allies, ogre())
	plans := h.exec.PlanParty(h.enc)
	require.Len(t, plans, 5)
	for _, p := range plans {
		assert.Equal(t, combat.BasicAttackID, p.Ability.ID, p.Actor.ID)
	}
}

func TestPlanParty_TicksCooldownsAndRegenerates(t *testing.T) {
	allies := fiveParty()
	allies[2].MaxResource, allies[2].CurrentResource, allies[2].ResourceRegen = 50, 10, 5
	h := newHarness(t, fixedSource{f: 0.5}, nil, allies, ogre())
	h.enc.Allies[2].SetCooldown("kick", 2)

	h.exec.PlanParty(h.enc)
	assert.Equal(t, 1, h.enc.Allies[2].Cooldown("kick"))
	assert.Equal(t, 15, h.enc.Allies[2].CurrentResource)
}

func TestDeadAndStunnedAlliesDoNotAct(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.5}, nil, fiveParty(), ogre())
	h.enc.Allies[0].ApplyDamage(100)
	h.exec.ApplyEffect(h.enc, h.enc.Primary(), h.enc.Allies[1], condition.Stunned, 0, 0)

	h.exec.ActParty(h.enc)
	assert.Equal(t, 470, h.enc.Primary().CurrentHP, "three dps hits of 10")
	assert.Equal(t, 0, h.tbl.Threat("ogre", "tank"))
	assert.Equal(t, 0, h.tbl.Threat("ogre", "healer"))
}

func TestProperty_ThreatNeverNegativeUnderRandomPlay(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		src := dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))
		h := newHarness(t, src, nil, fiveParty(), ogre())
		rounds := rapid.IntRange(1, 15).Draw(rt, "rounds")
		for range rounds {
			h.exec.ActParty(h.enc)
			if !h.enc.Primary().IsAlive() {
				break
			}
			h.exec.ActHostile(h.enc, h.enc.Primary())
		}
		for id, v := range h.tbl.Snapshot("ogre") {
			if v < 0 {
				rt.Fatalf("negative threat %d for %s", v, id)
			}
		}
	})
}
