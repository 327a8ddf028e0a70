package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlecombat/internal/game/condition"
)

func shieldDef() *condition.EffectDef {
	return &condition.EffectDef{ID: "barrier", Kind: condition.KindShield, Magnitude: 30, Duration: 5, Beneficial: true}
}

func TestStatModifiers_SumsByStack(t *testing.T) {
	s := condition.NewActiveSet()
	weak := &condition.EffectDef{ID: "weakened", Kind: condition.KindAttackMod, Magnitude: -0.1, Duration: 3, MaxStacks: 3}
	fort := &condition.EffectDef{ID: "fortified", Kind: condition.KindDefenseMod, Magnitude: 0.3, Duration: 3}
	require.NoError(t, s.Apply(weak, 0, 0, ""))
	require.NoError(t, s.Apply(weak, 0, 0, ""))
	require.NoError(t, s.Apply(fort, 0, 0, ""))

	m := s.StatModifiers()
	assert.InDelta(t, -0.2, m.AttackPct, 1e-9)
	assert.InDelta(t, 0.3, m.DefensePct, 1e-9)
	assert.Equal(t, 80, m.ApplyAttack(100))
	assert.Equal(t, 13, m.ApplyDefense(10))
}

func TestModifiers_ApplyFloorsAtZero(t *testing.T) {
	m := condition.Modifiers{AttackPct: -2}
	assert.Equal(t, 0, m.ApplyAttack(50))
}

func TestAbsorb_PartialAndDepleted(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(shieldDef(), 0, 0, ""))

	rem, abs := s.Absorb(12)
	assert.Equal(t, 0, rem)
	assert.Equal(t, 12, abs)
	assert.Equal(t, 18, s.ShieldRemaining())

	rem, abs = s.Absorb(25)
	assert.Equal(t, 7, rem)
	assert.Equal(t, 18, abs)
	assert.False(t, s.Has("barrier"), "depleted shield is removed")
}

func TestAbsorb_ConservesDamage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pool := rapid.IntRange(1, 200).Draw(rt, "pool")
		dmg := rapid.IntRange(0, 400).Draw(rt, "dmg")
		s := condition.NewActiveSet()
		require.NoError(rt, s.Apply(shieldDef(), float64(pool), 0, ""))
		rem, abs := s.Absorb(dmg)
		assert.Equal(rt, dmg, rem+abs)
		assert.GreaterOrEqual(rt, rem, 0)
		assert.LessOrEqual(rt, abs, pool)
	})
}

func TestIsStunned(t *testing.T) {
	s := condition.NewActiveSet()
	assert.False(t, s.IsStunned())
	stun, _ := condition.DefaultRegistry().Get(condition.Stunned)
	require.NoError(t, s.Apply(stun, 0, 0, ""))
	assert.True(t, s.IsStunned())
	s.Process()
	assert.True(t, s.IsStunned(), "a stun outlives the status tick before its holder's turn")
	s.Process()
	assert.False(t, s.IsStunned())
}

func TestCounts(t *testing.T) {
	reg := condition.DefaultRegistry()
	s := condition.NewActiveSet()
	for _, id := range []string{"rallied", "empowered", "weakened"} {
		def, ok := reg.Get(id)
		require.True(t, ok)
		require.NoError(t, s.Apply(def, 0, 0, "bard"))
	}
	assert.Equal(t, 2, s.BeneficialCount())
	assert.Equal(t, 1, s.HarmfulCount())
	assert.Equal(t, 1, s.PartyBuffsFrom("bard"))
	assert.Equal(t, 0, s.PartyBuffsFrom("someone-else"))
}
