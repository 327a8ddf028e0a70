package combat_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

func TestCatalog_BasicAttackAlwaysPresent(t *testing.T) {
	cat := combat.NewCatalog()
	b := cat.Basic()
	require.NotNil(t, b)
	assert.Equal(t, combat.BasicAttackID, b.ID)
	assert.Equal(t, combat.AbilityAttack, b.Type)
	assert.Equal(t, 0, b.Cost)
	assert.Equal(t, 1.0, b.Multiplier)
}

func TestCatalog_Register_Validates(t *testing.T) {
	cat := combat.NewCatalog()
	assert.Error(t, cat.Register(&combat.AbilityDef{ID: "x", Type: "dance"}))
	assert.Error(t, cat.Register(&combat.AbilityDef{ID: "y", Type: combat.AbilityBuff}), "buff without effect")
	assert.Error(t, cat.Register(&combat.AbilityDef{ID: "z", Type: combat.AbilityAttack, Chance: 2}))
	assert.Error(t, cat.Register(&combat.AbilityDef{ID: "w", Type: combat.AbilityAttack, Bonus: "2x6"}))
	assert.Error(t, cat.Register(&combat.AbilityDef{ID: "v", Type: combat.AbilityAttack, When: "HealthPct +"}))

	require.NoError(t, cat.Register(&combat.AbilityDef{ID: "slash", Type: combat.AbilityAttack, Bonus: "1d4+1"}))
	s, ok := cat.Get("slash")
	require.True(t, ok)
	assert.Equal(t, 1.0, s.Multiplier, "attack multiplier defaults to 1")
	require.NotNil(t, s.BonusExpr())
	assert.Equal(t, 4, s.BonusExpr().Sides)
}

func TestAbilityDef_When(t *testing.T) {
	def := &combat.AbilityDef{
		ID:   "last_stand",
		Type: combat.AbilityAttack,
		When: `HealthPct < 0.3 && !HasEffect("stunned")`,
	}
	require.NoError(t, def.Validate())

	assert.True(t, def.Allows(combat.GateEnv{HealthPct: 0.2}))
	assert.False(t, def.Allows(combat.GateEnv{HealthPct: 0.5}))
	assert.False(t, def.Allows(combat.GateEnv{HealthPct: 0.2, Effects: []string{"stunned"}}))

	plain := &combat.AbilityDef{ID: "p", Type: combat.AbilityAttack}
	require.NoError(t, plain.Validate())
	assert.True(t, plain.Allows(combat.GateEnv{}))
}

func TestAbilityDef_IsStun(t *testing.T) {
	assert.True(t, (&combat.AbilityDef{Effect: "stunned"}).IsStun())
	assert.False(t, (&combat.AbilityDef{Effect: "weakened"}).IsStun())
}

func TestLoadAbilities(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warrior.yaml"), []byte(`
- id: shield_bash
  name: Shield Bash
  type: attack
  multiplier: 0.8
  cooldown: 3
  interrupt: true
- id: war_cry
  name: War Cry
  type: buff
  cost: 10
  aoe: true
  effect: rallied
`), 0644))

	cat, err := combat.LoadAbilities(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{combat.BasicAttackID, "shield_bash", "war_cry"}, cat.IDs())
	bash, _ := cat.Get("shield_bash")
	assert.True(t, bash.Interrupt)
	cry, _ := cat.Get("war_cry")
	assert.True(t, cry.AoE)
}

func TestLoadAbilities_UnknownField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("- id: a\n  type: attack\n  power: 9\n"), 0644))
	_, err := combat.LoadAbilities(dir)
	assert.Error(t, err)
}
