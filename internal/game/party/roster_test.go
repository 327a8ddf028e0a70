package party_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/party"
)

const partyYAML = `
heroes:
  - id: brom
    name: Brom
    role: tank
    max_hp: 180
    attack: 12
    defense: 8
    abilities: [shield_slam]
  - id: sela
    name: Sela
    role: healer
    max_hp: 90
    attack: 6
    max_resource: 100
    resource_regen: 5
    abilities: [mend]
  - id: kit
    name: Kit
    role: dps
    max_hp: 100
    attack: 20
    traits:
      life_steal: 0.1
`

func TestLoadFromBytes(t *testing.T) {
	r, err := party.LoadFromBytes([]byte(partyYAML))
	require.NoError(t, err)

	heroes := r.Heroes()
	require.Len(t, heroes, 3)
	assert.Equal(t, []string{"brom", "sela", "kit"}, []string{heroes[0].ID, heroes[1].ID, heroes[2].ID})
	assert.Equal(t, combat.SideAlly, heroes[0].Side)
	assert.Equal(t, 100, heroes[1].CurrentResource)
	assert.InDelta(t, 0.1, heroes[2].Traits.LifeSteal, 1e-9)

	tank := r.Tank()
	require.NotNil(t, tank)
	assert.Equal(t, "brom", tank.ID)

	kit, ok := r.HeroByID("kit")
	require.True(t, ok)
	assert.Same(t, heroes[2], kit)
	_, ok = r.HeroByID("nobody")
	assert.False(t, ok)
}

func TestLoadFromBytes_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":        "heroes: []\n",
		"unknown key":  "heroes:\n  - id: a\n    name: A\n    role: dps\n    level: 3\n",
		"bad role":     "heroes:\n  - id: a\n    name: A\n    role: boss\n",
		"missing name": "heroes:\n  - id: a\n    role: dps\n",
		"duplicate":    "heroes:\n  - id: a\n    name: A\n    role: dps\n  - id: a\n    name: B\n    role: tank\n",
	}
	for name, data := range cases {
		_, err := party.LoadFromBytes([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestBuild_MissingStatsDefault(t *testing.T) {
	h := &party.Hero{ID: "a", Name: "A", Role: combat.RoleDPS}
	c := h.Build()
	assert.Equal(t, combat.DefaultMaxHP, c.MaxHP)
	assert.Equal(t, combat.DefaultMaxHP, c.CurrentHP)
	assert.True(t, c.IsAlive())
}

func TestTank_NoneInParty(t *testing.T) {
	r := party.NewRoster([]*party.Hero{{ID: "a", Name: "A", Role: combat.RoleDPS}})
	assert.Nil(t, r.Tank())
}

func TestRest_RestoresHeroes(t *testing.T) {
	r, err := party.LoadFromBytes([]byte(partyYAML))
	require.NoError(t, err)
	brom, _ := r.HeroByID("brom")
	brom.ApplyDamage(500)
	require.False(t, brom.IsAlive())

	r.Rest()
	brom, _ = r.HeroByID("brom")
	assert.True(t, brom.IsAlive())
	assert.Equal(t, 180, brom.CurrentHP)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party.yaml")
	require.NoError(t, os.WriteFile(path, []byte(partyYAML), 0644))
	r, err := party.Load(path)
	require.NoError(t, err)
	assert.Len(t, r.Heroes(), 3)

	_, err = party.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProperty_HeroesAlwaysNormalized(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := &party.Hero{
			ID:      "h",
			Name:    "H",
			Role:    rapid.SampledFrom([]combat.Role{combat.RoleTank, combat.RoleHealer, combat.RoleDPS}).Draw(rt, "role"),
			MaxHP:   rapid.IntRange(-50, 500).Draw(rt, "hp"),
			Attack:  rapid.IntRange(-20, 50).Draw(rt, "atk"),
			Defense: rapid.IntRange(-20, 50).Draw(rt, "def"),
		}
		c := h.Build()
		if c.MaxHP <= 0 || c.CurrentHP != c.MaxHP || c.Attack < 0 || c.Defense < 0 {
			rt.Fatalf("not normalized: %+v", c)
		}
	})
}
