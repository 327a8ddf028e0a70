package npc_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlecombat/internal/game/boss"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/npc"
)

const lichYAML = `
id: lich
name: Lich King
description: A crowned corpse wreathed in frost.
role: boss
max_hp: 1200
attack: 24
defense: 6
max_resource: 100
resource_regen: 10
strategy: boss
abilities: [shadow_bolt, frost_nova]
traits:
  cold_pct: 0.2
mechanics:
  - id: raise_dead
    kind: summon
    template: skeleton
    count: 1d2+1
    cooldown: 6
    min_phase: phase2
  - id: soul_rend
    kind: cleave
    chance: 0.25
xp: 500
loot:
  currency: {min: 50, max: 90}
respawn_delay: 30s
`

const skeletonYAML = `
id: skeleton
name: Skeleton
role: add
max_hp: 40
attack: 8
defense: 1
`

func TestLoadTemplateFromBytes(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(lichYAML))
	require.NoError(t, err)
	assert.Equal(t, "lich", tmpl.ID)
	assert.True(t, tmpl.IsBoss())
	assert.Equal(t, []string{"shadow_bolt", "frost_nova"}, tmpl.Abilities)
	assert.InDelta(t, 0.2, tmpl.Traits.ColdPct, 1e-9)
	require.Len(t, tmpl.Mechanics, 2)
	assert.Equal(t, boss.KindSummon, tmpl.Mechanics[0].Kind)
	assert.NotNil(t, tmpl.Mechanics[0].CountExpr())
	assert.Equal(t, 2, tmpl.Mechanics[1].ExtraTargets, "cleave default filled by Validate")
	assert.Equal(t, 30*time.Second, tmpl.Rest(time.Second))
}

func TestLoadTemplateFromBytes_RejectsUnknownKeys(t *testing.T) {
	_, err := npc.LoadTemplateFromBytes([]byte("id: x\nname: X\nmax_hp: 5\nac: 14\n"))
	assert.Error(t, err)
}

func TestTemplate_Validate(t *testing.T) {
	base := func() *npc.Template { return &npc.Template{ID: "ogre", Name: "Ogre", MaxHP: 10} }
	require.NoError(t, base().Validate())

	cases := map[string]func(*npc.Template){
		"no id":           func(t *npc.Template) { t.ID = "" },
		"no name":         func(t *npc.Template) { t.Name = "" },
		"no hp":           func(t *npc.Template) { t.MaxHP = 0 },
		"negative attack": func(t *npc.Template) { t.Attack = -1 },
		"bad role":        func(t *npc.Template) { t.Role = combat.RoleTank },
		"bad strategy":    func(t *npc.Template) { t.Strategy = "cowardly" },
		"bad delay":       func(t *npc.Template) { t.RespawnDelay = "soon" },
		"mechanic on add": func(t *npc.Template) {
			t.Mechanics = []*boss.Mechanic{{ID: "nova", Kind: boss.KindArea}}
		},
		"bad loot": func(t *npc.Template) { t.Loot = &npc.LootTable{Currency: &npc.CurrencyDrop{Min: 5, Max: 1}} },
	}
	for name, mutate := range cases {
		tmpl := base()
		mutate(tmpl)
		assert.Error(t, tmpl.Validate(), name)
	}
}

func TestTemplate_RestFallback(t *testing.T) {
	tmpl := &npc.Template{ID: "ogre", Name: "Ogre", MaxHP: 10}
	assert.Equal(t, 2*time.Second, tmpl.Rest(2*time.Second))
}

func TestProperty_Template_ValidRespawnDelay(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.IntRange(1, 3600).Draw(rt, "value")
		unit := rapid.SampledFrom([]string{"s", "m", "h"}).Draw(rt, "unit")
		data := fmt.Sprintf("id: ogre\nname: Ogre\nmax_hp: 10\nrespawn_delay: \"%d%s\"\n", value, unit)
		tmpl, err := npc.LoadTemplateFromBytes([]byte(data))
		if err != nil {
			rt.Fatalf("valid delay rejected: %v", err)
		}
		if tmpl.Rest(0) <= 0 {
			rt.Fatalf("rest %v not positive", tmpl.Rest(0))
		}
	})
}

func TestLoadTemplates_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lich.yaml"), []byte(lichYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skeleton.yaml"), []byte(skeletonYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestLoadTemplates_Errors(t *testing.T) {
	_, err := npc.LoadTemplates("/nonexistent")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nname: X\n"), 0644))
	_, err = npc.LoadTemplates(dir)
	assert.Error(t, err)
}
