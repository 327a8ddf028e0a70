package condition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlecombat/internal/game/condition"
)

func TestRegistry_Get(t *testing.T) {
	reg := condition.NewRegistry()
	def := &condition.EffectDef{ID: "ward", Kind: condition.KindMarker}
	reg.Register(def)
	got, ok := reg.Get("ward")
	require.True(t, ok)
	assert.Equal(t, def, got)
	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_All_Sorted(t *testing.T) {
	reg := condition.NewRegistry()
	reg.Register(&condition.EffectDef{ID: "b", Kind: condition.KindMarker})
	reg.Register(&condition.EffectDef{ID: "a", Kind: condition.KindMarker})
	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
}

func TestDefaultRegistry_Builtins(t *testing.T) {
	reg := condition.DefaultRegistry()
	for _, d := range reg.All() {
		assert.NoError(t, d.Validate(), d.ID)
	}
	w, ok := reg.Get(condition.Weakened)
	require.True(t, ok)
	assert.Equal(t, condition.KindAttackMod, w.Kind)
	assert.Less(t, w.Magnitude, 0.0)
	_, ok = reg.Get(condition.Stunned)
	assert.True(t, ok)
}

func TestEffectDef_Validate(t *testing.T) {
	d := &condition.EffectDef{ID: "", Kind: "poison", MaxStacks: -1}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "kind")
	assert.Contains(t, err.Error(), "max_stacks")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "venom.yaml"), []byte(`
id: venom
name: Venom
kind: dot
magnitude: 6
duration: 4
max_stacks: 2
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	reg, err := condition.LoadDirectory(dir)
	require.NoError(t, err)
	v, ok := reg.Get("venom")
	require.True(t, ok)
	assert.Equal(t, condition.KindDoT, v.Kind)
	assert.Equal(t, 2, v.MaxStacks)
	_, ok = reg.Get(condition.Weakened)
	assert.True(t, ok, "built-ins remain available")
}

func TestLoadDirectory_UnknownField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nkind: dot\npotency: 3\n"), 0644))
	_, err := condition.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_InvalidKind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nkind: curse\n"), 0644))
	_, err := condition.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := condition.LoadDirectory("/nonexistent")
	assert.Error(t, err)
}
