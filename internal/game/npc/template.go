// Package npc provides hostile template definitions and spawns combatants from them.
package npc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlecombat/internal/game/ai"
	"github.com/cory-johannsen/idlecombat/internal/game/boss"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// Template defines a reusable hostile archetype loaded from YAML.
type Template struct {
	ID            string        `yaml:"id"`
	Name          string        `yaml:"name"`
	Description   string        `yaml:"description"`
	Role          combat.Role   `yaml:"role"` // boss, add, or empty for a regular hostile
	MaxHP         int           `yaml:"max_hp"`
	Attack        int           `yaml:"attack"`
	Defense       int           `yaml:"defense"`
	MaxResource   int           `yaml:"max_resource"`
	ResourceRegen int           `yaml:"resource_regen"`
	Strategy      string        `yaml:"strategy"` // targeting strategy; empty = defensive
	Abilities     []string      `yaml:"abilities"`
	Traits        combat.Traits `yaml:"traits"`
	// Mechanics are scripted boss abilities; only meaningful with role boss.
	Mechanics []*boss.Mechanic `yaml:"mechanics"`
	// XP is the experience awarded for defeating this hostile.
	XP   int        `yaml:"xp"`
	Loot *LootTable `yaml:"loot"`
	// RespawnDelay is the duration string (e.g. "5m", "30s") the idle loop rests
	// before fighting this hostile again. Empty means the loop default.
	RespawnDelay string `yaml:"respawn_delay"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHP >= 1,
// Attack and Defense >= 0, Role and Strategy are recognised, and every
// mechanic and the loot table validate; returns an error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("npc template %q: max_hp must be >= 1", t.ID)
	}
	if t.Attack < 0 || t.Defense < 0 {
		return fmt.Errorf("npc template %q: attack and defense must be >= 0", t.ID)
	}
	switch t.Role {
	case "", combat.RoleBoss, combat.RoleAdd:
	default:
		return fmt.Errorf("npc template %q: role %q must be boss, add, or empty", t.ID, t.Role)
	}
	if !ai.KnownStrategy(t.Strategy) {
		return fmt.Errorf("npc template %q: unknown strategy %q", t.ID, t.Strategy)
	}
	if len(t.Mechanics) > 0 && t.Role != combat.RoleBoss {
		return fmt.Errorf("npc template %q: mechanics require role boss", t.ID)
	}
	for _, m := range t.Mechanics {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("npc template %q: mechanic %q: %w", t.ID, m.ID, err)
		}
	}
	if t.RespawnDelay != "" {
		if _, err := time.ParseDuration(t.RespawnDelay); err != nil {
			return fmt.Errorf("npc template %q: respawn_delay %q is not a valid duration: %w", t.ID, t.RespawnDelay, err)
		}
	}
	if t.Loot != nil {
		if err := t.Loot.Validate(); err != nil {
			return fmt.Errorf("npc template %q: %w", t.ID, err)
		}
	}
	return nil
}

// Rest returns the parsed RespawnDelay, or fallback when unset.
//
// Precondition: t must have passed Validate.
func (t *Template) Rest(fallback time.Duration) time.Duration {
	if t.RespawnDelay == "" {
		return fallback
	}
	d, _ := time.ParseDuration(t.RespawnDelay)
	return d
}

// IsBoss reports whether the template spawns a boss.
func (t *Template) IsBoss() bool { return t.Role == combat.RoleBoss }

// LoadTemplateFromBytes parses a single hostile template from raw YAML bytes.
// Unknown keys are rejected.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
