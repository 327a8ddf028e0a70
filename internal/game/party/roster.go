package party

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// File is the on-disk layout of party.yaml.
type File struct {
	Heroes []*Hero `yaml:"heroes"`
}

// Roster holds the live party combatants. The combat engine snapshots them at
// bout start and mirrors health back at bout end; Roster never mutates them mid-bout.
//
// Roster is safe for concurrent use.
type Roster struct {
	mu     sync.RWMutex
	heroes []*combat.Combatant
	defs   []*Hero
}

// NewRoster builds a roster from validated hero definitions, preserving order.
//
// Precondition: every hero must have passed Validate; IDs must be unique.
func NewRoster(heroes []*Hero) *Roster {
	r := &Roster{defs: heroes}
	for _, h := range heroes {
		r.heroes = append(r.heroes, h.Build())
	}
	return r
}

// Heroes returns the live party combatants in roster order.
func (r *Roster) Heroes() []*combat.Combatant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*combat.Combatant(nil), r.heroes...)
}

// HeroByID returns the live combatant with id.
//
// Postcondition: Returns (c, true) if found, or (nil, false) otherwise.
func (r *Roster) HeroByID(id string) (*combat.Combatant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.heroes {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Tank returns the first hero with the tank role, or nil when the party has none.
func (r *Roster) Tank() *combat.Combatant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.heroes {
		if c.Role == combat.RoleTank {
			return c
		}
	}
	return nil
}

// Rest replaces every hero with a fresh full-health copy of its definition.
//
// Postcondition: every hero is alive at full health and resource.
func (r *Roster) Rest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.defs {
		r.heroes[i] = h.Build()
	}
}

// Load reads party.yaml from path. Unknown keys are rejected.
//
// Precondition: path must be a readable file.
// Postcondition: Returns a roster with at least one hero, or a non-nil error.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading party file %q: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses a party roster from raw YAML.
//
// Postcondition: Returns a roster with at least one hero and unique IDs, or a non-nil error.
func LoadFromBytes(data []byte) (*Roster, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing party YAML: %w", err)
	}
	if len(f.Heroes) == 0 {
		return nil, fmt.Errorf("party must contain at least one hero")
	}
	seen := make(map[string]bool, len(f.Heroes))
	for _, h := range f.Heroes {
		if err := h.Validate(); err != nil {
			return nil, err
		}
		if seen[h.ID] {
			return nil, fmt.Errorf("duplicate hero id %q", h.ID)
		}
		seen[h.ID] = true
	}
	return NewRoster(f.Heroes), nil
}
