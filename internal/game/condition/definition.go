// Package condition is the status-effect store: effect definitions, the
// per-combatant set of active effects, and the modifiers they contribute.
package condition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind classifies what an effect does each tick or to resolved damage.
type Kind string

const (
	KindDoT        Kind = "dot"         // damage per tick
	KindHoT        Kind = "hot"         // healing per tick
	KindAttackMod  Kind = "attack_mod"  // fractional attack modifier, e.g. -0.25
	KindDefenseMod Kind = "defense_mod" // fractional defense modifier
	KindShield     Kind = "shield"      // absorption pool
	KindStun       Kind = "stun"        // skips the holder's action
	KindMarker     Kind = "marker"      // no mechanical effect; read by gates and scripts
)

var validKinds = map[Kind]bool{
	KindDoT: true, KindHoT: true, KindAttackMod: true, KindDefenseMod: true,
	KindShield: true, KindStun: true, KindMarker: true,
}

// Well-known effect IDs applied by the combat core itself.
const (
	Weakened = "weakened"
	Stunned  = "stunned"
)

// EffectDef is the static definition of a status effect, loaded from YAML.
type EffectDef struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Kind        Kind    `yaml:"kind"`
	Magnitude   float64 `yaml:"magnitude"` // default magnitude when the applier supplies none
	Duration    int     `yaml:"duration"`  // default ticks; -1 = permanent
	MaxStacks   int     `yaml:"max_stacks"`
	Beneficial  bool    `yaml:"beneficial"`
	// PartyWide marks effects that count as a party-wide buff granted by their source.
	PartyWide bool `yaml:"party_wide"`
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil if the definition is usable, or an error describing all violations.
func (d *EffectDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if !validKinds[d.Kind] {
		errs = append(errs, fmt.Errorf("kind %q is not one of dot, hot, attack_mod, defense_mod, shield, stun, marker", d.Kind))
	}
	if d.MaxStacks < 0 {
		errs = append(errs, fmt.Errorf("max_stacks must be >= 0, got %d", d.MaxStacks))
	}
	if d.Duration < -1 {
		errs = append(errs, fmt.Errorf("duration must be >= -1, got %d", d.Duration))
	}
	return errors.Join(errs...)
}

// Registry holds all known EffectDefs keyed by ID.
type Registry struct {
	defs map[string]*EffectDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*EffectDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *EffectDef) {
	r.defs[def.ID] = def
}

// Get returns the EffectDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*EffectDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all registered EffectDefs ordered by ID.
func (r *Registry) All() []*EffectDef {
	out := make([]*EffectDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultRegistry returns a Registry pre-populated with the built-in effects
// the combat core applies on its own (weakened, stunned) plus a small stock set.
//
// Postcondition: Get(Weakened) and Get(Stunned) succeed.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, d := range []*EffectDef{
		{ID: Weakened, Name: "Weakened", Kind: KindAttackMod, Magnitude: -0.25, Duration: 3},
		{ID: Stunned, Name: "Stunned", Kind: KindStun, Duration: 2},
		{ID: "empowered", Name: "Empowered", Kind: KindAttackMod, Magnitude: 0.25, Duration: 3, Beneficial: true},
		{ID: "rallied", Name: "Rallied", Kind: KindAttackMod, Magnitude: 0.10, Duration: 3, Beneficial: true, PartyWide: true},
		{ID: "fortified", Name: "Fortified", Kind: KindDefenseMod, Magnitude: 0.30, Duration: 3, Beneficial: true},
		{ID: "exposed", Name: "Exposed", Kind: KindDefenseMod, Magnitude: -0.25, Duration: 3},
		{ID: "barrier", Name: "Barrier", Kind: KindShield, Magnitude: 40, Duration: 5, Beneficial: true},
		{ID: "bleeding", Name: "Bleeding", Kind: KindDoT, Magnitude: 4, Duration: 3, MaxStacks: 3},
		{ID: "regeneration", Name: "Regeneration", Kind: KindHoT, Magnitude: 5, Duration: 3, Beneficial: true},
	} {
		reg.Register(d)
	}
	return reg
}

// LoadDirectory reads every *.yaml file in dir, parses each as an EffectDef,
// and registers it into a DefaultRegistry, overriding built-ins with the same ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := DefaultRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def EffectDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
