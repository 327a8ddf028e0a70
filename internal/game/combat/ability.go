package combat

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlecombat/internal/game/condition"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
)

// AbilityType is the execution branch of an ability.
type AbilityType string

const (
	AbilityAttack AbilityType = "attack"
	AbilityHeal   AbilityType = "heal"
	AbilityBuff   AbilityType = "buff"
	AbilityDebuff AbilityType = "debuff"
)

// Gate restricts an ability to one half of the opposing hostile's health range.
type Gate string

const (
	GateNone Gate = ""
	GateLow  Gate = "low"  // hostile health fraction < 0.5
	GateHigh Gate = "high" // hostile health fraction >= 0.5
)

// BasicAttackID is the costless fallback ability every combatant can use.
const BasicAttackID = "basic_attack"

// AbilityDef is the static definition of an ability, loaded from YAML.
// Definitions are immutable once registered.
type AbilityDef struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Type       AbilityType `yaml:"type"`
	Multiplier float64     `yaml:"multiplier"`
	Cost       int         `yaml:"cost"`
	Cooldown   int         `yaml:"cooldown"`
	CastTime   int         `yaml:"cast_time"`
	AoE        bool        `yaml:"aoe"`
	Gate       Gate        `yaml:"gate"`
	// Chance is the proc probability; 0 means always usable.
	Chance float64 `yaml:"chance"`
	// Interrupt lets an attack cancel a hostile's interruptible cast.
	Interrupt bool `yaml:"interrupt"`
	// Uninterruptible casts ignore interrupts.
	Uninterruptible bool    `yaml:"uninterruptible"`
	Effect          string  `yaml:"effect"`
	EffectDuration  int     `yaml:"effect_duration"`
	EffectMagnitude float64 `yaml:"effect_magnitude"`
	// Bonus is a dice expression added to the attack value, e.g. "1d6+2".
	Bonus string `yaml:"bonus"`
	// When is an optional boolean expression over GateEnv.
	When string `yaml:"when"`

	bonus   *dice.Expression
	program *vm.Program
}

// IsStun reports whether the ability applies the stun effect.
func (a *AbilityDef) IsStun() bool { return a.Effect == condition.Stunned }

// BonusExpr returns the parsed bonus dice expression, or nil.
func (a *AbilityDef) BonusExpr() *dice.Expression { return a.bonus }

// Validate checks invariants and compiles Bonus and When.
//
// Postcondition: on nil return, BonusExpr and the When program are ready to use.
func (a *AbilityDef) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	switch a.Type {
	case AbilityAttack, AbilityHeal, AbilityBuff, AbilityDebuff:
	default:
		errs = append(errs, fmt.Errorf("type %q is not one of attack, heal, buff, debuff", a.Type))
	}
	switch a.Gate {
	case GateNone, GateLow, GateHigh:
	default:
		errs = append(errs, fmt.Errorf("gate %q is not one of low, high", a.Gate))
	}
	if a.Multiplier < 0 {
		errs = append(errs, fmt.Errorf("multiplier must be >= 0, got %v", a.Multiplier))
	}
	if a.Cost < 0 || a.Cooldown < 0 || a.CastTime < 0 || a.EffectDuration < 0 {
		errs = append(errs, errors.New("cost, cooldown, cast_time and effect_duration must be >= 0"))
	}
	if a.Chance < 0 || a.Chance > 1 {
		errs = append(errs, fmt.Errorf("chance must be in [0, 1], got %v", a.Chance))
	}
	if (a.Type == AbilityBuff || a.Type == AbilityDebuff) && a.Effect == "" {
		errs = append(errs, fmt.Errorf("%s ability must name an effect", a.Type))
	}
	if a.Bonus != "" {
		e, err := dice.Parse(a.Bonus)
		if err != nil {
			errs = append(errs, fmt.Errorf("bonus: %w", err))
		} else {
			a.bonus = &e
		}
	}
	if a.When != "" {
		prog, err := expr.Compile(a.When, expr.Env(GateEnv{}), expr.AsBool())
		if err != nil {
			errs = append(errs, fmt.Errorf("when: %w", err))
		} else {
			a.program = prog
		}
	}
	if a.Multiplier == 0 && (a.Type == AbilityAttack || a.Type == AbilityHeal) {
		a.Multiplier = 1
	}
	return errors.Join(errs...)
}

// GateEnv is the environment a When expression is evaluated against.
type GateEnv struct {
	Round         int
	HealthPct     float64 // actor health fraction
	ResourcePct   float64
	TargetHealth  float64 // opposing primary health fraction
	AlliesAlive   int     // living members of the actor's side
	OpponentsLeft int
	Enraged       bool
	Phase         string
	Effects       []string // effect IDs active on the actor
}

// HasEffect reports whether the actor carries effect id.
func (g GateEnv) HasEffect(id string) bool {
	for _, e := range g.Effects {
		if e == id {
			return true
		}
	}
	return false
}

// Allows evaluates the When expression. Abilities without one always pass;
// a runtime failure is treated as false.
func (a *AbilityDef) Allows(env GateEnv) bool {
	if a.program == nil {
		return true
	}
	out, err := vm.Run(a.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// Catalog holds all known AbilityDefs keyed by ID.
type Catalog struct {
	defs map[string]*AbilityDef
}

// NewCatalog returns a Catalog containing only the basic attack.
//
// Postcondition: Get(BasicAttackID) succeeds.
func NewCatalog() *Catalog {
	c := &Catalog{defs: make(map[string]*AbilityDef)}
	c.defs[BasicAttackID] = &AbilityDef{
		ID: BasicAttackID, Name: "Attack", Type: AbilityAttack, Multiplier: 1,
	}
	return c
}

// Register validates def and adds it, overwriting any entry with the same ID.
//
// Precondition: def must not be nil.
// Postcondition: on nil error, Get(def.ID) returns def.
func (c *Catalog) Register(def *AbilityDef) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("ability %q: %w", def.ID, err)
	}
	c.defs[def.ID] = def
	return nil
}

// Get returns the definition for id, or (nil, false) if not found.
func (c *Catalog) Get(id string) (*AbilityDef, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// Basic returns the basic attack definition.
func (c *Catalog) Basic() *AbilityDef { return c.defs[BasicAttackID] }

// IDs returns every registered ability ID in sorted order.
func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.defs))
	for id := range c.defs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadAbilities reads every *.yaml file in dir. Each file holds a YAML
// sequence of ability definitions.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a Catalog including the basic attack, or the first load error.
func LoadAbilities(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
	}
	cat := NewCatalog()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var defs []*AbilityDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&defs); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, d := range defs {
			if err := cat.Register(d); err != nil {
				return nil, fmt.Errorf("loading %q: %w", path, err)
			}
		}
	}
	return cat, nil
}
