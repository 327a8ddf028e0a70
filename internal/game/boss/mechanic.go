package boss

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/idlecombat/internal/game/dice"
)

// Kind names a scripted boss mechanic.
type Kind string

const (
	KindArea        Kind = "area"
	KindCleave      Kind = "cleave"
	KindGroupDebuff Kind = "group_debuff"
	KindSummon      Kind = "summon"
)

// Mechanic defaults.
const (
	AreaMultiplier     = 0.7
	CleaveExtraTargets = 2
	DefaultSummonCount = "2"
)

// Mechanic is one scripted ability of a boss, declared in its hostile template.
type Mechanic struct {
	ID   string `yaml:"id"`
	Kind Kind   `yaml:"kind"`
	// Chance is the per-round trigger probability; 0 means always.
	Chance   float64 `yaml:"chance"`
	Cooldown int     `yaml:"cooldown"`
	MinPhase Phase   `yaml:"min_phase"`
	// Multiplier scales the boss's attack; area defaults to 0.7, cleave to 1.0.
	Multiplier float64 `yaml:"multiplier"`
	// ExtraTargets caps cleave's additional non-tank targets.
	ExtraTargets int    `yaml:"extra_targets"`
	Effect       string `yaml:"effect"`
	Duration     int    `yaml:"duration"`
	// Template and Count configure summons; Count is a dice expression.
	Template string `yaml:"template"`
	Count    string `yaml:"count"`

	count *dice.Expression
}

// Validate checks the mechanic and fills defaults.
//
// Postcondition: on nil return, CountExpr is non-nil for summons.
func (m *Mechanic) Validate() error {
	var errs []error
	if m.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if m.Chance < 0 || m.Chance > 1 {
		errs = append(errs, fmt.Errorf("chance must be in [0, 1], got %v", m.Chance))
	}
	if m.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must be >= 0, got %d", m.Cooldown))
	}
	if m.MinPhase != "" && m.MinPhase.Rank() == 0 {
		errs = append(errs, fmt.Errorf("min_phase %q is not a phase", m.MinPhase))
	}
	switch m.Kind {
	case KindArea:
		if m.Multiplier == 0 {
			m.Multiplier = AreaMultiplier
		}
	case KindCleave:
		if m.Multiplier == 0 {
			m.Multiplier = 1
		}
		if m.ExtraTargets == 0 {
			m.ExtraTargets = CleaveExtraTargets
		}
	case KindGroupDebuff:
		if m.Effect == "" {
			errs = append(errs, errors.New("group_debuff must name an effect"))
		}
	case KindSummon:
		if m.Template == "" {
			errs = append(errs, errors.New("summon must name a template"))
		}
		if m.Count == "" {
			m.Count = DefaultSummonCount
		}
		e, err := dice.Parse(m.Count)
		if err != nil {
			errs = append(errs, fmt.Errorf("count: %w", err))
		} else {
			m.count = &e
		}
	default:
		errs = append(errs, fmt.Errorf("kind %q is not one of area, cleave, group_debuff, summon", m.Kind))
	}
	return errors.Join(errs...)
}

// CountExpr returns the parsed summon count.
func (m *Mechanic) CountExpr() *dice.Expression { return m.count }
