package ai

import (
	"fmt"
	"sync/atomic"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// Stance is the global party combat stance.
type Stance string

const (
	StanceAggressive Stance = "aggressive"
	StanceBalanced   Stance = "balanced"
	StanceDefensive  Stance = "defensive"
)

// ParseStance validates s.
func ParseStance(s string) (Stance, error) {
	switch st := Stance(s); st {
	case StanceAggressive, StanceBalanced, StanceDefensive:
		return st, nil
	}
	return "", fmt.Errorf("ai: unknown stance %q", s)
}

// ThreatMultiplier scales threat generated under this stance.
func (s Stance) ThreatMultiplier() float64 {
	switch s {
	case StanceAggressive:
		return 1.1
	case StanceDefensive:
		return 1.25
	default:
		return 1.0
	}
}

// RoleThreatMultiplier scales threat generated by an ally of role r.
func RoleThreatMultiplier(r combat.Role) float64 {
	switch r {
	case combat.RoleTank:
		return 2.0
	case combat.RoleHealer:
		return 0.5
	default:
		return 1.0
	}
}

// StanceSetting holds the stance shared by every encounter. The orchestrator
// reads it once per tick; writers may change it at any time.
//
// StanceSetting is safe for concurrent use.
type StanceSetting struct {
	v atomic.Value
}

// NewStanceSetting creates a setting holding initial.
func NewStanceSetting(initial Stance) *StanceSetting {
	s := &StanceSetting{}
	s.v.Store(initial)
	return s
}

// Get returns the current stance, balanced when unset.
func (s *StanceSetting) Get() Stance {
	if s == nil {
		return StanceBalanced
	}
	st, _ := s.v.Load().(Stance)
	if st == "" {
		return StanceBalanced
	}
	return st
}

// Set replaces the current stance.
func (s *StanceSetting) Set(st Stance) { s.v.Store(st) }
