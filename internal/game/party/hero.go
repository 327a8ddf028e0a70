// Package party loads the player's party roster and exposes it to the combat engine.
package party

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// Hero is the YAML definition of one party member.
type Hero struct {
	ID            string        `yaml:"id"`
	Name          string        `yaml:"name"`
	Role          combat.Role   `yaml:"role"`
	MaxHP         int           `yaml:"max_hp"`
	Attack        int           `yaml:"attack"`
	Defense       int           `yaml:"defense"`
	MaxResource   int           `yaml:"max_resource"`
	ResourceRegen int           `yaml:"resource_regen"`
	Abilities     []string      `yaml:"abilities"`
	Traits        combat.Traits `yaml:"traits"`
}

// Validate checks the hero definition.
//
// Precondition: h must not be nil.
// Postcondition: Returns nil iff ID and Name are set and Role is tank, healer, or dps.
// Missing stats are not an error; Build substitutes defaults for them.
func (h *Hero) Validate() error {
	if h.ID == "" {
		return errors.New("hero id must not be empty")
	}
	if h.Name == "" {
		return fmt.Errorf("hero %q: name must not be empty", h.ID)
	}
	switch h.Role {
	case combat.RoleTank, combat.RoleHealer, combat.RoleDPS:
	default:
		return fmt.Errorf("hero %q: role %q must be tank, healer, or dps", h.ID, h.Role)
	}
	return nil
}

// Build creates a full-health ally combatant from h.
//
// Postcondition: the combatant is normalized and owns its ability list.
func (h *Hero) Build() *combat.Combatant {
	c := &combat.Combatant{
		ID:              h.ID,
		Name:            h.Name,
		Side:            combat.SideAlly,
		Role:            h.Role,
		MaxHP:           h.MaxHP,
		CurrentHP:       h.MaxHP,
		MaxResource:     h.MaxResource,
		CurrentResource: h.MaxResource,
		ResourceRegen:   h.ResourceRegen,
		Attack:          h.Attack,
		Defense:         h.Defense,
		Traits:          h.Traits,
		Abilities:       append([]string(nil), h.Abilities...),
	}
	c.Normalize()
	return c
}
