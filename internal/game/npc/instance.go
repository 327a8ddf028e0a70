package npc

import "github.com/cory-johannsen/idlecombat/internal/game/combat"

// NewInstance creates a hostile combatant from tmpl with the given ID.
//
// Precondition: tmpl must have passed Validate; id must be non-empty.
// Postcondition: the combatant is at full health and resource, with its own
// copy of the ability list.
func NewInstance(id string, tmpl *Template) *combat.Combatant {
	role := tmpl.Role
	if role == "" {
		role = combat.RoleAdd
	}
	c := &combat.Combatant{
		ID:              id,
		Name:            tmpl.Name,
		Side:            combat.SideHostile,
		Role:            role,
		TemplateID:      tmpl.ID,
		MaxHP:           tmpl.MaxHP,
		CurrentHP:       tmpl.MaxHP,
		MaxResource:     tmpl.MaxResource,
		CurrentResource: tmpl.MaxResource,
		ResourceRegen:   tmpl.ResourceRegen,
		Attack:          tmpl.Attack,
		Defense:         tmpl.Defense,
		Traits:          tmpl.Traits,
		Abilities:       append([]string(nil), tmpl.Abilities...),
		Strategy:        tmpl.Strategy,
	}
	c.Normalize()
	return c
}
