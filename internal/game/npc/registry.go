package npc

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// Registry holds hostile templates by ID and spawns combatants from them.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
	counter   atomic.Uint64
}

// NewRegistry creates a Registry holding templates.
//
// Postcondition: Get(t.ID) succeeds for every t in templates.
func NewRegistry(templates []*Template) *Registry {
	r := &Registry{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		r.templates[t.ID] = t
	}
	return r
}

// Register adds or replaces tmpl.
//
// Precondition: tmpl must have passed Validate.
func (r *Registry) Register(tmpl *Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[tmpl.ID] = tmpl
}

// Get returns the template with id.
//
// Postcondition: Returns (tmpl, true) if found, or (nil, false) otherwise.
func (r *Registry) Get(id string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	return t, ok
}

// All returns every template sorted by ID.
func (r *Registry) All() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Spawn creates a new combatant from templateID with a unique ID.
//
// Postcondition: Returns an error if the template is unknown.
func (r *Registry) Spawn(templateID string) (*combat.Combatant, error) {
	tmpl, ok := r.Get(templateID)
	if !ok {
		return nil, fmt.Errorf("npc.Registry.Spawn: unknown template %q", templateID)
	}
	n := r.counter.Add(1)
	return NewInstance(fmt.Sprintf("%s-%d", tmpl.ID, n), tmpl), nil
}

// UnknownAbilities lists, per template ID, ability IDs the catalog lacks.
// Those abilities are skipped at runtime in favour of the basic attack.
func (r *Registry) UnknownAbilities(cat *combat.Catalog) map[string][]string {
	out := make(map[string][]string)
	for _, t := range r.All() {
		for _, id := range t.Abilities {
			if _, ok := cat.Get(id); !ok {
				out[t.ID] = append(out[t.ID], id)
			}
		}
	}
	return out
}

// UnknownTemplates lists summon templates referenced by boss mechanics that
// are not registered.
func (r *Registry) UnknownTemplates() []string {
	var out []string
	for _, t := range r.All() {
		for _, m := range t.Mechanics {
			if m.Template == "" {
				continue
			}
			if _, ok := r.Get(m.Template); !ok {
				out = append(out, fmt.Sprintf("%s/%s", t.ID, m.Template))
			}
		}
	}
	return out
}
