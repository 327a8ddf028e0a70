package ai

import "sort"

// Registry indexes per-hostile States by combatant ID for one bout.
//
// Invariant: each hostile ID maps to exactly one State.
type Registry struct {
	states map[string]*State
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*State)}
}

// Ensure returns the State for id, creating a zero State on first use.
//
// Postcondition: Returns a non-nil State; repeated calls return the same pointer.
func (r *Registry) Ensure(id string) *State {
	s, ok := r.states[id]
	if !ok {
		s = &State{}
		r.states[id] = s
	}
	return s
}

// StateFor returns the State for id, or false if not registered.
func (r *Registry) StateFor(id string) (*State, bool) {
	s, ok := r.states[id]
	return s, ok
}

// Snapshot returns copies of every State keyed by hostile ID.
func (r *Registry) Snapshot() map[string]State {
	out := make(map[string]State, len(r.states))
	for id, s := range r.states {
		out[id] = *s
	}
	return out
}

// IDs returns the registered hostile IDs in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.states))
	for id := range r.states {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
