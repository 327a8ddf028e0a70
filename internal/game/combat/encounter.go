package combat

import "time"

// Phase tags the encounter's behavioural tier.
type Phase string

const (
	PhaseNormal   Phase = "normal"
	PhaseEnraged  Phase = "enraged"
	PhaseAdaptive Phase = "adaptive"
)

// Encounter is the single source of truth for one bout. Allies and Hostiles
// hold snapshots; the live party objects are only written back when the bout ends.
//
// Invariant: TurnOwner alternates strictly; Round never decreases; End succeeds once.
type Encounter struct {
	ID       string
	Allies   []*Combatant
	Hostiles []*Combatant // Hostiles[0] is the primary hostile; adds are appended
	// Adds lists the IDs of hostiles spawned during the bout.
	Adds      []string
	TurnOwner Side
	Round     int
	Phase     Phase
	StartedAt time.Time

	ended   bool
	victory bool
}

// NewEncounter builds an encounter from already-snapshotted combatants.
// The ally side owns the first turn and Round starts at 1.
//
// Precondition: hostiles must contain at least one combatant.
// Postcondition: every combatant is normalized.
func NewEncounter(id string, allies, hostiles []*Combatant, phase Phase, now time.Time) *Encounter {
	for _, c := range allies {
		c.Side = SideAlly
		c.Normalize()
	}
	for _, c := range hostiles {
		c.Side = SideHostile
		c.Normalize()
	}
	if phase == "" {
		phase = PhaseNormal
	}
	return &Encounter{
		ID:        id,
		Allies:    allies,
		Hostiles:  hostiles,
		TurnOwner: SideAlly,
		Round:     1,
		Phase:     phase,
		StartedAt: now,
	}
}

// Primary returns the hostile whose defeat ends the bout in the party's favour.
func (e *Encounter) Primary() *Combatant {
	if len(e.Hostiles) == 0 {
		return nil
	}
	return e.Hostiles[0]
}

// FlipTurn hands the turn to the other side and advances the round counter.
//
// Postcondition: TurnOwner is the opposite side; Round is incremented by 1.
func (e *Encounter) FlipTurn() {
	e.TurnOwner = e.TurnOwner.Opposite()
	e.Round++
}

// End marks the encounter terminated.
//
// Postcondition: Returns true only on the first call; later calls change nothing.
func (e *Encounter) End(victory bool) bool {
	if e.ended {
		return false
	}
	e.ended = true
	e.victory = victory
	return true
}

// Ended reports whether End has been called.
func (e *Encounter) Ended() bool { return e.ended }

// Victory reports whether the party won. Only meaningful once Ended is true.
func (e *Encounter) Victory() bool { return e.victory }

// AddHostile appends a spawned add to the hostile side.
func (e *Encounter) AddHostile(c *Combatant) {
	c.Side = SideHostile
	c.Normalize()
	e.Hostiles = append(e.Hostiles, c)
	e.Adds = append(e.Adds, c.ID)
}

// Find returns the combatant with id on either side, or nil.
func (e *Encounter) Find(id string) *Combatant {
	for _, c := range e.Allies {
		if c.ID == id {
			return c
		}
	}
	for _, c := range e.Hostiles {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Side returns the combatants of side s.
func (e *Encounter) Side(s Side) []*Combatant {
	if s == SideHostile {
		return e.Hostiles
	}
	return e.Allies
}

// LivingAllies returns the allies still standing, in party order.
func (e *Encounter) LivingAllies() []*Combatant { return Living(e.Allies) }

// LivingHostiles returns the hostiles still standing, primary first.
func (e *Encounter) LivingHostiles() []*Combatant { return Living(e.Hostiles) }

// Opponents returns the living combatants on the other side from c.
func (e *Encounter) Opponents(c *Combatant) []*Combatant {
	return Living(e.Side(c.Side.Opposite()))
}

// Friends returns the living combatants on c's side, c included.
func (e *Encounter) Friends(c *Combatant) []*Combatant {
	return Living(e.Side(c.Side))
}

// Snapshot returns a deep copy suitable for read-only queries.
func (e *Encounter) Snapshot() *Encounter {
	cp := *e
	cp.Allies = snapshotAll(e.Allies)
	cp.Hostiles = snapshotAll(e.Hostiles)
	cp.Adds = append([]string(nil), e.Adds...)
	return &cp
}

func snapshotAll(cs []*Combatant) []*Combatant {
	out := make([]*Combatant, len(cs))
	for i, c := range cs {
		out[i] = c.Snapshot()
	}
	return out
}

// Living filters cs down to combatants that are alive, preserving order.
func Living(cs []*Combatant) []*Combatant {
	out := make([]*Combatant, 0, len(cs))
	for _, c := range cs {
		if c.IsAlive() {
			out = append(out, c)
		}
	}
	return out
}

// AverageHealth returns the mean health fraction of the living members of cs,
// or 0 when none are alive.
func AverageHealth(cs []*Combatant) float64 {
	var sum float64
	n := 0
	for _, c := range cs {
		if c.IsAlive() {
			sum += c.HealthFraction()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// FirstWithRole returns the first living combatant in cs with role r, or nil.
func FirstWithRole(cs []*Combatant, r Role) *Combatant {
	for _, c := range cs {
		if c.IsAlive() && c.Role == r {
			return c
		}
	}
	return nil
}

// SlotOf returns the index of id in its side's slice, or -1.
func (e *Encounter) SlotOf(c *Combatant) int {
	for i, o := range e.Side(c.Side) {
		if o.ID == c.ID {
			return i
		}
	}
	return -1
}
