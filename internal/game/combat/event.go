package combat

import "sync"

// EventType names an outbound notification.
type EventType string

const (
	EventDamageDealt     EventType = "damage_dealt"
	EventDamageTaken     EventType = "damage_taken"
	EventCriticalHit     EventType = "critical_hit"
	EventMiss            EventType = "miss"
	EventShieldAbsorb    EventType = "shield_absorb"
	EventHeal            EventType = "heal"
	EventHostileDefeated EventType = "hostile_defeated"
	EventAllyDefeated    EventType = "ally_defeated"
	EventCombatStarted   EventType = "combat_started"
	EventCombatEnded     EventType = "combat_ended"
	EventPhaseChanged    EventType = "phase_changed"
	EventCastStarted     EventType = "cast_started"
	EventCastInterrupted EventType = "cast_interrupted"
	EventStunned         EventType = "stunned"
	EventEffectApplied   EventType = "effect_applied"
	EventAddsSummoned    EventType = "adds_summoned"
)

// Position locates a combatant for a presentation layer.
type Position struct {
	Side Side
	Slot int
}

// Event is a fire-and-forget notification carrying enough data for a
// subscriber to render it without querying the engine.
type Event struct {
	Type        EventType
	EncounterID string
	Round       int
	SourceID    string
	TargetID    string
	Position    Position // of the target, or the source when there is no target
	Amount      int
	AbilityID   string
	// Detail carries the phase name, effect ID, or mechanic name where relevant.
	Detail  string
	Victory bool
}

// Publisher accepts outbound events. Implementations must not block.
type Publisher interface {
	Publish(ev Event)
}

// Bus fans events out to subscriber channels.
// If a subscriber channel is full, the event is dropped for that subscriber.
//
// Bus is safe for concurrent use.
type Bus struct {
	mu          sync.Mutex
	subscribers map[chan<- Event]struct{}
}

// NewBus creates a Bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan<- Event]struct{})}
}

// Subscribe registers ch to receive every published Event.
//
// Precondition: ch must not be nil.
func (b *Bus) Subscribe(ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (b *Bus) Unsubscribe(ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, ch)
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]chan<- Event, 0, len(b.subscribers))
	for ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Recorder is a Publisher that keeps every event in memory.
// It is intended for simulations and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends ev.
func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns recorded events of type t in publish order.
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Fanout publishes to several publishers in order.
type Fanout []Publisher

// Publish forwards ev to every publisher.
func (f Fanout) Publish(ev Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ev)
		}
	}
}
