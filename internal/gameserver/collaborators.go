package gameserver

import (
	"context"
	"time"

	"github.com/cory-johannsen/idlecombat/internal/game/combat"
)

// PartyProvider supplies the live party a bout is fought with.
type PartyProvider interface {
	Heroes() []*combat.Combatant
	HeroByID(id string) (*combat.Combatant, bool)
	// Tank returns the party's tank, or nil when there is none.
	Tank() *combat.Combatant
}

// Result is how a bout ended.
type Result string

const (
	ResultVictory Result = "victory"
	ResultDefeat  Result = "defeat"
	// ResultAborted marks a bout stopped by EndCombat before either side won.
	ResultAborted Result = "aborted"
)

// BoutSummary describes one finished bout.
type BoutSummary struct {
	EncounterID     string
	Result          Result
	HostileID       string
	HostileTemplate string
	HostileName     string
	Party           []string
	Survivors       int
	Adds            int
	Rounds          int
	StartedAt       time.Time
	EndedAt         time.Time
}

// Duration is the wall-clock length of the bout.
func (s BoutSummary) Duration() time.Duration { return s.EndedAt.Sub(s.StartedAt) }

// Victory reports whether the party won.
func (s BoutSummary) Victory() bool { return s.Result == ResultVictory }

// RewardCollaborator grants rewards for a won bout. It is called once per victory.
type RewardCollaborator interface {
	Award(summary BoutSummary)
}

// BoutRecorder persists a summary of every ended bout.
type BoutRecorder interface {
	RecordBout(ctx context.Context, summary BoutSummary) error
}
