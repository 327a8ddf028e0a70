package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/npc"
)

// RestingParty is a PartyProvider that can be restored between bouts.
type RestingParty interface {
	PartyProvider
	Rest()
}

// LoopConfig drives an IdleLoop.
type LoopConfig struct {
	// Hostile is the template ID spawned for every bout.
	Hostile string
	// Rest is the pause between bouts when the template names no respawn delay.
	Rest time.Duration
}

// IdleLoop fights bout after bout against one hostile template until stopped.
type IdleLoop struct {
	cfg       LoopConfig
	orch      *Orchestrator
	party     RestingParty
	templates *npc.Registry
	logger    *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIdleLoop creates a stopped IdleLoop.
//
// Precondition: orch, party, templates, and logger must be non-nil.
// Postcondition: Returns an error when cfg.Hostile names no template.
func NewIdleLoop(cfg LoopConfig, orch *Orchestrator, party RestingParty, templates *npc.Registry, logger *zap.Logger) (*IdleLoop, error) {
	if _, ok := templates.Get(cfg.Hostile); !ok {
		return nil, fmt.Errorf("idle loop: unknown hostile template %q", cfg.Hostile)
	}
	return &IdleLoop{
		cfg:       cfg,
		orch:      orch,
		party:     party,
		templates: templates,
		logger:    logger,
		stop:      make(chan struct{}),
	}, nil
}

// Run fights bouts until ctx is cancelled or Stop is called. A bout running
// at that moment is ended without a winner.
//
// Postcondition: Returns nil on a requested stop; an error when a bout could
// not be started.
func (l *IdleLoop) Run(ctx context.Context) error {
	tmpl, _ := l.templates.Get(l.cfg.Hostile)
	rest := tmpl.Rest(l.cfg.Rest)

	for bouts := 0; ; bouts++ {
		hostile, err := l.templates.Spawn(l.cfg.Hostile)
		if err != nil {
			return fmt.Errorf("idle loop: spawning %q: %w", l.cfg.Hostile, err)
		}
		if !l.orch.StartFromProvider(l.party, hostile) {
			return fmt.Errorf("idle loop: bout %d against %q did not start", bouts+1, hostile.ID)
		}

		select {
		case <-l.orch.Done():
		case <-ctx.Done():
			l.orch.EndCombat()
			return nil
		case <-l.stop:
			l.orch.EndCombat()
			return nil
		}

		if s, ok := l.orch.LastSummary(); ok {
			l.logger.Info("bout complete",
				zap.String("encounter", s.EncounterID),
				zap.String("result", string(s.Result)),
				zap.Int("rounds", s.Rounds),
				zap.Int("survivors", s.Survivors),
				zap.Duration("duration", s.Duration()),
				zap.Int("bouts", bouts+1),
			)
		}
		l.party.Rest()

		timer := time.NewTimer(rest)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-l.stop:
			timer.Stop()
			return nil
		}
	}
}

// Stop ends Run. Calling Stop is idempotent.
func (l *IdleLoop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
