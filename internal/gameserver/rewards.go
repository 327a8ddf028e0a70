package gameserver

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/dice"
	"github.com/cory-johannsen/idlecombat/internal/game/npc"
)

// Ledger accumulates rewards across bouts.
type Ledger struct {
	XP       int
	Currency int
	Items    map[string]int // item ID → quantity
	Bouts    int
}

// LootRewarder awards a defeated hostile's template XP and rolls its loot table.
// It is safe for concurrent use.
type LootRewarder struct {
	templates *npc.Registry
	src       dice.Source
	logger    *zap.Logger

	mu     sync.Mutex
	ledger Ledger
}

// NewLootRewarder creates a rewarder over templates.
//
// Precondition: templates, src, and logger must be non-nil.
func NewLootRewarder(templates *npc.Registry, src dice.Source, logger *zap.Logger) *LootRewarder {
	return &LootRewarder{
		templates: templates,
		src:       src,
		logger:    logger,
		ledger:    Ledger{Items: make(map[string]int)},
	}
}

// Award adds the template's XP and rolled loot to the ledger. Bouts against
// hostiles without a registered template still count but grant nothing.
func (r *LootRewarder) Award(summary BoutSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledger.Bouts++

	tmpl, ok := r.templates.Get(summary.HostileTemplate)
	if !ok {
		r.logger.Warn("no template for defeated hostile",
			zap.String("encounter", summary.EncounterID),
			zap.String("template", summary.HostileTemplate),
		)
		return
	}
	r.ledger.XP += tmpl.XP

	var loot npc.LootResult
	if tmpl.Loot != nil {
		loot = npc.GenerateLoot(*tmpl.Loot, r.src)
	}
	r.ledger.Currency += loot.Currency
	for _, item := range loot.Items {
		r.ledger.Items[item.ItemDefID] += item.Quantity
	}
	r.logger.Info("rewards granted",
		zap.String("encounter", summary.EncounterID),
		zap.Int("xp", tmpl.XP),
		zap.Int("currency", loot.Currency),
		zap.Int("items", len(loot.Items)),
	)
}

// Totals returns a copy of the accumulated ledger.
func (r *LootRewarder) Totals() Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ledger
	out.Items = make(map[string]int, len(r.ledger.Items))
	for k, v := range r.ledger.Items {
		out.Items[k] = v
	}
	return out
}
