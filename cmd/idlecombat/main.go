// Package main runs the idle combat loop: a party fights one hostile
// template bout after bout until the process is signalled.
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/config"
	"github.com/cory-johannsen/idlecombat/internal/game/action"
	"github.com/cory-johannsen/idlecombat/internal/game/ai"
	"github.com/cory-johannsen/idlecombat/internal/game/boss"
	"github.com/cory-johannsen/idlecombat/internal/game/combat"
	"github.com/cory-johannsen/idlecombat/internal/game/condition"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
	"github.com/cory-johannsen/idlecombat/internal/game/npc"
	"github.com/cory-johannsen/idlecombat/internal/game/party"
	"github.com/cory-johannsen/idlecombat/internal/game/threat"
	"github.com/cory-johannsen/idlecombat/internal/gameserver"
	"github.com/cory-johannsen/idlecombat/internal/observability"
	"github.com/cory-johannsen/idlecombat/internal/scripting"
	"github.com/cory-johannsen/idlecombat/internal/server"
	"github.com/cory-johannsen/idlecombat/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	hostileFlag := flag.String("hostile", "", "hostile template to fight; overrides loop.hostile")
	seed := flag.Uint64("seed", 0, "seed for a reproducible run; 0 = crypto randomness")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	src := dice.NewCryptoSource()
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
	}
	roller := dice.NewLoggedRoller(src, logger)

	// Content
	contentStart := time.Now()
	catalog, err := combat.LoadAbilities(cfg.Content.AbilitiesDir)
	if err != nil {
		logger.Fatal("loading abilities", zap.Error(err))
	}
	effects := condition.DefaultRegistry()
	if cfg.Content.EffectsDir != "" {
		effects, err = condition.LoadDirectory(cfg.Content.EffectsDir)
		if err != nil {
			logger.Fatal("loading effects", zap.Error(err))
		}
	}
	tmpls, err := npc.LoadTemplates(cfg.Content.HostilesDir)
	if err != nil {
		logger.Fatal("loading hostile templates", zap.Error(err))
	}
	templates := npc.NewRegistry(tmpls)
	for id, unknown := range templates.UnknownAbilities(catalog) {
		logger.Fatal("hostile references unknown abilities",
			zap.String("template", id),
			zap.Strings("abilities", unknown),
		)
	}
	if missing := templates.UnknownTemplates(); len(missing) > 0 {
		logger.Fatal("summon mechanics reference unknown templates", zap.Strings("templates", missing))
	}
	roster, err := party.Load(cfg.Content.PartyFile)
	if err != nil {
		logger.Fatal("loading party", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("abilities", len(catalog.IDs())),
		zap.Int("effects", len(effects.All())),
		zap.Int("hostiles", len(tmpls)),
		zap.Int("heroes", len(roster.Heroes())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	hostile := cfg.Loop.Hostile
	if *hostileFlag != "" {
		hostile = *hostileFlag
	}

	// Scripting
	var damageHook action.DamageHook
	var phaseHook boss.PhaseHook
	if cfg.Content.ScriptsDir != "" {
		scriptMgr := scripting.NewManager(roller, logger, 0)
		defer scriptMgr.Close()
		if err := scriptMgr.LoadGlobal(cfg.Content.ScriptsDir); err != nil {
			logger.Fatal("loading global scripts", zap.Error(err))
		}
		if err := scriptMgr.LoadScope(hostile, filepath.Join(cfg.Content.ScriptsDir, hostile)); err != nil {
			logger.Warn("no encounter scripts loaded", zap.String("hostile", hostile), zap.Error(err))
		}
		hooks := scriptMgr.Hooks(hostile)
		damageHook, phaseHook = hooks, hooks
		logger.Info("scripting enabled", zap.Strings("scopes", scriptMgr.Scopes()))
	}

	// Bout history
	var recorder gameserver.BoutRecorder
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		recorder = postgres.NewBoutRepository(pool.DB())
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
	}

	stance, err := ai.ParseStance(cfg.Combat.Stance)
	if err != nil {
		logger.Fatal("parsing stance", zap.Error(err))
	}

	bus := combat.NewBus()
	events := make(chan combat.Event, 256)
	bus.Subscribe(events)
	go logEvents(events, logger)

	rewards := gameserver.NewLootRewarder(templates, roller, logger)
	orch := gameserver.NewOrchestrator(gameserver.Config{
		Speed:              cfg.Combat.Speed,
		AdaptationInterval: cfg.Combat.AdaptationInterval,
		Threat: threat.Config{
			DecayInterval: cfg.Combat.ThreatDecayInterval,
			DecayFactor:   cfg.Combat.ThreatDecayFactor,
		},
		Action: action.Config{
			InterruptCooldown: cfg.Combat.InterruptCooldown,
			BuffDuration:      cfg.Combat.BuffDuration,
		},
	}, gameserver.Deps{
		Catalog: catalog,
		Effects: effects,
		Resolver: combat.NewResolver(combat.ResolverConfig{
			MissChance:           cfg.Combat.MissChance,
			CritChance:           cfg.Combat.CritChance,
			CritMultiplier:       cfg.Combat.CritMultiplier,
			DoubleCritMultiplier: cfg.Combat.DoubleCritMultiplier,
			Variance:             cfg.Combat.Variance,
		}, roller, nil),
		Source:     roller,
		Templates:  templates,
		Publisher:  bus,
		Scheduler:  gameserver.NewTimerScheduler(),
		Stance:     ai.NewStanceSetting(stance),
		DamageHook: damageHook,
		PhaseHook:  phaseHook,
		Rewards:    rewards,
		Recorder:   recorder,
		Logger:     logger,
	})

	loop, err := gameserver.NewIdleLoop(gameserver.LoopConfig{
		Hostile: hostile,
		Rest:    cfg.Loop.Rest,
	}, orch, roster, templates, logger)
	if err != nil {
		logger.Fatal("creating idle loop", zap.Error(err))
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("idle-loop", &server.FuncService{
		StartFn: loop.Run,
		StopFn:  loop.Stop,
	})

	logger.Info("idle combat ready",
		zap.String("hostile", hostile),
		zap.String("stance", string(stance)),
		zap.Duration("speed", cfg.Combat.Speed),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("lifecycle error", zap.Error(err))
	}
	bus.Unsubscribe(events)

	totals := rewards.Totals()
	logger.Info("session totals",
		zap.Int("bouts", totals.Bouts),
		zap.Int("xp", totals.XP),
		zap.Int("currency", totals.Currency),
		zap.Any("items", totals.Items),
	)
}

// logEvents writes every combat event at debug level.
func logEvents(events <-chan combat.Event, logger *zap.Logger) {
	for ev := range events {
		logger.Debug("combat event",
			zap.String("type", string(ev.Type)),
			zap.String("encounter", ev.EncounterID),
			zap.Int("round", ev.Round),
			zap.String("source", ev.SourceID),
			zap.String("target", ev.TargetID),
			zap.Int("amount", ev.Amount),
			zap.String("detail", ev.Detail),
		)
	}
}
