package combat

import (
	"math"

	"github.com/cory-johannsen/idlecombat/internal/game/condition"
	"github.com/cory-johannsen/idlecombat/internal/game/dice"
)

// EffectStore is the status-effect collaborator consulted during resolution
// and by the per-tick status processing.
type EffectStore interface {
	// Process resolves one tick of c's effects and reports the DoT/HoT totals.
	Process(c *Combatant) condition.TickResult
	// StatModifiers reports c's net attack and defense adjustments.
	StatModifiers(c *Combatant) condition.Modifiers
	// Absorb drains dmg through c's shields.
	Absorb(c *Combatant, dmg int) (remaining, absorbed int)
}

// StatusStore is the EffectStore backed by each combatant's own ActiveSet.
type StatusStore struct{}

func (StatusStore) Process(c *Combatant) condition.TickResult {
	if c.Effects == nil {
		return condition.TickResult{}
	}
	return c.Effects.Process()
}

func (StatusStore) StatModifiers(c *Combatant) condition.Modifiers {
	if c == nil || c.Effects == nil {
		return condition.Modifiers{}
	}
	return c.Effects.StatModifiers()
}

func (StatusStore) Absorb(c *Combatant, dmg int) (int, int) {
	if c == nil || c.Effects == nil {
		return dmg, 0
	}
	return c.Effects.Absorb(dmg)
}

// ResolverConfig holds the fixed probabilities and multipliers of the damage pipeline.
type ResolverConfig struct {
	MissChance           float64
	CritChance           float64
	CritMultiplier       float64
	DoubleCritMultiplier float64
	Variance             float64
}

// DefaultResolverConfig returns the stock tuning: 5% miss, 10% crit at ×1.5,
// ×2.0 double crit, ±10% variance.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MissChance:           0.05,
		CritChance:           0.10,
		CritMultiplier:       1.5,
		DoubleCritMultiplier: 2.0,
		Variance:             0.10,
	}
}

// DamageInput is one damage resolution request. Attacker and Defender are optional.
type DamageInput struct {
	Attack   int
	Defense  int
	Attacker *Combatant
	Defender *Combatant
}

// DamageResult is the resolved outcome of a DamageInput.
type DamageResult struct {
	// Amount is the damage that reaches health after shields.
	Amount         int
	Missed         bool
	Critical       bool
	DoubleCritical bool
	// Absorbed is the damage soaked by shields.
	Absorbed int
}

// Resolver turns attack and defense values into damage and heals.
type Resolver struct {
	cfg   ResolverConfig
	src   dice.Source
	store EffectStore
}

// NewResolver creates a Resolver.
//
// Precondition: src must be non-nil. A nil store uses StatusStore.
func NewResolver(cfg ResolverConfig, src dice.Source, store EffectStore) *Resolver {
	if store == nil {
		store = StatusStore{}
	}
	return &Resolver{cfg: cfg, src: src, store: store}
}

// Store returns the effect store the resolver consults.
func (r *Resolver) Store() EffectStore { return r.store }

// ResolveDamage runs the damage pipeline: stat modifiers, miss roll, base
// damage max(1, atk-def), additive elemental bonuses, build multipliers, crit
// roll, variance, defender reduction, shield absorption.
//
// Postcondition: Missed implies Amount == 0 and Absorbed == 0.
// Otherwise Amount+Absorbed >= 1 and Amount >= 0.
func (r *Resolver) ResolveDamage(in DamageInput) DamageResult {
	atk, def := in.Attack, in.Defense
	if in.Attacker != nil {
		atk = r.store.StatModifiers(in.Attacker).ApplyAttack(atk)
	}
	if in.Defender != nil {
		def = r.store.StatModifiers(in.Defender).ApplyDefense(def)
	}

	if dice.Check(r.src, "miss", r.cfg.MissChance) {
		return DamageResult{Missed: true}
	}

	base := float64(max(1, atk-def))
	dmg := base

	var res DamageResult
	if a := in.Attacker; a != nil {
		t := a.Traits
		dmg += base * (t.PhysicalPct + t.FirePct + t.ColdPct + t.LightningPct)
		if t.BerserkerPct > 0 && a.HealthFraction() < 0.5 {
			dmg *= 1 + t.BerserkerPct
		}
		dmg *= 1 + t.ExtraDamagePct
	}

	if dice.Check(r.src, "crit", r.cfg.CritChance) {
		res.Critical = true
		mult := r.cfg.CritMultiplier
		if in.Attacker != nil && dice.Check(r.src, "double_crit", in.Attacker.Traits.DoubleCritChance) {
			res.DoubleCritical = true
			mult = r.cfg.DoubleCritMultiplier
		}
		dmg *= mult
	}

	dmg *= dice.Spread(r.src, r.cfg.Variance)

	if d := in.Defender; d != nil && d.Traits.DamageReductionPct > 0 {
		dmg *= 1 - math.Min(d.Traits.DamageReductionPct, 0.95)
	}

	amount := max(1, int(math.Floor(dmg)))

	if in.Defender != nil {
		amount, res.Absorbed = r.store.Absorb(in.Defender, amount)
	}
	res.Amount = max(0, amount)
	return res
}

// ResolveHeal heals target by base × (1 + healer's healing bonus), capped at
// the target's maximum health.
//
// Postcondition: Returns the health actually restored; 0 for a dead or nil target.
func (r *Resolver) ResolveHeal(healer, target *Combatant, base int) int {
	if target == nil || !target.IsAlive() || base <= 0 {
		return 0
	}
	amount := float64(base)
	if healer != nil {
		amount *= 1 + healer.Traits.HealingBonusPct
	}
	return target.Heal(int(math.Floor(amount)))
}
