// Package combat holds the data model of an idle party bout: combatants, the
// encounter record, ability definitions, damage resolution, and the outbound
// event bus.
package combat

import "github.com/cory-johannsen/idlecombat/internal/game/condition"

// Side distinguishes the party from its opponents.
type Side int

const (
	SideAlly Side = iota
	SideHostile
)

// String returns "ally" or "hostile".
func (s Side) String() string {
	if s == SideHostile {
		return "hostile"
	}
	return "ally"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideAlly {
		return SideHostile
	}
	return SideAlly
}

// Role tags a combatant for threat multipliers and targeting priority.
type Role string

const (
	RoleTank   Role = "tank"
	RoleHealer Role = "healer"
	RoleDPS    Role = "dps"
	RoleBoss   Role = "boss"
	RoleAdd    Role = "add"
)

// Baseline stats substituted for missing data.
const (
	DefaultMaxHP = 100
)

// Traits are build markers that feed damage resolution, power threat, and
// some targeting strategies. Percentages are fractions (0.1 == 10%).
type Traits struct {
	LifeSteal          float64 `yaml:"life_steal"`
	StunChance         float64 `yaml:"stun_chance"`
	PhysicalPct        float64 `yaml:"physical_pct"`
	FirePct            float64 `yaml:"fire_pct"`
	ColdPct            float64 `yaml:"cold_pct"`
	LightningPct       float64 `yaml:"lightning_pct"`
	ExtraDamagePct     float64 `yaml:"extra_damage_pct"`
	BerserkerPct       float64 `yaml:"berserker_pct"` // applies while below half health
	DoubleCritChance   float64 `yaml:"double_crit_chance"`
	DamageReductionPct float64 `yaml:"damage_reduction_pct"`
	HealingBonusPct    float64 `yaml:"healing_bonus_pct"`
	Bloodline          string  `yaml:"bloodline"`
}

// Cast is an ability in progress on a hostile.
type Cast struct {
	AbilityID     string
	Remaining     int
	Interruptible bool
	TargetID      string
}

// Combatant represents one participant in a bout, ally or hostile.
type Combatant struct {
	ID         string
	Name       string
	Side       Side
	Role       Role
	TemplateID string

	MaxHP           int
	CurrentHP       int
	MaxResource     int
	CurrentResource int
	ResourceRegen   int
	Attack          int
	Defense         int

	Traits    Traits
	Abilities []string
	// Strategy names the targeting strategy of a hostile.
	Strategy string

	Effects   *condition.ActiveSet
	Cooldowns map[string]int
	Casting   *Cast
	// LastAbility is the ID of the ability most recently resolved, for combo scoring.
	LastAbility string

	defeated bool
}

// Normalize substitutes baseline defaults for missing stat data and allocates
// nil collections.
//
// Postcondition: MaxHP > 0; 0 <= CurrentHP <= MaxHP; Attack, Defense >= 0;
// Effects and Cooldowns are non-nil.
func (c *Combatant) Normalize() {
	if c.MaxHP <= 0 {
		c.MaxHP = DefaultMaxHP
		if c.CurrentHP <= 0 {
			c.CurrentHP = c.MaxHP
		}
	}
	if c.CurrentHP > c.MaxHP {
		c.CurrentHP = c.MaxHP
	}
	if c.CurrentHP < 0 {
		c.CurrentHP = 0
	}
	if c.Attack < 0 {
		c.Attack = 0
	}
	if c.Defense < 0 {
		c.Defense = 0
	}
	if c.MaxResource < 0 {
		c.MaxResource = 0
	}
	c.CurrentResource = clamp(c.CurrentResource, 0, c.MaxResource)
	if c.Effects == nil {
		c.Effects = condition.NewActiveSet()
	}
	if c.Cooldowns == nil {
		c.Cooldowns = make(map[string]int)
	}
	if c.CurrentHP == 0 {
		c.defeated = true
	}
}

// IsAlive reports whether the combatant can still act and be targeted.
func (c *Combatant) IsAlive() bool {
	return c != nil && !c.defeated && c.CurrentHP > 0
}

// Defeated reports whether the one-time defeat transition has happened.
func (c *Combatant) Defeated() bool { return c.defeated }

// HealthFraction returns CurrentHP/MaxHP in [0, 1].
func (c *Combatant) HealthFraction() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.CurrentHP) / float64(c.MaxHP)
}

// ResourceFraction returns CurrentResource/MaxResource, or 0 without a resource pool.
func (c *Combatant) ResourceFraction() float64 {
	if c.MaxResource <= 0 {
		return 0
	}
	return float64(c.CurrentResource) / float64(c.MaxResource)
}

// ApplyDamage reduces CurrentHP by amount, flooring at zero.
// died is true exactly once: on the call that moves health from above zero to zero.
// Damage against an already defeated combatant is a no-op.
//
// Precondition: amount must be >= 0.
// Postcondition: CurrentHP >= 0; dealt <= amount.
func (c *Combatant) ApplyDamage(amount int) (dealt int, died bool) {
	if c.defeated || c.CurrentHP <= 0 || amount <= 0 {
		return 0, false
	}
	before := c.CurrentHP
	c.CurrentHP -= amount
	if c.CurrentHP < 0 {
		c.CurrentHP = 0
	}
	dealt = before - c.CurrentHP
	if c.CurrentHP == 0 {
		c.defeated = true
		c.Casting = nil
		return dealt, true
	}
	return dealt, false
}

// Heal raises CurrentHP by up to amount, capped at MaxHP.
// Defeated combatants cannot be healed.
//
// Postcondition: Returns the health actually restored (>= 0).
func (c *Combatant) Heal(amount int) int {
	if !c.IsAlive() || amount <= 0 {
		return 0
	}
	before := c.CurrentHP
	c.CurrentHP = min(c.MaxHP, c.CurrentHP+amount)
	return c.CurrentHP - before
}

// Spend deducts cost from the resource pool when affordable.
//
// Postcondition: Returns false and leaves the pool unchanged when cost > CurrentResource.
func (c *Combatant) Spend(cost int) bool {
	if cost <= 0 {
		return true
	}
	if cost > c.CurrentResource {
		return false
	}
	c.CurrentResource -= cost
	return true
}

// CanAfford reports whether cost fits the current resource pool.
func (c *Combatant) CanAfford(cost int) bool {
	return cost <= 0 || cost <= c.CurrentResource
}

// Regenerate restores ResourceRegen resource, capped at MaxResource.
func (c *Combatant) Regenerate() {
	c.CurrentResource = clamp(c.CurrentResource+c.ResourceRegen, 0, c.MaxResource)
}

// TickCooldowns decrements every positive cooldown by one round.
func (c *Combatant) TickCooldowns() {
	for id, cd := range c.Cooldowns {
		if cd <= 1 {
			delete(c.Cooldowns, id)
			continue
		}
		c.Cooldowns[id] = cd - 1
	}
}

// Cooldown returns the rounds remaining before abilityID is usable again.
func (c *Combatant) Cooldown(abilityID string) int {
	return c.Cooldowns[abilityID]
}

// SetCooldown puts abilityID on cooldown for rounds rounds; rounds <= 0 clears it.
func (c *Combatant) SetCooldown(abilityID string, rounds int) {
	if c.Cooldowns == nil {
		c.Cooldowns = make(map[string]int)
	}
	if rounds <= 0 {
		delete(c.Cooldowns, abilityID)
		return
	}
	c.Cooldowns[abilityID] = rounds
}

// IsCasting reports whether a cast is in progress.
func (c *Combatant) IsCasting() bool { return c.Casting != nil }

// IsStunned reports whether an active stun effect prevents the combatant from acting.
func (c *Combatant) IsStunned() bool {
	return c.Effects != nil && c.Effects.IsStunned()
}

// Snapshot returns a deep copy decoupled from c.
//
// Postcondition: Mutating the snapshot never affects c.
func (c *Combatant) Snapshot() *Combatant {
	cp := *c
	cp.Abilities = append([]string(nil), c.Abilities...)
	cp.Cooldowns = make(map[string]int, len(c.Cooldowns))
	for k, v := range c.Cooldowns {
		cp.Cooldowns[k] = v
	}
	if c.Effects != nil {
		cp.Effects = c.Effects.Clone()
	} else {
		cp.Effects = condition.NewActiveSet()
	}
	if c.Casting != nil {
		cast := *c.Casting
		cp.Casting = &cast
	}
	return &cp
}

// MirrorTo writes health and resource back onto the live combatant the
// snapshot was taken from.
func (c *Combatant) MirrorTo(live *Combatant) {
	if live == nil {
		return
	}
	live.CurrentHP = c.CurrentHP
	live.CurrentResource = c.CurrentResource
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
