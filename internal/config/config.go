// Package config provides Viper-based configuration loading for the idle combat engine.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for the bout history store.
type DatabaseConfig struct {
	// Enabled turns bout history persistence on. When false no pool is opened.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// CombatConfig holds the tuning knobs of the combat core.
type CombatConfig struct {
	// Speed is the interval between two combat ticks.
	Speed time.Duration `mapstructure:"speed"`
	// ThreatDecayInterval is the wall-clock period of one threat decay step.
	ThreatDecayInterval time.Duration `mapstructure:"threat_decay_interval"`
	// ThreatDecayFactor multiplies every threat value once per decay step.
	ThreatDecayFactor float64 `mapstructure:"threat_decay_factor"`
	MissChance        float64 `mapstructure:"miss_chance"`
	CritChance        float64 `mapstructure:"crit_chance"`
	CritMultiplier    float64 `mapstructure:"crit_multiplier"`
	// DoubleCritMultiplier replaces CritMultiplier when a double critical lands.
	DoubleCritMultiplier float64 `mapstructure:"double_crit_multiplier"`
	// Variance is the symmetric random spread applied to damage, e.g. 0.1 for ±10%.
	Variance float64 `mapstructure:"variance"`
	// InterruptCooldown is the cooldown, in rounds, put on an interrupted ability.
	InterruptCooldown int `mapstructure:"interrupt_cooldown"`
	// BuffDuration is the default effect duration, in ticks, of buff and debuff abilities.
	BuffDuration int `mapstructure:"buff_duration"`
	// AdaptationInterval is the elapsed bout time per adaptation level of an adaptive hostile.
	AdaptationInterval time.Duration `mapstructure:"adaptation_interval"`
	// Stance is the initial global combat stance: "aggressive", "balanced", or "defensive".
	Stance string `mapstructure:"stance"`
}

// ContentConfig locates the YAML and Lua content loaded at startup.
type ContentConfig struct {
	AbilitiesDir string `mapstructure:"abilities_dir"`
	EffectsDir   string `mapstructure:"effects_dir"`
	HostilesDir  string `mapstructure:"hostiles_dir"`
	PartyFile    string `mapstructure:"party_file"`
	// ScriptsDir holds encounter hook scripts. Empty disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// LoopConfig drives the idle bout loop of cmd/idlecombat.
type LoopConfig struct {
	// Hostile is the template ID fought by every bout.
	Hostile string `mapstructure:"hostile"`
	// Rest is the pause between the end of a bout and the start of the next.
	Rest time.Duration `mapstructure:"rest"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Content  ContentConfig  `mapstructure:"content"`
	Loop     LoopConfig     `mapstructure:"loop"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Loop.Rest < 0 {
		errs = append(errs, "loop.rest must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.Speed <= 0 {
		errs = append(errs, "combat.speed must be positive")
	}
	if c.ThreatDecayInterval <= 0 {
		errs = append(errs, "combat.threat_decay_interval must be positive")
	}
	if c.ThreatDecayFactor <= 0 || c.ThreatDecayFactor > 1 {
		errs = append(errs, fmt.Sprintf("combat.threat_decay_factor must be in (0, 1], got %v", c.ThreatDecayFactor))
	}
	for name, p := range map[string]float64{
		"combat.miss_chance": c.MissChance,
		"combat.crit_chance": c.CritChance,
		"combat.variance":    c.Variance,
	} {
		if p < 0 || p >= 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0, 1), got %v", name, p))
		}
	}
	if c.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("combat.crit_multiplier must be >= 1, got %v", c.CritMultiplier))
	}
	if c.DoubleCritMultiplier < c.CritMultiplier {
		errs = append(errs, "combat.double_crit_multiplier must not be below combat.crit_multiplier")
	}
	if c.InterruptCooldown < 0 {
		errs = append(errs, "combat.interrupt_cooldown must not be negative")
	}
	if c.BuffDuration < 1 {
		errs = append(errs, fmt.Sprintf("combat.buff_duration must be >= 1, got %d", c.BuffDuration))
	}
	if c.AdaptationInterval <= 0 {
		errs = append(errs, "combat.adaptation_interval must be positive")
	}
	validStances := map[string]bool{"aggressive": true, "balanced": true, "defensive": true}
	if !validStances[c.Stance] {
		errs = append(errs, fmt.Sprintf("combat.stance must be one of [aggressive, balanced, defensive], got %q", c.Stance))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.AbilitiesDir == "" {
		errs = append(errs, "content.abilities_dir must not be empty")
	}
	if c.HostilesDir == "" {
		errs = append(errs, "content.hostiles_dir must not be empty")
	}
	if c.PartyFile == "" {
		errs = append(errs, "content.party_file must not be empty")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with IDLECOMBAT_ prefix
	v.SetEnvPrefix("IDLECOMBAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Config populated only with default values.
//
// Postcondition: The returned Config passes Validate.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static; a decode failure here is a programming error.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "idlecombat")
	v.SetDefault("database.password", "idlecombat")
	v.SetDefault("database.name", "idlecombat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("combat.speed", "500ms")
	v.SetDefault("combat.threat_decay_interval", "1s")
	v.SetDefault("combat.threat_decay_factor", 0.95)
	v.SetDefault("combat.miss_chance", 0.05)
	v.SetDefault("combat.crit_chance", 0.10)
	v.SetDefault("combat.crit_multiplier", 1.5)
	v.SetDefault("combat.double_crit_multiplier", 2.0)
	v.SetDefault("combat.variance", 0.10)
	v.SetDefault("combat.interrupt_cooldown", 10)
	v.SetDefault("combat.buff_duration", 3)
	v.SetDefault("combat.adaptation_interval", "30s")
	v.SetDefault("combat.stance", "balanced")

	v.SetDefault("content.abilities_dir", "content/abilities")
	v.SetDefault("content.effects_dir", "content/effects")
	v.SetDefault("content.hostiles_dir", "content/hostiles")
	v.SetDefault("content.party_file", "content/party.yaml")
	v.SetDefault("content.scripts_dir", "")

	v.SetDefault("loop.hostile", "")
	v.SetDefault("loop.rest", "2s")
}
