// Package config provides Viper-based configuration loading for the encounter server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

// Outcome store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreNone     = "none"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name identifies this instance in logs and NATS connection names.
	Name string `mapstructure:"name"`
	// ShutdownTimeout bounds graceful shutdown of every service.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
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

// SQLiteConfig holds the standalone outcome store settings.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// OutcomesConfig selects where finished encounters are persisted.
type OutcomesConfig struct {
	// Store is one of "postgres", "sqlite", or "none".
	Store string `mapstructure:"store"`
	// ArchiveSize bounds how many outcomes stay in memory after an encounter ends.
	ArchiveSize int `mapstructure:"archive_size"`
}

// ListenConfig is a host and port pair.
type ListenConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// NATSConfig holds the broadcast settings.
type NATSConfig struct {
	// Enabled turns on publishing of encounter updates.
	Enabled bool `mapstructure:"enabled"`
	// Embedded starts an in-process NATS server instead of dialling URL.
	Embedded bool `mapstructure:"embedded"`
	// URL is the server to connect to when Embedded is false.
	URL  string `mapstructure:"url"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// SubjectPrefix is the first token of every published subject.
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TracingConfig holds OpenTelemetry export settings.
type TracingConfig struct {
	// Enabled turns on span export. Spans are still created, and dropped, when false.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP/HTTP collector URL.
	Endpoint string `mapstructure:"endpoint"`
	// SampleRatio is the fraction of traces kept, in [0, 1].
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// CombatConfig holds per-encounter timing and rules knobs.
type CombatConfig struct {
	TurnTimeout     time.Duration `mapstructure:"turn_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	DisconnectGrace time.Duration `mapstructure:"disconnect_grace"`
	MailboxSize     int           `mapstructure:"mailbox_size"`
	DodgeBonus      int           `mapstructure:"dodge_bonus"`
	MoveAllowance   int           `mapstructure:"move_allowance"`
	PersistTimeout  time.Duration `mapstructure:"persist_timeout"`
	// SessionBuffer is the number of frames a watcher may lag before it is dropped.
	SessionBuffer int `mapstructure:"session_buffer"`
}

// Encounter converts c to the encounter package's Config.
func (c CombatConfig) Encounter() encounter.Config {
	return encounter.Config{
		TurnTimeout:     c.TurnTimeout,
		IdleTimeout:     c.IdleTimeout,
		DisconnectGrace: c.DisconnectGrace,
		MailboxSize:     c.MailboxSize,
		DodgeBonus:      c.DodgeBonus,
		MoveAllowance:   c.MoveAllowance,
		PersistTimeout:  c.PersistTimeout,
	}
}

// ContentConfig names the catalog and script directories.
type ContentConfig struct {
	WeaponsDir string `mapstructure:"weapons_dir"`
	ArmorDir   string `mapstructure:"armor_dir"`
	CoverDir   string `mapstructure:"cover_dir"`
	ItemsDir   string `mapstructure:"items_dir"`
	// ScriptDir holds NPC default_action Lua scripts. Empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit caps Lua instructions per hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Outcomes OutcomesConfig `mapstructure:"outcomes"`
	GRPC     ListenConfig   `mapstructure:"grpc"`
	HTTP     ListenConfig   `mapstructure:"http"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Content  ContentConfig  `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be > 0")
	}
	collect(validateOutcomes(c))
	collect(validateListen("grpc", c.GRPC))
	collect(validateListen("http", c.HTTP))
	collect(validateNATS(c.NATS))
	collect(validateLogging(c.Logging))
	collect(validateTracing(c.Tracing))
	collect(validateCombat(c.Combat))
	if c.Content.ScriptInstructionLimit < 0 {
		errs = append(errs, "content.script_instruction_limit must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateOutcomes(c Config) error {
	switch c.Outcomes.Store {
	case StorePostgres:
		if err := validateDatabase(c.Database); err != nil {
			return err
		}
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path must not be empty when outcomes.store is %q", StoreSQLite)
		}
	case StoreNone:
	default:
		return fmt.Errorf("outcomes.store must be one of [postgres, sqlite, none], got %q", c.Outcomes.Store)
	}
	if c.Outcomes.ArchiveSize < 0 {
		return fmt.Errorf("outcomes.archive_size must be >= 0, got %d", c.Outcomes.ArchiveSize)
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

func validateListen(section string, l ListenConfig) error {
	var errs []string
	if l.Host == "" {
		errs = append(errs, section+".host must not be empty")
	}
	if l.Port < 0 || l.Port > 65535 {
		errs = append(errs, fmt.Sprintf("%s.port must be 0-65535, got %d", section, l.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateNATS(n NATSConfig) error {
	if !n.Enabled {
		return nil
	}
	var errs []string
	if !n.Embedded && n.URL == "" {
		errs = append(errs, "nats.url must not be empty unless nats.embedded is set")
	}
	if n.Embedded && (n.Port < -1 || n.Port > 65535) {
		errs = append(errs, fmt.Sprintf("nats.port must be -1-65535, got %d", n.Port))
	}
	if n.SubjectPrefix == "" || strings.ContainsAny(n.SubjectPrefix, " *>") {
		errs = append(errs, fmt.Sprintf("nats.subject_prefix must be a literal subject token, got %q", n.SubjectPrefix))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTracing(t TracingConfig) error {
	if !t.Enabled {
		return nil
	}
	var errs []string
	if t.Endpoint == "" {
		errs = append(errs, "tracing.endpoint must not be empty when tracing is enabled")
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_ratio must be in [0, 1], got %v", t.SampleRatio))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.TurnTimeout < 0 {
		errs = append(errs, "combat.turn_timeout must not be negative")
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, "combat.idle_timeout must not be negative")
	}
	if c.DisconnectGrace < 0 {
		errs = append(errs, "combat.disconnect_grace must not be negative")
	}
	if c.PersistTimeout <= 0 {
		errs = append(errs, "combat.persist_timeout must be > 0")
	}
	if c.MailboxSize < 1 {
		errs = append(errs, fmt.Sprintf("combat.mailbox_size must be >= 1, got %d", c.MailboxSize))
	}
	if c.SessionBuffer < 1 {
		errs = append(errs, fmt.Sprintf("combat.session_buffer must be >= 1, got %d", c.SessionBuffer))
	}
	if c.DodgeBonus < 0 {
		errs = append(errs, fmt.Sprintf("combat.dodge_bonus must be >= 0, got %d", c.DodgeBonus))
	}
	if c.MoveAllowance < 1 {
		errs = append(errs, fmt.Sprintf("combat.move_allowance must be >= 1, got %d", c.MoveAllowance))
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

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
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

// Defaults returns a Viper instance holding only the default settings.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	def := encounter.DefaultConfig()

	v.SetDefault("server.name", "skirmishd")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("sqlite.path", "skirmish.db")

	v.SetDefault("outcomes.store", StoreSQLite)
	v.SetDefault("outcomes.archive_size", encounter.DefaultArchiveSize)

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 8080)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.embedded", true)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.host", "127.0.0.1")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.subject_prefix", "skirmish")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "http://127.0.0.1:4318")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("combat.turn_timeout", def.TurnTimeout)
	v.SetDefault("combat.idle_timeout", def.IdleTimeout)
	v.SetDefault("combat.disconnect_grace", def.DisconnectGrace)
	v.SetDefault("combat.mailbox_size", def.MailboxSize)
	v.SetDefault("combat.dodge_bonus", def.DodgeBonus)
	v.SetDefault("combat.move_allowance", def.MoveAllowance)
	v.SetDefault("combat.persist_timeout", def.PersistTimeout)
	v.SetDefault("combat.session_buffer", 64)

	v.SetDefault("content.weapons_dir", "content/weapons")
	v.SetDefault("content.armor_dir", "content/armor")
	v.SetDefault("content.cover_dir", "content/cover")
	v.SetDefault("content.items_dir", "content/items")
	v.SetDefault("content.script_dir", "content/scripts")
	v.SetDefault("content.script_instruction_limit", 100000)
}
