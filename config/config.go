package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers supported by the lantern module.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	JWT           JWTConfig           `yaml:"jwt"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Lantern       LanternConfig       `yaml:"lantern"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL      string `yaml:"url"`
	NKeySeed string `yaml:"nkey_seed"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// HTTPConfig holds the HTTP listener configuration.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

// LanternConfig holds the tuning knobs of the hacking minigame.
type LanternConfig struct {
	Storage            string        `yaml:"storage"` // postgres|memory
	MaxTries           int           `yaml:"max_tries"`
	MaxBoostingSignal  int           `yaml:"max_boosting_signal"`
	BaselineSignal     int           `yaml:"baseline_signal"`
	DecoyCount         int           `yaml:"decoy_count"`
	ResetInterval      time.Duration `yaml:"reset_interval"`
	RequireActiveRound bool          `yaml:"require_active_round"`
	QueueEnabled       bool          `yaml:"queue_enabled"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a configuration populated with the lantern defaults.
func Defaults() *Config {
	return &Config{
		JWT: JWTConfig{
			DefaultTTL: 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Address: ":8080",
		},
		Observability: ObservabilityConfig{
			Environment: "development",
			LogLevel:    "info",
			LogFormat:   "json",
		},
		Lantern: LanternConfig{
			Storage:            StoragePostgres,
			MaxTries:           3,
			MaxBoostingSignal:  25,
			BaselineSignal:     50,
			DecoyCount:         5,
			ResetInterval:      15 * time.Minute,
			RequireActiveRound: true,
			QueueEnabled:       true,
		},
	}
}

// Validate checks the settings that would otherwise fail deep inside a module.
func (c *Config) Validate() error {
	l := c.Lantern
	switch l.Storage {
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when lantern.storage is %q", StoragePostgres)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown lantern.storage %q", l.Storage)
	}
	if l.MaxTries < 1 {
		return fmt.Errorf("lantern.max_tries must be at least 1, got %d", l.MaxTries)
	}
	if l.MaxBoostingSignal < 1 {
		return fmt.Errorf("lantern.max_boosting_signal must be at least 1, got %d", l.MaxBoostingSignal)
	}
	if l.BaselineSignal < 0 || l.BaselineSignal > 100 {
		return fmt.Errorf("lantern.baseline_signal must be within [0,100], got %d", l.BaselineSignal)
	}
	if l.ResetInterval <= 0 {
		return fmt.Errorf("lantern.reset_interval must be positive, got %s", l.ResetInterval)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_NKEY_SEED"); v != "" {
		cfg.NATS.NKeySeed = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("JWT_DEFAULT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.JWT.DefaultTTL = d
		}
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
	if v := os.Getenv("LANTERN_STORAGE"); v != "" {
		cfg.Lantern.Storage = v
	}
	if v := os.Getenv("LANTERN_MAX_TRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lantern.MaxTries = n
		}
	}
	if v := os.Getenv("LANTERN_MAX_BOOSTING_SIGNAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lantern.MaxBoostingSignal = n
		}
	}
	if v := os.Getenv("LANTERN_BASELINE_SIGNAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lantern.BaselineSignal = n
		}
	}
	if v := os.Getenv("LANTERN_DECOY_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lantern.DecoyCount = n
		}
	}
	if v := os.Getenv("LANTERN_RESET_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Lantern.ResetInterval = d
		}
	}
	if v := os.Getenv("LANTERN_REQUIRE_ACTIVE_ROUND"); v != "" {
		cfg.Lantern.RequireActiveRound = v == "true"
	}
	if v := os.Getenv("LANTERN_QUEUE_ENABLED"); v != "" {
		cfg.Lantern.QueueEnabled = v == "true"
	}
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	cfg := Defaults()
	applyEnvOverrides(cfg)

	// Load NATS URL
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}

	// Load Postgres DSN
	if cfg.Lantern.Storage == StoragePostgres && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
