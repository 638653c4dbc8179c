package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Redis         RedisConfig         `yaml:"redis"`
	HTTP          HTTPConfig          `yaml:"http"`
	Game          GameConfig          `yaml:"game"`
	Flag          FlagConfig          `yaml:"flag"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL keeps the event bus in
// process.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the leaderboard cache connection. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// HTTPConfig holds the API listener and the per-team submission limit.
type HTTPConfig struct {
	Addr        string  `yaml:"addr"`
	SubmitRate  float64 `yaml:"submit_rate"`
	SubmitBurst int     `yaml:"submit_burst"`
}

// GameConfig holds the tick clock and flag validity settings.
type GameConfig struct {
	ValidWindow        int           `yaml:"valid_window"`
	DefaultTickSeconds int           `yaml:"default_tick_seconds"`
	DefaultStateDelay  int           `yaml:"default_state_delay"`
	ClockEnabled       bool          `yaml:"clock_enabled"`
	ClockInterval      time.Duration `yaml:"clock_interval"`
}

// FlagConfig holds the flag text format.
type FlagConfig struct {
	Prefix   string `yaml:"prefix"`
	Alphabet string `yaml:"alphabet"`
	Length   int    `yaml:"length"`
	Suffix   string `yaml:"suffix"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
}

const (
	DefaultValidWindow        = 3
	DefaultTickSeconds        = 600
	DefaultGameStateDelay     = 2
	DefaultFlagPrefix         = "000"
	DefaultFlagAlphabet       = "ABCDEF0123456789"
	DefaultFlagLength         = 48 - len(DefaultFlagPrefix)
	DefaultHTTPAddr           = ":8080"
	DefaultClockInterval      = 2 * time.Second
	DefaultSubmitRatePerTeam  = 5
	DefaultSubmitBurstPerTeam = 20
)

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	cfg := preset()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfigFromEnv() (*Config, error) {
	c := preset()
	cfg := &c
	cfg.Game.ClockEnabled = true
	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("no config file and DATABASE_URL is not set")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// preset holds the values a missing key keeps. Unlike ApplyDefaults these can
// be overridden with an explicit empty value, which Validate then rejects.
func preset() Config {
	return Config{Flag: FlagConfig{Prefix: DefaultFlagPrefix}}
}

// --- OVERRIDE WITH ENV VARS IF PRESENT ---
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("TICK_CLOCK_ENABLED"); v != "" {
		cfg.Game.ClockEnabled = v == "true"
	}
	if v := os.Getenv("TICK_CLOCK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Game.ClockInterval = d
		}
	}
	if v := os.Getenv("FLAG_PREFIX"); v != "" {
		cfg.Flag.Prefix = v
	}
	if v := os.Getenv("VALID_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Game.ValidWindow = n
		}
	}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Game.ValidWindow == 0 {
		c.Game.ValidWindow = DefaultValidWindow
	}
	if c.Game.DefaultTickSeconds == 0 {
		c.Game.DefaultTickSeconds = DefaultTickSeconds
	}
	if c.Game.DefaultStateDelay == 0 {
		c.Game.DefaultStateDelay = DefaultGameStateDelay
	}
	if c.Game.ClockInterval == 0 {
		c.Game.ClockInterval = DefaultClockInterval
	}
	if c.Flag.Alphabet == "" {
		c.Flag.Alphabet = DefaultFlagAlphabet
	}
	if c.Flag.Length == 0 {
		c.Flag.Length = DefaultFlagLength
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.SubmitRate == 0 {
		c.HTTP.SubmitRate = DefaultSubmitRatePerTeam
	}
	if c.HTTP.SubmitBurst == 0 {
		c.HTTP.SubmitBurst = DefaultSubmitBurstPerTeam
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Game.ValidWindow < 0 {
		return fmt.Errorf("game.valid_window must be >= 0, got %d", c.Game.ValidWindow)
	}
	if c.Game.DefaultTickSeconds <= 0 {
		return fmt.Errorf("game.default_tick_seconds must be > 0, got %d", c.Game.DefaultTickSeconds)
	}
	if c.Game.DefaultStateDelay < 0 {
		return fmt.Errorf("game.default_state_delay must be >= 0, got %d", c.Game.DefaultStateDelay)
	}
	if c.Flag.Prefix == "" {
		return fmt.Errorf("flag.prefix must not be empty")
	}
	if c.Flag.Length <= 0 {
		return fmt.Errorf("flag.length must be > 0, got %d", c.Flag.Length)
	}
	if len(c.Flag.Alphabet) < 2 {
		return fmt.Errorf("flag.alphabet needs at least two symbols")
	}
	return nil
}

// IsTest reports whether the process runs under the test environment.
func (c *Config) IsTest() bool {
	return c.Observability.Environment == "test"
}
