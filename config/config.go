/*
Package config loads the server configuration.

PURPOSE:
  Produces one explicit Config value that cmd/server hands to every
  component. Nothing below cmd/server reads the environment; the engine gets
  its default parameters, sweep and seed from this value.

SOURCES (later wins):
  1. Built-in defaults (Default())
  2. YAML file, if a path is given
  3. .env file in the working directory, if present
  4. Process environment
  5. Command-line flags (applied by cmd/server)

ENVIRONMENT:
  APP_NAME                  Display name
  APP_VERSION               Version string
  DEBUG                     "true" for development logging
  PORT                      HTTP port
  DB_PATH                   SQLite path (":memory:" allowed)
  REDIS_ADDR                Redis address; empty uses the in-memory cache
  CACHE_TTL                 Cache TTL ("1h" or seconds, e.g. "3600")
  DAILY_ANALYSIS_INTERVAL   Scheduler interval ("24h"); "0" disables it

EXAMPLE YAML:
  app_name: ASTHA - Hajj Treasury Analytics
  port: 8080
  db_path: ./data/astha.db
  cache_ttl: 1h
  defaults:
    total_pilgrims: 2500000
    saudi_inflation_rate: 3.5
    discount_rate: 6.5
  fund:
    assets: 180.5e12
    liability: 145.2e12

SEE ALSO:
  - cmd/server/main.go: Flag overrides
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/astha/treasury-engine/actuarial"
)

// Config is the complete server configuration.
type Config struct {
	AppName    string `yaml:"app_name"`
	AppVersion string `yaml:"app_version"`
	Debug      bool   `yaml:"debug"`

	Port           int      `yaml:"port"`
	DBPath         string   `yaml:"db_path"`
	RedisAddr      string   `yaml:"redis_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	CacheTTL              time.Duration `yaml:"cache_ttl"`
	DailyAnalysisInterval time.Duration `yaml:"daily_analysis_interval"`

	Defaults   actuarial.LiabilityParameters `yaml:"defaults"`
	Sweep      actuarial.Sweep               `yaml:"sweep"`
	MonteCarlo MonteCarloConfig              `yaml:"monte_carlo"`
	Fund       FundConfig                    `yaml:"fund"`
}

// MonteCarloConfig holds simulation defaults.
type MonteCarloConfig struct {
	Simulations int   `yaml:"simulations"`
	Seed        int64 `yaml:"seed"`
}

// FundConfig holds the reference aggregate position of the fund.
type FundConfig struct {
	Assets    float64 `yaml:"assets"`
	Liability float64 `yaml:"liability"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AppName:               "ASTHA - Hajj Treasury Analytics",
		AppVersion:            "1.0.0",
		Debug:                 false,
		Port:                  8080,
		DBPath:                "astha.db",
		AllowedOrigins:        []string{"http://localhost:5173", "http://localhost:8080"},
		CacheTTL:              time.Hour,
		DailyAnalysisInterval: 24 * time.Hour,
		Defaults:              actuarial.DefaultParameters(),
		Sweep:                 actuarial.DefaultSweep(),
		MonteCarlo: MonteCarloConfig{
			Simulations: actuarial.DefaultSimulations,
			Seed:        actuarial.DefaultSeed,
		},
		Fund: FundConfig{
			Assets:    180.5e12,
			Liability: 145.2e12,
		},
	}
}

// Load builds a Config from defaults, the optional YAML file at path, an
// optional .env file and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML content on top of the defaults without touching the
// environment.
func Parse(content []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would make the server unusable.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.MonteCarlo.Simulations <= 0 {
		return fmt.Errorf("monte_carlo.simulations must be positive, got %d", c.MonteCarlo.Simulations)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %v", c.CacheTTL)
	}
	if err := actuarial.Validate(c.Defaults.WithDefaults()); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	return nil
}

// applyEnv overrides fields from lookup. lookup is os.LookupEnv in production
// and a map in tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("APP_NAME"); ok && v != "" {
		c.AppName = v
	}
	if v, ok := lookup("APP_VERSION"); ok && v != "" {
		c.AppVersion = v
	}
	if v, ok := lookup("DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		c.Debug = b
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = p
	}
	if v, ok := lookup("DB_PATH"); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.RedisAddr = v
	}
	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}
	if v, ok := lookup("DAILY_ANALYSIS_INTERVAL"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("DAILY_ANALYSIS_INTERVAL: %w", err)
		}
		c.DailyAnalysisInterval = d
	}
	return nil
}

// parseDuration accepts Go durations ("90m") or whole seconds ("3600").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
