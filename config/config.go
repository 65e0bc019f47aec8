/*
Package config loads service configuration from a TOML file.

PURPOSE:
  One config struct for the whole service, with sane defaults so the
  server runs with no file at all. Flags in cmd/server override the
  file for the common knobs (port, db path).

FILE FORMAT (TOML):
  [api]
  host = "127.0.0.1"
  port = 8080
  allowed_origins = ["http://localhost:5173"]

  [database]
  path = "coins.db"

  [scheduler]
  enabled = true
  check_interval = "1h"

  [coach]
  api_url = "https://api.openai.com"
  api_key = ""
  model = "gpt-4o-mini"

SEE ALSO:
  - cmd/server/main.go: Flag overrides and wiring
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	API       APIConfig       `toml:"api"`
	Database  DatabaseConfig  `toml:"database"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Coach     CoachConfig     `toml:"coach"`
}

type APIConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type SchedulerConfig struct {
	Enabled       bool   `toml:"enabled"`
	CheckInterval string `toml:"check_interval"` // Go duration string, e.g. "1h"
}

type CoachConfig struct {
	APIURL    string `toml:"api_url"`
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Path: "coins.db",
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			CheckInterval: "1h",
		},
		Coach: CoachConfig{
			APIURL: "https://api.openai.com",
			Model:  "gpt-4o-mini",
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file is
// not an error - the defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if _, err := cfg.Scheduler.Interval(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Interval parses the scheduler check interval.
func (s SchedulerConfig) Interval() (time.Duration, error) {
	if s.CheckInterval == "" {
		return time.Hour, nil
	}
	d, err := time.ParseDuration(s.CheckInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid scheduler check_interval %q: %w", s.CheckInterval, err)
	}
	return d, nil
}
