// Package config reads process settings from SKIRMISH_* environment
// variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/nstehr/skirmish/search"
)

const (
	ModeServe    = "serve"
	ModeEstimate = "estimate"
)

type Config struct {
	Mode      string `env:"SKIRMISH_MODE" envDefault:"serve"`
	Socket    string `env:"SKIRMISH_SOCKET" envDefault:"/tmp/skirmish.sock"`
	LogLevel  string `env:"SKIRMISH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SKIRMISH_LOG_FORMAT" envDefault:"text"`

	ContentDir   string `env:"SKIRMISH_CONTENT_DIR" envDefault:"content"`
	ContentDB    string `env:"SKIRMISH_CONTENT_DB"` // when set, definitions are read from SQLite
	WatchContent bool   `env:"SKIRMISH_WATCH_CONTENT" envDefault:"false"`
	DoctrineFile string `env:"SKIRMISH_DOCTRINE"`
	NetworkFile  string `env:"SKIRMISH_NETWORK"`

	Strategy     string        `env:"SKIRMISH_STRATEGY" envDefault:"iterative"`
	SearchTime   time.Duration `env:"SKIRMISH_SEARCH_TIME" envDefault:"250ms"`
	SearchNodes  int           `env:"SKIRMISH_SEARCH_NODES" envDefault:"5000"`
	SearchDepth  int           `env:"SKIRMISH_SEARCH_DEPTH" envDefault:"3"`
	CriticalHits bool          `env:"SKIRMISH_CRITICAL_HITS" envDefault:"false"`

	EstimateEncounter string `env:"SKIRMISH_ESTIMATE_ENCOUNTER"`
	EstimateTrials    int    `env:"SKIRMISH_ESTIMATE_TRIALS" envDefault:"200"`
	EstimateWorkers   int    `env:"SKIRMISH_ESTIMATE_WORKERS" envDefault:"0"`
	EstimateSeed      int64  `env:"SKIRMISH_ESTIMATE_SEED" envDefault:"1"`
	EstimateParty     string `env:"SKIRMISH_ESTIMATE_PARTY" envDefault:"party"`

	OTelEndpoint string `env:"SKIRMISH_OTEL_ENDPOINT"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeServe:
		if c.Socket == "" {
			return fmt.Errorf("config: SKIRMISH_SOCKET is empty")
		}
	case ModeEstimate:
		if c.EstimateEncounter == "" {
			return fmt.Errorf("config: estimate mode needs SKIRMISH_ESTIMATE_ENCOUNTER")
		}
		if c.EstimateTrials <= 0 {
			return fmt.Errorf("config: SKIRMISH_ESTIMATE_TRIALS must be positive, got %d", c.EstimateTrials)
		}
	default:
		return fmt.Errorf("config: unknown SKIRMISH_MODE %q", c.Mode)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown SKIRMISH_LOG_FORMAT %q", c.LogFormat)
	}
	if c.SearchNodes < 0 || c.SearchDepth < 0 || c.SearchTime < 0 {
		return fmt.Errorf("config: search limits must not be negative")
	}
	if c.ContentDB == "" && c.ContentDir == "" {
		return fmt.Errorf("config: no content source; set SKIRMISH_CONTENT_DIR or SKIRMISH_CONTENT_DB")
	}
	return nil
}

func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: SKIRMISH_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Logger builds the process logger. An invalid level falls back to info.
func (c Config) Logger(w io.Writer) *slog.Logger {
	lvl, err := c.Level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Search overlays the configured limits on search.DefaultConfig. Zero
// values keep the default.
func (c Config) Search() search.Config {
	sc := search.DefaultConfig()
	if c.SearchTime > 0 {
		sc.TimeLimit = c.SearchTime
	}
	if c.SearchNodes > 0 {
		sc.MaxNodes = c.SearchNodes
	}
	if c.SearchDepth > 0 {
		sc.MaxDepth = c.SearchDepth
	}
	if c.EstimateSeed != 0 {
		sc.Seed = c.EstimateSeed
	}
	return sc
}
