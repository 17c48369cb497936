package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeServe || cfg.Socket != "/tmp/skirmish.sock" {
		t.Errorf("mode/socket = %q/%q", cfg.Mode, cfg.Socket)
	}
	if cfg.Strategy != "iterative" || cfg.SearchTime != 250*time.Millisecond {
		t.Errorf("strategy/time = %q/%v", cfg.Strategy, cfg.SearchTime)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelInfo {
		t.Errorf("level = %v", lvl)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SKIRMISH_MODE", "estimate")
	t.Setenv("SKIRMISH_ESTIMATE_ENCOUNTER", "ambush")
	t.Setenv("SKIRMISH_ESTIMATE_TRIALS", "50")
	t.Setenv("SKIRMISH_SEARCH_TIME", "1s")
	t.Setenv("SKIRMISH_SEARCH_DEPTH", "5")
	t.Setenv("SKIRMISH_LOG_LEVEL", "debug")
	t.Setenv("SKIRMISH_CRITICAL_HITS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EstimateEncounter != "ambush" || cfg.EstimateTrials != 50 || !cfg.CriticalHits {
		t.Errorf("cfg = %+v", cfg)
	}
	sc := cfg.Search()
	if sc.TimeLimit != time.Second || sc.MaxDepth != 5 || sc.MaxNodes != 5000 {
		t.Errorf("search = %+v", sc)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("level = %v", lvl)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad int", map[string]string{"SKIRMISH_SEARCH_NODES": "lots"}, "parse env:"},
		{"bad mode", map[string]string{"SKIRMISH_MODE": "train"}, "SKIRMISH_MODE"},
		{"estimate without encounter", map[string]string{"SKIRMISH_MODE": "estimate"}, "SKIRMISH_ESTIMATE_ENCOUNTER"},
		{"bad level", map[string]string{"SKIRMISH_LOG_LEVEL": "loud"}, "SKIRMISH_LOG_LEVEL"},
		{"bad format", map[string]string{"SKIRMISH_LOG_FORMAT": "xml"}, "SKIRMISH_LOG_FORMAT"},
		{"negative depth", map[string]string{"SKIRMISH_SEARCH_DEPTH": "-1"}, "negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	Config{LogLevel: "warn", LogFormat: "json"}.Logger(&buf).Warn("hello", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"k":1`) {
		t.Errorf("json output = %q", buf.String())
	}
	buf.Reset()
	Config{LogLevel: "warn", LogFormat: "text"}.Logger(&buf).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}
