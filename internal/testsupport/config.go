// Package testsupport provides shared helpers for building configs and
// stores inside tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"subcue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.FallbackDir = filepath.Join(base, "fallback")
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Editor.AutosaveDebounceMS = 20

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return &cfg
}

// WithDebounce overrides the autosave debounce window in milliseconds.
func WithDebounce(ms int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Editor.AutosaveDebounceMS = ms
	}
}

// WithHistoryDepth overrides the undo history capacity.
func WithHistoryDepth(depth int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Editor.HistoryDepth = depth
	}
}

// WithCacheEntries overrides the memory tier capacity.
func WithCacheEntries(entries int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Editor.CacheEntries = entries
	}
}
