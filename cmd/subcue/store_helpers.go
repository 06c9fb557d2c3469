package main

import (
	"fmt"
	"os"

	"subcue/internal/logging"
	"subcue/internal/store"
)

// openStore opens the tiered store for offline commands. The returned cleanup
// must be called when the command finishes.
func (c *commandContext) openStore() (*store.Tiered, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  "warn",
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	primary, err := store.OpenPrimary(cfg.Paths.StateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open project store: %w", err)
	}
	tiered := store.NewTiered(
		store.NewMemory(cfg.Editor.CacheEntries),
		primary,
		store.NewFallback(cfg.Paths.FallbackDir, logger),
		logger,
	)
	return tiered, func() { _ = tiered.Close() }, nil
}
