package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEditor(); err != nil {
		return err
	}
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.FallbackDir) == "" {
		return errors.New("paths.fallback_dir must be set")
	}
	if bind := strings.TrimSpace(c.Paths.APIBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("paths.api_bind %q is not host:port: %w", bind, err)
		}
	}
	return nil
}

func (c *Config) validateEditor() error {
	if c.Editor.HistoryDepth > 10000 {
		return errors.New("editor.history_depth is unreasonably large (max 10000)")
	}
	if c.Editor.AutosaveDebounceMS > 60000 {
		return errors.New("editor.autosave_debounce_ms must be at most 60000")
	}
	return nil
}

func (c *Config) validateValidation() error {
	if c.Validation.MinDuration >= c.Validation.MaxDuration {
		return fmt.Errorf("validation.min_duration (%.2f) must be below validation.max_duration (%.2f)",
			c.Validation.MinDuration, c.Validation.MaxDuration)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
