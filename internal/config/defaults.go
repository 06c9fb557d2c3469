package config

const (
	defaultStateDir           = "~/.local/share/subcue/state"
	defaultFallbackDir        = "~/.local/share/subcue/fallback"
	defaultInboxDir           = "~/.local/share/subcue/inbox"
	defaultLogDir             = "~/.local/share/subcue/logs"
	defaultAPIBind            = "127.0.0.1:7474"
	defaultHistoryDepth       = 50
	defaultAutosaveDebounceMS = 400
	defaultCacheEntries       = 10
	defaultMaxTextLength      = 30
	defaultMinDuration        = 0.5
	defaultMaxDuration        = 7.0
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			FallbackDir: defaultFallbackDir,
			InboxDir:    defaultInboxDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Editor: Editor{
			HistoryDepth:       defaultHistoryDepth,
			AutosaveDebounceMS: defaultAutosaveDebounceMS,
			CacheEntries:       defaultCacheEntries,
		},
		Validation: Validation{
			MaxTextLength: defaultMaxTextLength,
			MinDuration:   defaultMinDuration,
			MaxDuration:   defaultMaxDuration,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			SaveErrors:     true,
			Imports:        false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// normalize expands path fields and fills zero values with defaults.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.FallbackDir, err = expandPath(c.Paths.FallbackDir); err != nil {
		return err
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	if c.Editor.HistoryDepth <= 0 {
		c.Editor.HistoryDepth = defaultHistoryDepth
	}
	if c.Editor.AutosaveDebounceMS <= 0 {
		c.Editor.AutosaveDebounceMS = defaultAutosaveDebounceMS
	}
	if c.Editor.CacheEntries <= 0 {
		c.Editor.CacheEntries = defaultCacheEntries
	}
	if c.Validation.MaxTextLength <= 0 {
		c.Validation.MaxTextLength = defaultMaxTextLength
	}
	if c.Validation.MinDuration <= 0 {
		c.Validation.MinDuration = defaultMinDuration
	}
	if c.Validation.MaxDuration <= 0 {
		c.Validation.MaxDuration = defaultMaxDuration
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}
