package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subcue/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("missing file reported as existing")
	}
	if resolved == "" {
		t.Fatalf("resolved path must be returned")
	}
	if cfg.Editor.HistoryDepth != 50 || cfg.Editor.AutosaveDebounceMS != 400 || cfg.Editor.CacheEntries != 10 {
		t.Fatalf("editor defaults wrong: %+v", cfg.Editor)
	}
	if cfg.Validation.MaxTextLength != 30 || cfg.Validation.MinDuration != 0.5 || cfg.Validation.MaxDuration != 7.0 {
		t.Fatalf("validation defaults wrong: %+v", cfg.Validation)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7474" {
		t.Fatalf("api bind default wrong: %q", cfg.Paths.APIBind)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subcue.toml")
	content := `
[paths]
state_dir = "` + dir + `/state"
fallback_dir = "` + dir + `/fallback"
api_bind = "127.0.0.1:9000"

[editor]
history_depth = 5
autosave_debounce_ms = 100

[validation]
max_text_length = 42

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolution wrong: %q %v", resolved, exists)
	}
	if cfg.Editor.HistoryDepth != 5 || cfg.Editor.AutosaveDebounceMS != 100 {
		t.Fatalf("editor overrides not applied: %+v", cfg.Editor)
	}
	if cfg.Validation.MaxTextLength != 42 {
		t.Fatalf("validation override not applied: %+v", cfg.Validation)
	}
	// Unset fields keep their defaults.
	if cfg.Editor.CacheEntries != 10 {
		t.Fatalf("unset field lost its default: %+v", cfg.Editor)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging overrides not applied: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad bind",
			content: "[paths]\napi_bind = \"no-port\"\n",
			wantErr: "api_bind",
		},
		{
			name:    "inverted durations",
			content: "[validation]\nmin_duration = 9.0\nmax_duration = 2.0\n",
			wantErr: "min_duration",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"xml\"\n",
			wantErr: "logging.format",
		},
		{
			name:    "huge debounce",
			content: "[editor]\nautosave_debounce_ms = 120000\n",
			wantErr: "autosave_debounce_ms",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "subcue.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.FallbackDir = filepath.Join(base, "fallback")
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.FallbackDir, cfg.Paths.InboxDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q not created: %v", dir, err)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := config.ExpandPath("~/projects")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "projects") {
		t.Fatalf("ExpandPath = %q", got)
	}
}
