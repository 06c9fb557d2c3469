package testsupport

import (
	"testing"

	"subcue/internal/config"
	"subcue/internal/logging"
	"subcue/internal/store"
	"subcue/internal/subtitle"
)

// MustOpenStore opens a tiered store rooted at the test config's directories
// and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Tiered {
	t.Helper()

	primary, err := store.OpenPrimary(cfg.Paths.StateDir)
	if err != nil {
		t.Fatalf("store.OpenPrimary: %v", err)
	}
	logger := logging.NewNop()
	tiered := store.NewTiered(
		store.NewMemory(cfg.Editor.CacheEntries),
		primary,
		store.NewFallback(cfg.Paths.FallbackDir, logger),
		logger,
	)
	t.Cleanup(func() {
		_ = tiered.Close()
	})
	return tiered
}

// Snapshot builds a snapshot with the given meta title and simple cue texts,
// each one second long.
func Snapshot(jobID, title string, texts ...string) subtitle.Snapshot {
	cues := make([]subtitle.SnapshotCue, 0, len(texts))
	for i, text := range texts {
		cues = append(cues, subtitle.SnapshotCue{
			Start: float64(i),
			End:   float64(i) + 1,
			Text:  text,
		})
	}
	return subtitle.Snapshot{
		Cues: cues,
		Meta: subtitle.Meta{JobID: jobID, Title: title},
	}
}
