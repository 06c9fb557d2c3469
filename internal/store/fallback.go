package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subcue/internal/logging"
	"subcue/internal/subtitle"
)

// Fallback is the secondary durable tier: one JSON snapshot file per project
// identifier, written atomically via temp file + rename.
type Fallback struct {
	dir    string
	logger *slog.Logger
}

// NewFallback creates a fallback store rooted at dir. The directory is
// created lazily on first write.
func NewFallback(dir string, logger *slog.Logger) *Fallback {
	return &Fallback{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "fallback-store"),
	}
}

func (f *Fallback) pathFor(id string) string {
	return filepath.Join(f.dir, id+".json")
}

// Put writes the snapshot for id atomically.
func (f *Fallback) Put(id string, snap subtitle.Snapshot) error {
	if strings.TrimSpace(id) == "" {
		return Wrap(ErrWrite, "fallback", "empty project id", nil)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Wrap(ErrWrite, "fallback", "marshal snapshot", err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return Wrap(ErrWrite, "fallback", "create directory", err)
	}

	target := f.pathFor(id)
	tmpPath := target + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return Wrap(ErrWrite, "fallback", "write temp file", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return Wrap(ErrWrite, "fallback", "rename temp file", err)
	}

	f.logger.Debug("wrote fallback snapshot",
		logging.String(logging.FieldJobID, id),
		logging.Int("cue_count", len(snap.Cues)))
	return nil
}

// Get reads the snapshot for id. Returns ErrNotFound when no file exists.
func (f *Fallback) Get(id string) (subtitle.Snapshot, error) {
	data, err := os.ReadFile(f.pathFor(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return subtitle.Snapshot{}, ErrNotFound
		}
		return subtitle.Snapshot{}, Wrap(ErrRead, "fallback", "read snapshot", err)
	}

	var snap subtitle.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return subtitle.Snapshot{}, Wrap(ErrRead, "fallback", fmt.Sprintf("decode %s.json", id), err)
	}
	return snap, nil
}

// Remove deletes the snapshot file for id if present.
func (f *Fallback) Remove(id string) error {
	err := os.Remove(f.pathFor(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Wrap(ErrWrite, "fallback", "remove snapshot", err)
	}
	return nil
}
