// Package inbox watches the transcription drop directory. The transcription
// backend writes <job>.srt plus a <job>.json sidecar describing the job;
// once both halves of a pair exist the watcher imports the project through
// the session and forces an immediate durable save.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"subcue/internal/language"
	"subcue/internal/logging"
	"subcue/internal/notifications"
	"subcue/internal/session"
	"subcue/internal/subtitle"
)

// Sidecar is the metadata file the transcription backend drops next to the
// subtitle text.
type Sidecar struct {
	JobID     string  `json:"job_id"`
	Title     string  `json:"title"`
	MediaPath string  `json:"media_path"`
	AudioPath string  `json:"audio_path"`
	Language  string  `json:"language"`
	Duration  float64 `json:"duration"`
}

type Watcher struct {
	dir      string
	sess     *session.Session
	notifier notifications.Service
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

func New(dir string, sess *session.Session, notifier notifications.Service, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("inbox directory is required")
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	return &Watcher{
		dir:      dir,
		sess:     sess,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "inbox"),
		watcher:  fsWatcher,
	}, nil
}

// Run watches the inbox until ctx is cancelled. Pairs already present at
// startup are imported first.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("ensure inbox directory: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch inbox directory: %w", err)
	}

	w.logger.Info("watching inbox", logging.String("path", w.dir))
	w.scanExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if err := w.handleEvent(ctx, event); err != nil {
				w.logger.Error("inbox event failed",
					logging.String("path", event.Name),
					logging.Error(err))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox watcher error", logging.Error(err))
		}
	}
}

func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("initial inbox scan failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".srt") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".srt")
		if err := w.tryImport(ctx, stem); err != nil && !errors.Is(err, errPairIncomplete) {
			w.logger.Error("startup import failed",
				logging.String(logging.FieldJobID, stem),
				logging.Error(err))
		}
	}
}

var errPairIncomplete = errors.New("drop pair incomplete")

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) error {
	// Skip temporary files and anything but create/rename-in.
	if strings.HasSuffix(event.Name, ".tmp") {
		return nil
	}
	if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
		return nil
	}

	name := filepath.Base(event.Name)
	var stem string
	switch {
	case strings.HasSuffix(name, ".srt"):
		stem = strings.TrimSuffix(name, ".srt")
	case strings.HasSuffix(name, ".json"):
		stem = strings.TrimSuffix(name, ".json")
	default:
		return nil
	}

	err := w.tryImport(ctx, stem)
	if errors.Is(err, errPairIncomplete) {
		// The other half has not arrived yet; its own event completes the
		// pair.
		return nil
	}
	return err
}

func (w *Watcher) tryImport(ctx context.Context, stem string) error {
	srtPath := filepath.Join(w.dir, stem+".srt")
	sidecarPath := filepath.Join(w.dir, stem+".json")

	rawText, err := os.ReadFile(srtPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errPairIncomplete
		}
		return fmt.Errorf("read subtitle drop: %w", err)
	}
	sidecarData, err := os.ReadFile(sidecarPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errPairIncomplete
		}
		return fmt.Errorf("read sidecar: %w", err)
	}

	var sidecar Sidecar
	if err := json.Unmarshal(sidecarData, &sidecar); err != nil {
		return fmt.Errorf("decode sidecar %s.json: %w", stem, err)
	}
	if strings.TrimSpace(sidecar.JobID) == "" {
		sidecar.JobID = stem
	}
	if strings.TrimSpace(sidecar.Title) == "" {
		sidecar.Title = language.DeriveTitle(sidecar.MediaPath)
	}

	meta := subtitle.Meta{
		JobID:     sidecar.JobID,
		Title:     sidecar.Title,
		MediaPath: sidecar.MediaPath,
		AudioPath: sidecar.AudioPath,
		Language:  sidecar.Language,
		Duration:  sidecar.Duration,
	}

	stats := w.sess.Import(string(rawText), meta)
	cueCount := len(w.sess.Cues())

	// A fresh import is clean state; persist it explicitly so a restart can
	// restore the project before any edit happens.
	if err := w.sess.SaveImported(ctx); err != nil {
		return err
	}

	if stats.Dropped > 0 {
		w.logger.Warn("dropped malformed subtitle blocks on import",
			logging.String(logging.FieldJobID, meta.JobID),
			logging.Int("dropped_blocks", stats.Dropped))
	}
	w.logger.Info("imported transcription drop",
		logging.String(logging.FieldJobID, meta.JobID),
		logging.String("title", meta.Title),
		logging.Int("cue_count", cueCount))

	if err := w.notifier.NotifyImportCompleted(ctx, meta.JobID, meta.Title, cueCount); err != nil {
		w.logger.Warn("import notification failed", logging.Error(err))
	}

	// Consume the pair so a restart does not re-import it.
	for _, path := range []string{srtPath, sidecarPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("failed to remove processed drop",
				logging.String("path", path),
				logging.Error(err))
		}
	}
	return nil
}
