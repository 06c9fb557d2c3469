// Package session composes the collection, history manager, autosave
// coordinator, and tiered store into one explicitly owned editing context.
// There is no ambient global: the daemon constructs a Session once and
// passes it to the surfaces that need it.
//
// All operations serialize on an internal mutex, giving the core a single
// logical scheduling domain; the debounce timer goroutine funnels back
// through the same lock when it applies a save result.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"subcue/internal/autosave"
	"subcue/internal/collection"
	"subcue/internal/history"
	"subcue/internal/logging"
	"subcue/internal/notifications"
	"subcue/internal/srt"
	"subcue/internal/store"
	"subcue/internal/subtitle"
	"subcue/internal/validate"
)

// Event describes an observed session change for external observers such as
// the websocket feed. Observers run synchronously under the session lock and
// must not call back into the session.
type Event struct {
	JobID   string                `json:"job_id"`
	Kind    collection.ChangeKind `json:"kind"`
	Dirty   bool                  `json:"dirty"`
	CanUndo bool                  `json:"can_undo"`
	CanRedo bool                  `json:"can_redo"`
}

// Options configures a Session.
type Options struct {
	Store        *store.Tiered
	Notifier     notifications.Service
	Logger       *slog.Logger
	HistoryDepth int
	Debounce     time.Duration
	Limits       validate.Limits
	// OnSaveError receives durable-write failures. Optional.
	OnSaveError func(id string, err error)
}

type Session struct {
	mu sync.Mutex

	logger    *slog.Logger
	col       *collection.Collection
	hist      *history.History
	saver     *autosave.Coordinator
	store     *store.Tiered
	limits    validate.Limits
	observers []func(Event)
}

func New(opts Options) *Session {
	s := &Session{
		logger: logging.NewComponentLogger(opts.Logger, "session"),
		col:    collection.New(),
		hist:   history.New(opts.HistoryDepth),
		store:  opts.Store,
		limits: opts.Limits,
	}
	s.saver = autosave.New(autosave.Options{
		Store:    opts.Store,
		Notifier: opts.Notifier,
		Logger:   opts.Logger,
		Debounce: opts.Debounce,
		Apply:    s.applySaveResult,
		Report:   opts.OnSaveError,
	})
	s.col.Subscribe(s.onChange)
	return s
}

// onChange is the single subscriber wired into the collection. It runs
// synchronously inside each mutating operation, so every public call is
// observed exactly once.
func (s *Session) onChange(change collection.Change) {
	meta := s.col.Meta()
	snap := subtitle.ComposeSnapshot(meta, s.col.Cues())

	switch change.Kind {
	case collection.ChangeImport:
		s.hist.Reset(s.col.Cues())
		// A freshly imported or restored project is clean; prime the memory
		// tier without scheduling a durable write.
		s.saver.Prime(meta.JobID, snap)
	case collection.ChangeEdit:
		s.hist.Push(s.col.Cues())
		s.saver.Observe(meta.JobID, snap)
	case collection.ChangeRevert:
		s.saver.Observe(meta.JobID, snap)
	case collection.ChangeSaveApplied:
		// The completion of a write is not a new mutation. Refresh the memory
		// tier with the now-clean snapshot, but never schedule another write
		// for it.
		s.saver.Prime(meta.JobID, snap)
	}

	event := Event{
		JobID:   meta.JobID,
		Kind:    change.Kind,
		Dirty:   s.col.Dirty(),
		CanUndo: s.hist.CanUndo(),
		CanRedo: s.hist.CanRedo(),
	}
	for _, fn := range s.observers {
		fn(event)
	}
}

func (s *Session) applySaveResult(id string, savedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col.Meta().JobID != id {
		// The active project changed while the write was in flight; the
		// result belongs to the previous project and must not touch the
		// current one.
		return
	}
	if s.saver.Pending() {
		// An edit raced the write and is still awaiting its own flush;
		// clearing dirty state now would hide it. That flush applies its
		// own, newer result.
		return
	}
	s.col.ApplySaveResult(savedAt)
}

// Import replaces the session with a fresh transcription: raw SRT text plus
// metadata. Malformed blocks are dropped per the codec's leniency; the
// returned stats expose the drop count. History is reset so undo cannot
// cross the import boundary.
func (s *Session) Import(rawText string, meta subtitle.Meta) srt.ParseStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	cues, stats := srt.Parse(rawText)
	s.col.Import(cues, meta)

	s.logger.Info("imported project",
		logging.String(logging.FieldJobID, meta.JobID),
		logging.Int("cue_count", len(cues)),
		logging.Int("dropped_blocks", stats.Dropped))
	return stats
}

// RestoreProject settles any pending autosave for the current project, then
// loads id from the tiered store. A miss returns store.ErrNotFound so the
// caller can fall back to a fresh import.
func (s *Session) RestoreProject(ctx context.Context, id string) error {
	if err := s.saver.Settle(ctx); err != nil {
		// The previous project keeps its dirty state and will retry; never
		// block activating the new project on it.
		s.logger.Warn("settling previous project failed",
			logging.Error(err))
	}

	snap, err := s.store.Restore(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta := snap.Meta
	meta.JobID = id
	s.col.Import(snap.Materialize(), meta)

	s.logger.Info("restored project",
		logging.String(logging.FieldJobID, id),
		logging.Int("cue_count", len(snap.Cues)))
	return nil
}

// UpdateSubtitle merges patch fields into the cue matching id. Unknown ids
// are a no-op.
func (s *Session) UpdateSubtitle(id string, patch collection.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Update(id, patch)
}

// AddSubtitle inserts a new cue at index (clamped) and returns it.
func (s *Session) AddSubtitle(index int, payload collection.Payload) subtitle.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Insert(index, payload)
}

// RemoveSubtitle deletes the cue matching id if present.
func (s *Session) RemoveSubtitle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Remove(id)
}

// GenerateSRT serializes the current sequence. Read-only.
func (s *Session) GenerateSRT() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Generate()
}

// SaveProject forces an immediate durable write of any pending state.
func (s *Session) SaveProject(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// SaveImported persists the current project immediately even though a fresh
// import carries no dirty state. Without it a restart could not restore a
// project that was imported but never edited.
func (s *Session) SaveImported(ctx context.Context) error {
	s.mu.Lock()
	meta := s.col.Meta()
	snap := subtitle.ComposeSnapshot(meta, s.col.Cues())
	s.mu.Unlock()
	if meta.JobID == "" {
		return nil
	}
	return s.saver.ForceWrite(ctx, meta.JobID, snap)
}

// Undo restores the previous snapshot if one is retained.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.col.RestoreSnapshot(snap)
	return true
}

// Redo restores the next snapshot if one exists.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.col.RestoreSnapshot(snap)
	return true
}

// Cues returns a deep copy of the current cue sequence.
func (s *Session) Cues() []subtitle.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Cues()
}

// Meta returns the current project metadata.
func (s *Session) Meta() subtitle.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Meta()
}

// Diagnostics recomputes the editorial diagnostics for the current sequence.
// Never cached.
func (s *Session) Diagnostics() []validate.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validate.Check(s.col.Cues(), s.limits)
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col.Dirty()
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// Notify registers a change observer.
func (s *Session) Notify(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.observers = append(s.observers, fn)
	}
}

// Projects lists stored projects from the durable tier.
func (s *Session) Projects(ctx context.Context) ([]store.ProjectInfo, error) {
	return s.store.List(ctx)
}

// Close settles pending writes and stops the coordinator.
func (s *Session) Close(ctx context.Context) error {
	err := s.saver.Flush(ctx)
	s.saver.Stop()
	return err
}
