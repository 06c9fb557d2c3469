// Package autosave keeps the durable storage tiers eventually consistent
// with in-memory edits while preventing write storms and self-triggered
// loops.
//
// Every observed mutation refreshes the memory tier synchronously and
// (re)schedules a single debounced durable write; edits inside the window
// coalesce into one write of the latest composed snapshot. A save completion
// is routed back in as a cache refresh (Prime), never as a new mutation, so
// it cannot schedule another write; a real edit landing while the result is
// applied is recorded like any other and stays pending.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"subcue/internal/logging"
	"subcue/internal/notifications"
	"subcue/internal/store"
	"subcue/internal/subtitle"
)

// DefaultDebounce is the reference quiet period.
const DefaultDebounce = 400 * time.Millisecond

// State describes what the coordinator is currently doing.
type State string

const (
	// StateIdle: nothing scheduled or in flight.
	StateIdle State = "idle"
	// StatePending: a debounced write is scheduled.
	StatePending State = "pending"
	// StateWriting: a durable write is in flight.
	StateWriting State = "writing"
	// StateApplying: a successful write's result is being applied to the
	// collection.
	StateApplying State = "applying"
)

// Options configures a Coordinator.
type Options struct {
	Store    *store.Tiered
	Notifier notifications.Service
	Logger   *slog.Logger
	Debounce time.Duration
	// Apply clears dirty state after a successful write. The session runs it
	// under its own lock so the resulting notification stays inside the
	// single scheduling domain.
	Apply func(id string, savedAt time.Time)
	// Report receives durable-write failures. Optional.
	Report func(id string, err error)
}

type Coordinator struct {
	mu sync.Mutex

	store    *store.Tiered
	notifier notifications.Service
	logger   *slog.Logger
	debounce time.Duration
	apply    func(id string, savedAt time.Time)
	report   func(id string, err error)

	timer      *time.Timer
	state      State
	gen        uint64
	pendingID  string
	pending    subtitle.Snapshot
	hasPending bool

	// writing is true while a durable write is in flight; writeDone is
	// closed when it settles so concurrent flushes can wait on the outcome.
	writing   bool
	writeDone chan struct{}
}

func New(opts Options) *Coordinator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	return &Coordinator{
		store:    opts.Store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(opts.Logger, "autosave"),
		debounce: debounce,
		apply:    opts.Apply,
		report:   opts.Report,
		state:    StateIdle,
	}
}

// Prime refreshes the memory tier for id without scheduling a durable
// write. Used when a project is imported or restored and when a save result
// has been applied: in both cases the state is clean, so there is nothing
// to persist.
func (c *Coordinator) Prime(id string, snap subtitle.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" {
		return
	}
	c.store.CachePut(id, snap)
}

// Observe records a mutation of the project identified by id. Projects
// without an identifier are never persisted. Edits are recorded in every
// state, including while a prior save result is being applied; only the
// completion itself, routed through Prime, skips scheduling.
func (c *Coordinator) Observe(id string, snap subtitle.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" {
		return
	}

	c.store.CachePut(id, snap)

	c.gen++
	c.pendingID = id
	c.pending = snap
	c.hasPending = true
	if c.state != StateWriting {
		c.state = StatePending
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		if err := c.Flush(context.Background()); err != nil {
			// Already reported inside Flush; the dirty flags keep the
			// retry path alive.
			c.logger.Debug("debounced flush failed", logging.Error(err))
		}
	})
}

// Flush writes the most recent composed snapshot immediately, bypassing the
// debounce. It is the forced-save path and also settles pending state before
// a project switch. No pending snapshot is a successful no-op.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	// Wait out any in-flight write before trusting hasPending: a failure
	// re-arms it, and reporting success while another write can still fail
	// would be a lie to the forced-save caller.
	for c.writing {
		done := c.writeDone
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
	}
	if !c.hasPending {
		c.mu.Unlock()
		return nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	id := c.pendingID
	snap := c.pending
	gen := c.gen
	c.hasPending = false
	c.state = StateWriting
	c.writing = true
	c.writeDone = make(chan struct{})
	c.mu.Unlock()

	err := c.store.Write(ctx, id, snap)
	if err != nil {
		c.mu.Lock()
		c.writing = false
		close(c.writeDone)
		// Keep the snapshot pending unless a newer one superseded it, so an
		// explicit save retries. In-memory state is never rolled back.
		if c.gen == gen {
			c.hasPending = true
		}
		c.state = StatePending
		c.mu.Unlock()

		c.logger.Error("durable write failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "edits stay in memory; the next change or explicit save retries"))
		if c.report != nil {
			c.report(id, err)
		}
		if notifyErr := c.notifier.NotifySaveFailed(ctx, id, err); notifyErr != nil {
			c.logger.Warn("save failure notification failed", logging.Error(notifyErr))
		}
		return err
	}

	c.mu.Lock()
	c.writing = false
	close(c.writeDone)
	if c.gen != gen {
		// Newer edits arrived during the write; their own flush will clear
		// dirty state with the newer snapshot.
		c.state = StatePending
		c.mu.Unlock()
		return nil
	}
	c.state = StateApplying
	c.mu.Unlock()

	if c.apply != nil {
		c.apply(id, time.Now().UTC())
	}

	c.mu.Lock()
	if c.hasPending {
		// An edit landed while the result was being applied; leave it
		// scheduled for its own flush.
		c.state = StatePending
	} else {
		c.state = StateIdle
	}
	c.mu.Unlock()

	c.logger.Debug("autosaved project",
		logging.String(logging.FieldJobID, id),
		logging.Int("cue_count", len(snap.Cues)))
	return nil
}

// ForceWrite persists the given snapshot immediately, even when no mutation
// was observed. Used right after an import so a restart can restore the
// project before any edit happens. The write flows through the normal flush
// machinery, so the save result is applied the same way.
func (c *Coordinator) ForceWrite(ctx context.Context, id string, snap subtitle.Snapshot) error {
	if id == "" {
		return nil
	}
	c.mu.Lock()
	c.store.CachePut(id, snap)
	c.gen++
	c.pendingID = id
	c.pending = snap
	c.hasPending = true
	c.mu.Unlock()
	return c.Flush(ctx)
}

// Settle flushes any pending write synchronously. Called before switching the
// active project so state can never cross-write between two projects.
func (c *Coordinator) Settle(ctx context.Context) error {
	return c.Flush(ctx)
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending reports whether a debounced write is scheduled or retryable.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasPending
}

// Stop cancels any scheduled timer without writing.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
