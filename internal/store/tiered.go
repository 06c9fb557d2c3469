package store

import (
	"context"
	"errors"
	"log/slog"

	"subcue/internal/logging"
	"subcue/internal/subtitle"
)

// Tiered composes the memory, primary, and fallback tiers.
type Tiered struct {
	mem      *Memory
	primary  *Primary
	fallback *Fallback
	logger   *slog.Logger
}

// NewTiered wires the three tiers together.
func NewTiered(mem *Memory, primary *Primary, fallback *Fallback, logger *slog.Logger) *Tiered {
	return &Tiered{
		mem:      mem,
		primary:  primary,
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "store"),
	}
}

// CachePut refreshes the memory tier only. The autosave coordinator calls
// this synchronously on every observed mutation.
func (t *Tiered) CachePut(id string, snap subtitle.Snapshot) {
	t.mem.Put(id, snap)
}

// Restore returns the snapshot for id, checking memory, then the primary
// durable store, then the fallback. A durable hit refreshes the memory tier.
// All tiers missing returns ErrNotFound.
func (t *Tiered) Restore(ctx context.Context, id string) (subtitle.Snapshot, error) {
	if snap, ok := t.mem.Get(id); ok {
		return snap, nil
	}

	snap, err := t.primary.Get(ctx, id)
	if err == nil {
		t.mem.Put(id, snap)
		return snap, nil
	}
	if !errors.Is(err, ErrNotFound) {
		t.logger.Warn("primary restore failed, trying fallback",
			logging.String(logging.FieldJobID, id),
			logging.Error(err))
	}

	snap, fbErr := t.fallback.Get(id)
	if fbErr == nil {
		t.mem.Put(id, snap)
		return snap, nil
	}
	if errors.Is(fbErr, ErrNotFound) {
		if err != nil && !errors.Is(err, ErrNotFound) {
			return subtitle.Snapshot{}, err
		}
		return subtitle.Snapshot{}, ErrNotFound
	}
	return subtitle.Snapshot{}, fbErr
}

// Write persists the snapshot durably. The primary is attempted first; on
// failure the fallback takes the write so the session survives a primary
// outage. Both failing returns the primary error wrapped as ErrWrite.
func (t *Tiered) Write(ctx context.Context, id string, snap subtitle.Snapshot) error {
	primaryErr := t.primary.Put(ctx, id, snap)
	if primaryErr == nil {
		return nil
	}

	t.logger.Warn("primary write failed, using fallback tier",
		logging.String(logging.FieldJobID, id),
		logging.Error(primaryErr))

	if fbErr := t.fallback.Put(id, snap); fbErr != nil {
		return Wrap(ErrWrite, "tiered", "all durable tiers failed", errors.Join(primaryErr, fbErr))
	}
	return nil
}

// List returns stored project summaries from the primary tier.
func (t *Tiered) List(ctx context.Context) ([]ProjectInfo, error) {
	return t.primary.List(ctx)
}

// Close releases the primary database handle.
func (t *Tiered) Close() error {
	return t.primary.Close()
}
