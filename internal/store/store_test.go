package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"subcue/internal/logging"
	"subcue/internal/store"
	"subcue/internal/subtitle"
)

func testSnapshot(jobID, title string, texts ...string) subtitle.Snapshot {
	cues := make([]subtitle.SnapshotCue, 0, len(texts))
	for i, text := range texts {
		cues = append(cues, subtitle.SnapshotCue{Start: float64(i), End: float64(i) + 1, Text: text})
	}
	return subtitle.Snapshot{Cues: cues, Meta: subtitle.Meta{JobID: jobID, Title: title}}
}

func openPrimary(t *testing.T) *store.Primary {
	t.Helper()
	primary, err := store.OpenPrimary(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPrimary: %v", err)
	}
	t.Cleanup(func() { _ = primary.Close() })
	return primary
}

func TestPrimaryPutGet(t *testing.T) {
	primary := openPrimary(t)
	ctx := context.Background()

	snap := testSnapshot("job-1", "First", "hello", "world")
	if err := primary.Put(ctx, "job-1", snap); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := primary.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Cues) != 2 || got.Cues[0].Text != "hello" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got.Meta.Title != "First" {
		t.Fatalf("meta not persisted: %+v", got.Meta)
	}
}

func TestPrimaryUpsert(t *testing.T) {
	primary := openPrimary(t)
	ctx := context.Background()

	if err := primary.Put(ctx, "job-1", testSnapshot("job-1", "v1", "a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := primary.Put(ctx, "job-1", testSnapshot("job-1", "v2", "a", "b")); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := primary.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Meta.Title != "v2" || len(got.Cues) != 2 {
		t.Fatalf("upsert did not replace: %+v", got)
	}

	infos, err := primary.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("upsert created duplicate rows: %d", len(infos))
	}
}

func TestPrimaryGetMissing(t *testing.T) {
	primary := openPrimary(t)
	if _, err := primary.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrimaryDelete(t *testing.T) {
	primary := openPrimary(t)
	ctx := context.Background()

	if err := primary.Put(ctx, "job-1", testSnapshot("job-1", "t", "a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := primary.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := primary.Get(ctx, "job-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted project still readable: %v", err)
	}
}

func TestPrimaryList(t *testing.T) {
	primary := openPrimary(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("job-%d", i)
		if err := primary.Put(ctx, id, testSnapshot(id, fmt.Sprintf("Title %d", i), "a", "b")); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	infos, err := primary.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(infos))
	}
	for _, info := range infos {
		if info.CueCount != 2 {
			t.Fatalf("cue count not recorded: %+v", info)
		}
		if info.UpdatedAt.IsZero() {
			t.Fatalf("updated_at missing: %+v", info)
		}
	}
}

func TestFallbackPutGetRemove(t *testing.T) {
	fallback := store.NewFallback(t.TempDir(), logging.NewNop())

	snap := testSnapshot("job-1", "Fallback", "text")
	if err := fallback.Put("job-1", snap); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := fallback.Get("job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Cues) != 1 || got.Cues[0].Text != "text" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if err := fallback.Remove("job-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := fallback.Get("job-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if err := fallback.Remove("job-1"); err != nil {
		t.Fatalf("removing a missing snapshot must be a no-op: %v", err)
	}
}

func TestFallbackRejectsEmptyID(t *testing.T) {
	fallback := store.NewFallback(t.TempDir(), logging.NewNop())
	if err := fallback.Put("  ", testSnapshot("", "x")); !errors.Is(err, store.ErrWrite) {
		t.Fatalf("expected ErrWrite for empty id, got %v", err)
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	mem := store.NewMemory(2)

	mem.Put("a", testSnapshot("a", "A"))
	mem.Put("b", testSnapshot("b", "B"))

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := mem.Get("a"); !ok {
		t.Fatalf("expected a resident")
	}
	mem.Put("c", testSnapshot("c", "C"))

	if _, ok := mem.Get("b"); ok {
		t.Fatalf("least recently used entry must be evicted")
	}
	if _, ok := mem.Get("a"); !ok {
		t.Fatalf("recently used entry must survive")
	}
	if mem.Len() != 2 {
		t.Fatalf("bound exceeded: %d entries", mem.Len())
	}
}

func newTiered(t *testing.T) (*store.Tiered, *store.Primary, *store.Fallback, *store.Memory) {
	t.Helper()
	primary, err := store.OpenPrimary(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPrimary: %v", err)
	}
	logger := logging.NewNop()
	mem := store.NewMemory(2)
	fallback := store.NewFallback(t.TempDir(), logger)
	tiered := store.NewTiered(mem, primary, fallback, logger)
	t.Cleanup(func() { _ = tiered.Close() })
	return tiered, primary, fallback, mem
}

func TestTieredRestoreFallsThroughTiers(t *testing.T) {
	tiered, primary, fallback, mem := newTiered(t)
	ctx := context.Background()

	// Durable only in primary: restore must hit it and refresh memory.
	if err := primary.Put(ctx, "job-1", testSnapshot("job-1", "P", "a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := tiered.Restore(ctx, "job-1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got.Meta.Title != "P" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if _, ok := mem.Get("job-1"); !ok {
		t.Fatalf("durable hit must refresh the memory tier")
	}

	// Present only in the fallback tier.
	if err := fallback.Put("job-2", testSnapshot("job-2", "F", "b")); err != nil {
		t.Fatalf("fallback Put: %v", err)
	}
	got, err = tiered.Restore(ctx, "job-2")
	if err != nil {
		t.Fatalf("Restore from fallback: %v", err)
	}
	if got.Meta.Title != "F" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if _, err := tiered.Restore(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("all tiers missing must return ErrNotFound, got %v", err)
	}
}

func TestTieredCachePutIsMemoryOnly(t *testing.T) {
	tiered, primary, _, mem := newTiered(t)
	ctx := context.Background()

	tiered.CachePut("job-1", testSnapshot("job-1", "M", "a"))
	if _, ok := mem.Get("job-1"); !ok {
		t.Fatalf("CachePut must populate the memory tier")
	}
	if _, err := primary.Get(ctx, "job-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("CachePut must not touch durable tiers: %v", err)
	}
}

func TestTieredWriteGoesToPrimary(t *testing.T) {
	tiered, primary, fallback, _ := newTiered(t)
	ctx := context.Background()

	if err := tiered.Write(ctx, "job-1", testSnapshot("job-1", "W", "a")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := primary.Get(ctx, "job-1"); err != nil {
		t.Fatalf("primary must hold the write: %v", err)
	}
	if _, err := fallback.Get("job-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("fallback must stay untouched on primary success: %v", err)
	}
}

func TestTieredWriteFallsBackWhenPrimaryFails(t *testing.T) {
	primary, err := store.OpenPrimary(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPrimary: %v", err)
	}
	logger := logging.NewNop()
	fallback := store.NewFallback(t.TempDir(), logger)
	tiered := store.NewTiered(store.NewMemory(2), primary, fallback, logger)

	// A closed primary fails every write; the fallback must take it.
	if err := primary.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tiered.Write(context.Background(), "job-1", testSnapshot("job-1", "FB", "a")); err != nil {
		t.Fatalf("Write with failed primary must use fallback: %v", err)
	}
	got, err := fallback.Get("job-1")
	if err != nil {
		t.Fatalf("fallback Get: %v", err)
	}
	if got.Meta.Title != "FB" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestTieredRestoreSurvivesMemoryEviction(t *testing.T) {
	tiered, _, _, mem := newTiered(t)
	ctx := context.Background()

	if err := tiered.Write(ctx, "job-1", testSnapshot("job-1", "Durable", "a")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	tiered.CachePut("job-1", testSnapshot("job-1", "Durable", "a"))

	// Evict job-1 by filling the bounded cache.
	tiered.CachePut("job-2", testSnapshot("job-2", "x"))
	tiered.CachePut("job-3", testSnapshot("job-3", "x"))
	if _, ok := mem.Get("job-1"); ok {
		t.Fatalf("expected job-1 evicted from memory")
	}

	got, err := tiered.Restore(ctx, "job-1")
	if err != nil {
		t.Fatalf("Restore after eviction: %v", err)
	}
	if got.Meta.Title != "Durable" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}
