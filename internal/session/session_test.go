package session_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"subcue/internal/collection"
	"subcue/internal/logging"
	"subcue/internal/session"
	"subcue/internal/store"
	"subcue/internal/subtitle"
	"subcue/internal/testsupport"
	"subcue/internal/validate"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,000
First cue

2
00:00:03,000 --> 00:00:04,000
Second cue
`

func newSession(t *testing.T, debounce time.Duration) (*session.Session, *store.Tiered) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	tiered := testsupport.MustOpenStore(t, cfg)
	sess := session.New(session.Options{
		Store:        tiered,
		Logger:       logging.NewNop(),
		HistoryDepth: cfg.Editor.HistoryDepth,
		Debounce:     debounce,
	})
	t.Cleanup(func() {
		_ = sess.Close(context.Background())
	})
	return sess, tiered
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestImportAndGenerate(t *testing.T) {
	sess, _ := newSession(t, time.Hour)

	stats := sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1", Title: "Test"})
	if stats.Dropped != 0 {
		t.Fatalf("unexpected drops: %+v", stats)
	}
	if len(sess.Cues()) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(sess.Cues()))
	}
	if sess.Dirty() {
		t.Fatalf("fresh import must be clean")
	}
	if sess.CanUndo() {
		t.Fatalf("undo must not cross the import boundary")
	}

	out := sess.GenerateSRT()
	if !strings.Contains(out, "First cue") || !strings.Contains(out, "00:00:03,000 --> 00:00:04,000") {
		t.Fatalf("unexpected export:\n%s", out)
	}
}

func TestEditUndoRedo(t *testing.T) {
	sess, _ := newSession(t, time.Hour)
	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1"})
	cues := sess.Cues()

	const mutations = 3
	for i := 0; i < mutations; i++ {
		text := fmt.Sprintf("edit-%d", i)
		if !sess.UpdateSubtitle(cues[0].ID, collection.Patch{Text: &text}) {
			t.Fatalf("update %d failed", i)
		}
	}
	if !sess.Dirty() {
		t.Fatalf("edits must dirty the project")
	}

	for i := mutations - 1; i >= 0; i-- {
		if !sess.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if sess.Cues()[0].Text != "First cue" {
		t.Fatalf("undo chain did not reach the baseline: %q", sess.Cues()[0].Text)
	}
	if sess.Undo() {
		t.Fatalf("undo past the baseline must be a no-op")
	}

	for i := 0; i < mutations; i++ {
		if !sess.Redo() {
			t.Fatalf("redo %d failed", i)
		}
	}
	if sess.Cues()[0].Text != "edit-2" {
		t.Fatalf("redo chain did not reach the newest state: %q", sess.Cues()[0].Text)
	}
	if sess.Redo() {
		t.Fatalf("nothing left to redo")
	}
}

func TestAddAndRemoveSubtitle(t *testing.T) {
	sess, _ := newSession(t, time.Hour)
	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1"})

	cue := sess.AddSubtitle(1, collection.Payload{Start: 2.0, End: 2.5, Text: "inserted"})
	if len(sess.Cues()) != 3 || sess.Cues()[1].ID != cue.ID {
		t.Fatalf("insert misplaced: %+v", sess.Cues())
	}

	if !sess.RemoveSubtitle(cue.ID) {
		t.Fatalf("remove failed")
	}
	if len(sess.Cues()) != 2 {
		t.Fatalf("remove left %d cues", len(sess.Cues()))
	}
	if sess.RemoveSubtitle("missing") {
		t.Fatalf("unknown id must be a no-op")
	}
}

func TestAutosaveClearsDirtyAfterDebounce(t *testing.T) {
	sess, tiered := newSession(t, 20*time.Millisecond)
	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1", Title: "Debounced"})
	cues := sess.Cues()

	text := "changed"
	sess.UpdateSubtitle(cues[0].ID, collection.Patch{Text: &text})
	if !sess.Dirty() {
		t.Fatalf("edit must dirty the project")
	}

	waitFor(t, 2*time.Second, func() bool { return !sess.Dirty() })

	if sess.Meta().LastSaved.IsZero() {
		t.Fatalf("save completion must record the save time")
	}
	snap, err := tiered.Restore(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if snap.Cues[0].Text != "changed" {
		t.Fatalf("persisted snapshot stale: %+v", snap.Cues[0])
	}

	// The completion itself must not schedule another write.
	time.Sleep(100 * time.Millisecond)
	if sess.Dirty() {
		t.Fatalf("save completion re-dirtied the project")
	}
}

func TestSaveProjectForcesWrite(t *testing.T) {
	sess, tiered := newSession(t, time.Hour)
	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1"})
	cues := sess.Cues()

	text := "forced"
	sess.UpdateSubtitle(cues[0].ID, collection.Patch{Text: &text})
	if err := sess.SaveProject(context.Background()); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if sess.Dirty() {
		t.Fatalf("explicit save must clear dirty state")
	}
	if _, err := tiered.Restore(context.Background(), "job-1"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
}

func TestSaveImportedAndRestoreProject(t *testing.T) {
	sess, _ := newSession(t, time.Hour)
	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1", Title: "Persisted"})
	if err := sess.SaveImported(context.Background()); err != nil {
		t.Fatalf("SaveImported: %v", err)
	}

	// Switch away, then restore.
	sess.Import("", subtitle.Meta{JobID: "job-2", Title: "Other"})
	if err := sess.RestoreProject(context.Background(), "job-1"); err != nil {
		t.Fatalf("RestoreProject: %v", err)
	}
	if sess.Meta().JobID != "job-1" || sess.Meta().Title != "Persisted" {
		t.Fatalf("wrong project restored: %+v", sess.Meta())
	}
	if len(sess.Cues()) != 2 {
		t.Fatalf("restored %d cues", len(sess.Cues()))
	}
	if sess.Dirty() {
		t.Fatalf("restored project must start clean")
	}
	if sess.CanUndo() {
		t.Fatalf("undo must not cross a restore boundary")
	}
}

func TestRestoreProjectMissing(t *testing.T) {
	sess, _ := newSession(t, time.Hour)
	if err := sess.RestoreProject(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestObserverReceivesEvents(t *testing.T) {
	sess, _ := newSession(t, time.Hour)

	var events []session.Event
	sess.Notify(func(event session.Event) {
		events = append(events, event)
	})

	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1"})
	cues := sess.Cues()
	text := "observed"
	sess.UpdateSubtitle(cues[0].ID, collection.Patch{Text: &text})

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != collection.ChangeImport || events[0].Dirty {
		t.Fatalf("unexpected import event: %+v", events[0])
	}
	if events[1].Kind != collection.ChangeEdit || !events[1].Dirty || !events[1].CanUndo {
		t.Fatalf("unexpected edit event: %+v", events[1])
	}
}

func TestDiagnosticsRecomputed(t *testing.T) {
	sess, _ := newSession(t, time.Hour)
	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1"})

	if diags := sess.Diagnostics(); len(diags) != 0 {
		t.Fatalf("clean project produced diagnostics: %+v", diags)
	}

	cues := sess.Cues()
	overlapping := 3.5
	sess.UpdateSubtitle(cues[0].ID, collection.Patch{End: &overlapping})

	diags := sess.Diagnostics()
	found := false
	for _, d := range diags {
		if d.Kind == validate.KindOverlap {
			found = true
		}
	}
	if !found {
		t.Fatalf("overlap not detected after edit: %+v", diags)
	}
}

func TestProjectsListing(t *testing.T) {
	sess, _ := newSession(t, time.Hour)
	sess.Import(sampleSRT, subtitle.Meta{JobID: "job-1", Title: "Listed"})
	if err := sess.SaveImported(context.Background()); err != nil {
		t.Fatalf("SaveImported: %v", err)
	}

	projects, err := sess.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 || projects[0].JobID != "job-1" || projects[0].CueCount != 2 {
		t.Fatalf("unexpected listing: %+v", projects)
	}
}
