// Package collection owns the ordered cue sequence and project metadata and
// exposes the mutation operations of the editor core.
//
// A Collection carries an explicit subscriber list instead of any ambient
// change tracking: every public mutating operation applies its change and
// then notifies each subscriber exactly once, no matter how many internal
// steps it took. The type is not safe for concurrent use; the owning session
// serializes access.
package collection

import (
	"time"

	"subcue/internal/srt"
	"subcue/internal/subtitle"
)

// ChangeKind classifies a collection mutation for subscribers.
type ChangeKind string

const (
	// ChangeImport replaces the whole project; undo history must not cross it.
	ChangeImport ChangeKind = "import"
	// ChangeEdit is a user mutation: update, insert, or remove.
	ChangeEdit ChangeKind = "edit"
	// ChangeRevert restores an undo/redo snapshot.
	ChangeRevert ChangeKind = "revert"
	// ChangeSaveApplied records a successful durable write: dirty flags
	// cleared, last-saved updated.
	ChangeSaveApplied ChangeKind = "save_applied"
)

// Change describes one observed mutation.
type Change struct {
	Kind ChangeKind
}

// Subscriber receives change notifications synchronously, in registration
// order.
type Subscriber func(Change)

// Patch holds optional cue fields for Update; nil fields are left untouched.
type Patch struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  *string  `json:"text"`
}

// Payload holds the fields of a cue to insert.
type Payload struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Collection is the live project state.
type Collection struct {
	meta subtitle.Meta
	cues []subtitle.Cue
	subs []Subscriber
}

func New() *Collection {
	return &Collection{}
}

// Subscribe registers a change observer.
func (c *Collection) Subscribe(fn Subscriber) {
	if fn != nil {
		c.subs = append(c.subs, fn)
	}
}

func (c *Collection) notify(kind ChangeKind) {
	change := Change{Kind: kind}
	for _, fn := range c.subs {
		fn(change)
	}
}

// Import replaces cues and metadata wholesale and clears all dirty flags.
func (c *Collection) Import(cues []subtitle.Cue, meta subtitle.Meta) {
	c.cues = subtitle.CloneCues(cues)
	for i := range c.cues {
		c.cues[i].Dirty = false
	}
	meta.Dirty = false
	c.meta = meta
	c.notify(ChangeImport)
}

// Update merges patch fields into the cue matching id. A missing id is a
// silent no-op. Returns whether a cue was changed.
func (c *Collection) Update(id string, patch Patch) bool {
	for i := range c.cues {
		if c.cues[i].ID != id {
			continue
		}
		if patch.Start != nil {
			c.cues[i].Start = *patch.Start
		}
		if patch.End != nil {
			c.cues[i].End = *patch.End
		}
		if patch.Text != nil {
			c.cues[i].Text = *patch.Text
		}
		c.cues[i].Dirty = true
		c.meta.Dirty = true
		c.notify(ChangeEdit)
		return true
	}
	return false
}

// Insert creates a cue with a fresh identifier at index, clamped to the
// valid range, and returns it.
func (c *Collection) Insert(index int, payload Payload) subtitle.Cue {
	if index < 0 {
		index = 0
	}
	if index > len(c.cues) {
		index = len(c.cues)
	}
	cue := subtitle.Cue{
		ID:    subtitle.NewCueID(),
		Start: payload.Start,
		End:   payload.End,
		Text:  payload.Text,
		Dirty: true,
	}
	c.cues = append(c.cues[:index], append([]subtitle.Cue{cue}, c.cues[index:]...)...)
	c.meta.Dirty = true
	c.notify(ChangeEdit)
	return cue
}

// Remove deletes the cue matching id if present; otherwise a silent no-op.
func (c *Collection) Remove(id string) bool {
	for i := range c.cues {
		if c.cues[i].ID == id {
			c.cues = append(c.cues[:i], c.cues[i+1:]...)
			c.meta.Dirty = true
			c.notify(ChangeEdit)
			return true
		}
	}
	return false
}

// RestoreSnapshot replaces the cue sequence with an undo/redo snapshot. The
// project becomes dirty: the restored state still needs persisting.
func (c *Collection) RestoreSnapshot(cues []subtitle.Cue) {
	c.cues = subtitle.CloneCues(cues)
	c.meta.Dirty = true
	c.notify(ChangeRevert)
}

// ApplySaveResult clears the project's and every cue's dirty flag and
// records the save time. The notification flows through the normal
// subscriber pipeline; the session routes it as a cache refresh rather
// than a new mutation, so it never schedules another write.
func (c *Collection) ApplySaveResult(savedAt time.Time) {
	for i := range c.cues {
		c.cues[i].Dirty = false
	}
	c.meta.Dirty = false
	c.meta.LastSaved = savedAt
	c.notify(ChangeSaveApplied)
}

// Generate serializes the current sequence as SRT. Read-only.
func (c *Collection) Generate() string {
	return srt.Serialize(c.cues)
}

// Cues returns a deep copy of the cue sequence.
func (c *Collection) Cues() []subtitle.Cue {
	return subtitle.CloneCues(c.cues)
}

// Meta returns the current project metadata.
func (c *Collection) Meta() subtitle.Meta {
	return c.meta
}

// Dirty reports whether unsaved mutations exist.
func (c *Collection) Dirty() bool {
	return c.meta.Dirty
}

// Len returns the cue count.
func (c *Collection) Len() int {
	return len(c.cues)
}
