package subtitle

import (
	"time"

	"github.com/google/uuid"
)

// Cue is one subtitle entry. ID is generated on creation and never reused or
// recomputed from position.
type Cue struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Dirty bool    `json:"dirty"`
}

// Meta carries project-level metadata handed over by the transcription
// backend on import.
type Meta struct {
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	MediaPath string    `json:"media_path"`
	AudioPath string    `json:"audio_path"`
	Language  string    `json:"language"`
	Duration  float64   `json:"duration"`
	LastSaved time.Time `json:"last_saved"`
	Dirty     bool      `json:"dirty"`
}

// Project pairs metadata with the ordered cue sequence. Consumers assume
// cues are ordered by non-decreasing start; violations are reported by the
// validation engine, not corrected here.
type Project struct {
	Meta Meta  `json:"meta"`
	Cues []Cue `json:"cues"`
}

// NewCueID returns a fresh opaque cue identifier.
func NewCueID() string {
	return uuid.NewString()
}

// NewJobID returns a fresh project identifier for locally created projects.
func NewJobID() string {
	return uuid.NewString()
}

// CloneCues returns a deep copy of the cue sequence.
func CloneCues(cues []Cue) []Cue {
	if cues == nil {
		return nil
	}
	out := make([]Cue, len(cues))
	copy(out, cues)
	return out
}

// SnapshotCue is the persisted cue layout. Identifiers and dirty flags are
// session-local and are regenerated on restore.
type SnapshotCue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Snapshot is the durable payload keyed by project identifier. The layout
// carries no version tag.
type Snapshot struct {
	Cues []SnapshotCue `json:"cues"`
	Meta Meta          `json:"meta"`
}

// ComposeSnapshot builds the persisted payload from live editing state.
func ComposeSnapshot(meta Meta, cues []Cue) Snapshot {
	out := Snapshot{Meta: meta, Cues: make([]SnapshotCue, len(cues))}
	for i, cue := range cues {
		out.Cues[i] = SnapshotCue{Start: cue.Start, End: cue.End, Text: cue.Text}
	}
	return out
}

// Materialize rebuilds live cues from a persisted snapshot, assigning fresh
// identifiers.
func (s Snapshot) Materialize() []Cue {
	cues := make([]Cue, len(s.Cues))
	for i, cue := range s.Cues {
		cues[i] = Cue{
			ID:    NewCueID(),
			Start: cue.Start,
			End:   cue.End,
			Text:  cue.Text,
		}
	}
	return cues
}
