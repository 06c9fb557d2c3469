// Package validate derives editorial diagnostics from a cue sequence. The
// check is pure and stateless; results are recomputed on every call and
// never persisted.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"subcue/internal/subtitle"
)

// Severity classifies a diagnostic. Diagnostics are advisory and never block
// saving.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Kind identifies the check that produced a diagnostic.
type Kind string

const (
	KindOverlap          Kind = "overlap"
	KindTextTooLong      Kind = "text_too_long"
	KindDurationTooShort Kind = "duration_too_short"
	KindDurationTooLong  Kind = "duration_too_long"
	KindEmptyText        Kind = "empty_text"
)

// Diagnostic is a single validation finding. CueIndexes holds the positions
// of the cues involved; overlap findings reference two adjacent cues.
type Diagnostic struct {
	Kind       Kind     `json:"kind"`
	CueIndexes []int    `json:"cue_indexes"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
}

// Limits holds the tunable thresholds. Zero values are replaced by the
// reference defaults.
type Limits struct {
	MaxTextLength int
	MinDuration   float64
	MaxDuration   float64
}

// DefaultLimits returns the reference thresholds.
func DefaultLimits() Limits {
	return Limits{MaxTextLength: 30, MinDuration: 0.5, MaxDuration: 7.0}
}

func (l Limits) withDefaults() Limits {
	defaults := DefaultLimits()
	if l.MaxTextLength <= 0 {
		l.MaxTextLength = defaults.MaxTextLength
	}
	if l.MinDuration <= 0 {
		l.MinDuration = defaults.MinDuration
	}
	if l.MaxDuration <= 0 {
		l.MaxDuration = defaults.MaxDuration
	}
	return l
}

// Check runs every check independently over the cue sequence. A cue may
// accumulate multiple diagnostics. Output is stable: grouped by check in the
// order overlap, text length, short duration, long duration, empty text,
// then by cue index within each group.
func Check(cues []subtitle.Cue, limits Limits) []Diagnostic {
	limits = limits.withDefaults()

	var out []Diagnostic

	for i := 0; i+1 < len(cues); i++ {
		if cues[i].End > cues[i+1].Start {
			out = append(out, Diagnostic{
				Kind:       KindOverlap,
				CueIndexes: []int{i, i + 1},
				Message:    fmt.Sprintf("cue %d ends at %.3fs, after cue %d starts at %.3fs", i+1, cues[i].End, i+2, cues[i+1].Start),
				Severity:   SeverityError,
			})
		}
	}

	for i, cue := range cues {
		// The limit is a character count, so measure runes rather than bytes.
		if count := utf8.RuneCountInString(cue.Text); count > limits.MaxTextLength {
			out = append(out, Diagnostic{
				Kind:       KindTextTooLong,
				CueIndexes: []int{i},
				Message:    fmt.Sprintf("cue %d text is %d characters (limit %d)", i+1, count, limits.MaxTextLength),
				Severity:   SeverityWarning,
			})
		}
	}

	for i, cue := range cues {
		if cue.End-cue.Start < limits.MinDuration {
			out = append(out, Diagnostic{
				Kind:       KindDurationTooShort,
				CueIndexes: []int{i},
				Message:    fmt.Sprintf("cue %d lasts %.3fs (minimum %.1fs)", i+1, cue.End-cue.Start, limits.MinDuration),
				Severity:   SeverityWarning,
			})
		}
	}

	for i, cue := range cues {
		if cue.End-cue.Start > limits.MaxDuration {
			out = append(out, Diagnostic{
				Kind:       KindDurationTooLong,
				CueIndexes: []int{i},
				Message:    fmt.Sprintf("cue %d lasts %.3fs (maximum %.1fs)", i+1, cue.End-cue.Start, limits.MaxDuration),
				Severity:   SeverityWarning,
			})
		}
	}

	for i, cue := range cues {
		if strings.TrimSpace(cue.Text) == "" {
			out = append(out, Diagnostic{
				Kind:       KindEmptyText,
				CueIndexes: []int{i},
				Message:    fmt.Sprintf("cue %d has no text", i+1),
				Severity:   SeverityError,
			})
		}
	}

	return out
}

// Count summarizes diagnostics by severity.
func Count(diags []Diagnostic) (warnings, errors int) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errors++
		default:
			warnings++
		}
	}
	return warnings, errors
}
