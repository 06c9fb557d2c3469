package validate_test

import (
	"strings"
	"testing"

	"subcue/internal/subtitle"
	"subcue/internal/validate"
)

func cue(start, end float64, text string) subtitle.Cue {
	return subtitle.Cue{ID: subtitle.NewCueID(), Start: start, End: end, Text: text}
}

func TestCheckCleanSequence(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 1, "first"),
		cue(1, 2, "second"),
	}
	if diags := validate.Check(cues, validate.Limits{}); len(diags) != 0 {
		t.Fatalf("clean sequence produced diagnostics: %+v", diags)
	}
}

func TestCheckAdjacentBoundaryIsNotOverlap(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 1, "a"),
		cue(1, 2, "b"),
	}
	for _, d := range validate.Check(cues, validate.Limits{}) {
		if d.Kind == validate.KindOverlap {
			t.Fatalf("shared boundary reported as overlap: %+v", d)
		}
	}
}

func TestCheckOverlap(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 2, "a"),
		cue(1, 3, "b"),
	}
	diags := validate.Check(cues, validate.Limits{})
	overlaps := 0
	for _, d := range diags {
		if d.Kind != validate.KindOverlap {
			continue
		}
		overlaps++
		if len(d.CueIndexes) != 2 || d.CueIndexes[0] != 0 || d.CueIndexes[1] != 1 {
			t.Fatalf("overlap references wrong cues: %+v", d)
		}
		if d.Severity != validate.SeverityError {
			t.Fatalf("overlap must be an error: %+v", d)
		}
	}
	if overlaps != 1 {
		t.Fatalf("expected exactly one overlap diagnostic, got %d", overlaps)
	}
}

func TestCheckTextTooLong(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 1, strings.Repeat("x", 31)),
	}
	diags := validate.Check(cues, validate.Limits{})
	if len(diags) != 1 || diags[0].Kind != validate.KindTextTooLong {
		t.Fatalf("expected text_too_long, got %+v", diags)
	}
	if diags[0].Severity != validate.SeverityWarning {
		t.Fatalf("text length is advisory: %+v", diags[0])
	}
}

func TestCheckTextLengthCountsCharactersNotBytes(t *testing.T) {
	cues := []subtitle.Cue{
		// 16 characters, 32 bytes in UTF-8; well under the 30-character limit.
		cue(0, 1, strings.Repeat("ä", 16)),
	}
	if diags := validate.Check(cues, validate.Limits{}); len(diags) != 0 {
		t.Fatalf("multi-byte text under the limit was flagged: %+v", diags)
	}

	long := []subtitle.Cue{
		cue(0, 1, strings.Repeat("ä", 31)),
	}
	diags := validate.Check(long, validate.Limits{})
	if len(diags) != 1 || diags[0].Kind != validate.KindTextTooLong {
		t.Fatalf("expected text_too_long, got %+v", diags)
	}
	if !strings.Contains(diags[0].Message, "31 characters") {
		t.Fatalf("message must report the character count: %q", diags[0].Message)
	}
}

func TestCheckDurations(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 0.2, "blip"),
		cue(1, 9, "marathon"),
	}
	diags := validate.Check(cues, validate.Limits{})
	kinds := map[validate.Kind]int{}
	for _, d := range diags {
		kinds[d.Kind]++
	}
	if kinds[validate.KindDurationTooShort] != 1 {
		t.Fatalf("expected one duration_too_short, got %+v", diags)
	}
	if kinds[validate.KindDurationTooLong] != 1 {
		t.Fatalf("expected one duration_too_long, got %+v", diags)
	}
}

func TestCheckWhitespaceOnlyTextIsEmpty(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 1, "   \n\t "),
	}
	diags := validate.Check(cues, validate.Limits{})
	if len(diags) != 1 || diags[0].Kind != validate.KindEmptyText {
		t.Fatalf("whitespace-only text must report empty_text: %+v", diags)
	}
	if diags[0].Severity != validate.SeverityError {
		t.Fatalf("empty text must be an error: %+v", diags[0])
	}
}

func TestCheckCueAccumulatesMultipleFindings(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 0.1, " "),
	}
	diags := validate.Check(cues, validate.Limits{})
	kinds := map[validate.Kind]bool{}
	for _, d := range diags {
		kinds[d.Kind] = true
	}
	if !kinds[validate.KindDurationTooShort] || !kinds[validate.KindEmptyText] {
		t.Fatalf("expected both short duration and empty text: %+v", diags)
	}
}

func TestCheckStableOrdering(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 2, strings.Repeat("y", 40)),
		cue(1, 1.2, ""),
	}
	first := validate.Check(cues, validate.Limits{})
	second := validate.Check(cues, validate.Limits{})
	if len(first) != len(second) {
		t.Fatalf("recomputation changed diagnostics: %d != %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || first[i].Message != second[i].Message {
			t.Fatalf("ordering not stable at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	// Overlap group comes before per-cue checks.
	if first[0].Kind != validate.KindOverlap {
		t.Fatalf("expected overlap first, got %+v", first[0])
	}
}

func TestCheckCustomLimits(t *testing.T) {
	cues := []subtitle.Cue{
		cue(0, 1, "short enough by default"),
	}
	diags := validate.Check(cues, validate.Limits{MaxTextLength: 5})
	if len(diags) != 1 || diags[0].Kind != validate.KindTextTooLong {
		t.Fatalf("custom limit not applied: %+v", diags)
	}
}

func TestCount(t *testing.T) {
	diags := []validate.Diagnostic{
		{Severity: validate.SeverityError},
		{Severity: validate.SeverityWarning},
		{Severity: validate.SeverityWarning},
	}
	warnings, errors := validate.Count(diags)
	if warnings != 2 || errors != 1 {
		t.Fatalf("Count = (%d, %d), want (2, 1)", warnings, errors)
	}
}
