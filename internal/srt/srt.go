package srt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"subcue/internal/subtitle"
)

// ParseStats reports what Parse encountered. Dropped counts blocks skipped
// because their timing line failed to parse.
type ParseStats struct {
	Blocks  int
	Dropped int
}

// Parse splits text into blank-line-delimited blocks and converts each into
// a cue with a fresh identifier. Malformed blocks are dropped, not surfaced
// as errors.
func Parse(text string) ([]subtitle.Cue, ParseStats) {
	var stats ParseStats

	content := strings.ReplaceAll(text, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, stats
	}

	var cues []subtitle.Cue
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		stats.Blocks++

		cue, ok := parseBlock(block)
		if !ok {
			stats.Dropped++
			continue
		}
		cues = append(cues, cue)
	}
	return cues, stats
}

func parseBlock(block string) (subtitle.Cue, bool) {
	lines := strings.Split(block, "\n")

	timingIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			timingIndex = i
			break
		}
	}
	if timingIndex == -1 {
		return subtitle.Cue{}, false
	}

	parts := strings.Split(lines[timingIndex], "-->")
	if len(parts) != 2 {
		return subtitle.Cue{}, false
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return subtitle.Cue{}, false
	}
	end, err := ParseTimestamp(parts[1])
	if err != nil {
		return subtitle.Cue{}, false
	}

	text := strings.Join(lines[timingIndex+1:], "\n")
	return subtitle.Cue{
		ID:    subtitle.NewCueID(),
		Start: start,
		End:   end,
		Text:  strings.TrimSpace(text),
	}, true
}

// Serialize emits the cue sequence in SubRip form. The 1-based index is
// positional and unrelated to the cue's internal identifier.
func Serialize(cues []subtitle.Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(cue.Start),
			FormatTimestamp(cue.End),
			cue.Text,
		)
	}
	return b.String()
}

// ParseTimestamp converts "HH:MM:SS,mmm" into seconds. The hour component is
// unbounded. A period is accepted in place of the comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// FormatTimestamp converts seconds into "HH:MM:SS,mmm". Hours, minutes and
// seconds are floored; the millisecond remainder is rounded, carrying into
// the seconds on round-up.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	whole := math.Floor(seconds)
	millis := int(math.Round((seconds - whole) * 1000))
	total := int(whole)
	if millis >= 1000 {
		millis -= 1000
		total++
	}
	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, (total%3600)/60, total%60, millis)
}
