// Package transcript parses SRT subtitle text into timed segments.
package transcript

import (
	"strconv"
	"strings"

	"spool/internal/job"
)

// ParseSRT converts SRT content into transcript segments. Boundary lines
// contain "-->"; digit-only lines delimit segments; remaining non-empty
// lines accumulate as the segment's text joined by single spaces. Malformed
// timestamp lines are skipped rather than failing the whole parse.
func ParseSRT(content string) []job.TranscriptSegment {
	var segments []job.TranscriptSegment
	var current *job.TranscriptSegment

	flush := func() {
		if current != nil {
			segments = append(segments, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case isDigits(line):
			flush()
		case strings.Contains(line, "-->"):
			parts := strings.SplitN(line, "-->", 2)
			start, okStart := parseTimestamp(parts[0])
			end, okEnd := parseTimestamp(parts[1])
			if !okStart || !okEnd {
				continue
			}
			flush()
			current = &job.TranscriptSegment{Start: start, End: end}
		default:
			if current == nil {
				continue
			}
			if current.Text == "" {
				current.Text = line
			} else {
				current.Text += " " + line
			}
		}
	}
	flush()
	return segments
}

// parseTimestamp converts "H:MM:SS,mmm" (or with a dot) to seconds.
func parseTimestamp(value string) (float64, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.ParseFloat(parts[0], 64)
	m, err2 := strconv.ParseFloat(parts[1], 64)
	s, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return h*3600 + m*60 + s, true
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
