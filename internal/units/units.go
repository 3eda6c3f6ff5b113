// Package units formats timestamps and durations for CLI output and logs.
package units

import (
	"fmt"
	"strings"

	"github.com/openmic-labs/stagecut/internal/stage"
)

// FormatTimestamp renders seconds-from-start as H:MM:SS.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// FormatDuration renders a duration compactly, e.g. "1h 11m 11s" or "45s".
func FormatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

// FormatSegment renders a segment as "0:01:23 - 0:02:34 (1m 11s)".
func FormatSegment(seg stage.Segment) string {
	return fmt.Sprintf("%s - %s (%s)",
		FormatTimestamp(seg.Start), FormatTimestamp(seg.End), FormatDuration(seg.Duration()))
}
