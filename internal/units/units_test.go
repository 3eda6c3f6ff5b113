package units

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openmic-labs/stagecut/internal/stage"
)

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{59.9, "0:00:59"},
		{83, "0:01:23"},
		{3600, "1:00:00"},
		{4271.4, "1:11:11"},
		{36000, "10:00:00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatTimestamp(tc.seconds), "%.1fs", tc.seconds)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{71, "1m 11s"},
		{3600, "1h"},
		{4271, "1h 11m 11s"},
		{3605, "1h 5s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.seconds), "%.0fs", tc.seconds)
	}
}

func TestFormatSegment(t *testing.T) {
	t.Parallel()

	got := FormatSegment(stage.Segment{Start: 83, End: 154})
	assert.Equal(t, "0:01:23 - 0:02:34 (1m 11s)", got)
}
