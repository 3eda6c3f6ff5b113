// Package segment turns raw presence intervals into the final clip list:
// drop intervals of implausible length, merge near-adjacent ones, then pad
// the survivors with pre/post-roll clamped to the video bounds. The stage
// order is load-bearing: merging runs on unbuffered intervals so padding
// can never glue two distinct performances together.
package segment

import (
	"math"

	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/stage"
)

// Config is the resolved assembly tuning.
type Config struct {
	MinDuration        float64
	MaxDuration        float64
	MergeCloseSegments bool
	MergeThreshold     float64
	BufferBefore       float64
	BufferAfter        float64
}

// DefaultConfig returns the assembly defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.Empty())
}

// ConfigFrom resolves the assembly tuning from the full configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MinDuration:        cfg.Filter.GetMinDuration(),
		MaxDuration:        cfg.Filter.GetMaxDuration(),
		MergeCloseSegments: cfg.Filter.GetMergeCloseSegments(),
		MergeThreshold:     cfg.Filter.GetMergeThreshold(),
		BufferBefore:       cfg.Filter.GetBufferBefore(),
		BufferAfter:        cfg.Filter.GetBufferAfter(),
	}
}

// Assembler applies the duration/merge/buffer pipeline.
type Assembler struct {
	cfg Config
}

// New returns an assembler with the given tuning.
func New(cfg Config) Assembler {
	return Assembler{cfg: cfg}
}

// Filter assembles the final segments from raw presence intervals, which
// must be in start order. videoDuration clamps the trailing buffer; pass a
// negative value when unknown to leave end times unclamped.
func (a Assembler) Filter(segments []stage.Segment, videoDuration float64) []stage.Segment {
	if len(segments) == 0 {
		return nil
	}

	kept := make([]stage.Segment, 0, len(segments))
	for _, seg := range segments {
		d := seg.Duration()
		if d < a.cfg.MinDuration || d > a.cfg.MaxDuration {
			continue
		}

		if len(kept) > 0 && a.cfg.MergeCloseSegments {
			prev := &kept[len(kept)-1]
			if seg.Start-prev.End < a.cfg.MergeThreshold {
				prev.End = seg.End
				continue
			}
		}
		kept = append(kept, seg)
	}

	out := make([]stage.Segment, 0, len(kept))
	for _, seg := range kept {
		buffered := stage.Segment{
			Start: math.Max(0, seg.Start-a.cfg.BufferBefore),
			End:   seg.End + a.cfg.BufferAfter,
		}
		if videoDuration >= 0 {
			buffered.End = math.Min(videoDuration, buffered.End)
		}
		out = append(out, buffered)
	}
	return out
}

// Stats summarizes a segment list.
type Stats struct {
	Count         int     `json:"count"`
	TotalDuration float64 `json:"total_duration"`
	AvgDuration   float64 `json:"avg_duration"`
	MinDuration   float64 `json:"min_duration"`
	MaxDuration   float64 `json:"max_duration"`
}

// Summarize computes duration statistics over segments.
func Summarize(segments []stage.Segment) Stats {
	if len(segments) == 0 {
		return Stats{}
	}
	s := Stats{
		Count:       len(segments),
		MinDuration: math.Inf(1),
	}
	for _, seg := range segments {
		d := seg.Duration()
		s.TotalDuration += d
		s.MinDuration = math.Min(s.MinDuration, d)
		s.MaxDuration = math.Max(s.MaxDuration, d)
	}
	s.AvgDuration = s.TotalDuration / float64(len(segments))
	return s
}
