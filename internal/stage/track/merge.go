package track

import (
	"sort"

	"github.com/openmic-labs/stagecut/internal/stage"
)

// ChunkIDStride separates the identity ID ranges of trackers running over
// different observation substreams: chunk k allocates IDs above
// k*ChunkIDStride. No chunk comes close to a million identities in
// practice.
const ChunkIDStride int64 = 1_000_000

// ChunkIDBase returns the identity ID base for chunk index k.
func ChunkIDBase(k int) int64 {
	return int64(k) * ChunkIDStride
}

// MergeObservations interleaves per-chunk observation substreams into a
// single stream in non-decreasing timestamp order. Each input substream
// must already be ordered; ties keep the lower chunk first so a merged
// replay is deterministic.
func MergeObservations(chunks ...[]stage.FrameObservation) []stage.FrameObservation {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]stage.FrameObservation, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp < out[b].Timestamp
	})
	return out
}

// MergeCandidates combines per-chunk candidate streams into timestamp
// order, ties broken by identity ID. Identity IDs from different chunks
// never collide because each chunk's tracker uses a disjoint ID base.
func MergeCandidates(chunks ...[]Candidate) []Candidate {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]Candidate, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Timestamp != out[b].Timestamp {
			return out[a].Timestamp < out[b].Timestamp
		}
		return out[a].IdentityID < out[b].IdentityID
	})
	return out
}
