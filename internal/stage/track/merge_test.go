package track

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openmic-labs/stagecut/internal/stage"
)

func TestChunkIDBase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), ChunkIDBase(0))
	assert.Equal(t, int64(2_000_000), ChunkIDBase(2))
}

func TestMergeObservations(t *testing.T) {
	t.Parallel()

	obs := func(frame int, ts float64) stage.FrameObservation {
		return stage.FrameObservation{FrameIndex: frame, Timestamp: ts}
	}
	a := []stage.FrameObservation{obs(0, 0), obs(2, 2), obs(4, 4)}
	b := []stage.FrameObservation{obs(1, 1), obs(102, 2), obs(3, 3)}

	got := MergeObservations(a, b)

	frames := make([]int, len(got))
	for i, o := range got {
		frames[i] = o.FrameIndex
	}
	// Timestamps ordered; the tie at t=2 keeps the earlier chunk first.
	assert.Equal(t, []int{0, 1, 2, 102, 3, 4}, frames)
}

func TestMergeCandidates(t *testing.T) {
	t.Parallel()

	a := []Candidate{
		{Type: EventEnter, IdentityID: 1, Timestamp: 5},
		{Type: EventExit, IdentityID: 1, Timestamp: 40},
	}
	b := []Candidate{
		{Type: EventEnter, IdentityID: ChunkIDBase(1) + 1, Timestamp: 40},
		{Type: EventExit, IdentityID: ChunkIDBase(1) + 1, Timestamp: 90},
	}

	got := MergeCandidates(b, a)

	assert.Equal(t, []int64{1, 1, ChunkIDBase(1) + 1, ChunkIDBase(1) + 1},
		[]int64{got[0].IdentityID, got[1].IdentityID, got[2].IdentityID, got[3].IdentityID})
	assert.Equal(t, 40.0, got[1].Timestamp)
	assert.Equal(t, 40.0, got[2].Timestamp)
}
