package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmic-labs/stagecut/internal/stage"
)

func testConfig() Config {
	return Config{
		MaxMatchDistance:     0.15,
		MaxDisappearedFrames: 30,
		PositionHistory:      5,

		EnterStability: 2.0,
		ExitStability:  2.0,
		DormantTimeout: 5.0,

		MinDetectionConfidence: 0.5,
		MinBoxAreaFraction:     0.02,
		MinAspectRatio:         1.3,
		MaxAspectRatio:         3.2,
		MinVisibleKeypoints:    7,
		KeypointConfidence:     0.3,
		MinKeypointCoverage:    0.30,
		MinVerticalSpan:        0.50,
		AudienceZoneFraction:   0.25,

		EdgeThreshold:   0.20,
		ValidEntryEdges: []Edge{EdgeLeft, EdgeRight},
	}
}

// person builds a detection that passes the quality filter: a 0.1 x 0.25 box
// centered at (cx, cy) with confident keypoints spanning most of it.
func person(cx, cy float64) stage.Detection {
	box := stage.BoundingBox{X1: cx - 0.05, Y1: cy - 0.125, X2: cx + 0.05, Y2: cy + 0.125}
	var kps []stage.Keypoint
	for i := 0; i < 4; i++ {
		y := box.Y1 + 0.02 + float64(i)*0.07
		kps = append(kps,
			stage.Keypoint{X: cx - 0.04, Y: y, Confidence: 0.9},
			stage.Keypoint{X: cx + 0.04, Y: y, Confidence: 0.9},
		)
	}
	return stage.Detection{Box: box, Keypoints: kps, Confidence: 0.9}
}

func TestEnterAfterStabilization(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	var candidates []Candidate
	for ts := 0.0; ts <= 3.0; ts++ {
		candidates = append(candidates, tr.Update([]stage.Detection{person(0.5, 0.4)}, ts)...)
	}

	require.Len(t, candidates, 1)
	assert.Equal(t, EventEnter, candidates[0].Type)
	assert.Equal(t, 2.0, candidates[0].Timestamp)
	assert.Equal(t, 0.9, candidates[0].Confidence)
	assert.Equal(t, 1, tr.ActiveCount())

	ident, ok := tr.Get(candidates[0].IdentityID)
	require.True(t, ok)
	assert.Equal(t, StateActive, ident.State)
	assert.Equal(t, 1, ident.Entries)
}

// A single-frame detection never stabilizes and produces no events at all.
func TestGlitchSuppressed(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	candidates := tr.Update([]stage.Detection{person(0.5, 0.4)}, 0)
	for ts := 1.0; ts <= 5.0; ts++ {
		candidates = append(candidates, tr.Update(nil, ts)...)
	}

	assert.Empty(t, candidates)
	assert.Empty(t, tr.Snapshot())
}

// An identity carries the keypoint visibility of its last matched detection,
// which can sit well below the box confidence when most of the body is
// occluded. The appearance channel keys off this, not the box confidence.
func TestIdentityCarriesVisibility(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	det := person(0.5, 0.4)
	for i := range det.Keypoints {
		det.Keypoints[i].Confidence = 0.35
	}
	for i := 0; i < 9; i++ {
		det.Keypoints = append(det.Keypoints, stage.Keypoint{X: 0.5, Y: 0.4, Confidence: 0})
	}

	tr.Update([]stage.Detection{det}, 0)
	snap := tr.Snapshot()
	require.Len(t, snap, 1)

	// 8 keypoints at 0.35, 9 at zero.
	assert.InDelta(t, 8*0.35/17, snap[0].LastVisibility, 1e-9)
	assert.Less(t, snap[0].LastVisibility, 0.3)
	assert.Equal(t, 0.9, snap[0].LastConfidence)

	// A clean follow-up detection restores full visibility.
	tr.Update([]stage.Detection{person(0.5, 0.4)}, 1)
	snap = tr.Snapshot()
	require.Len(t, snap, 1)
	assert.InDelta(t, 0.9, snap[0].LastVisibility, 1e-9)
}

func TestTwoIdentitiesStayDistinct(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	var enters []Candidate
	for ts := 0.0; ts <= 10.0; ts++ {
		// Small jitter on both people, well within the match gate.
		jitter := 0.01 * float64(int(ts)%2)
		dets := []stage.Detection{
			person(0.3+jitter, 0.4),
			person(0.7-jitter, 0.4),
		}
		for _, c := range tr.Update(dets, ts) {
			if c.Type == EventEnter {
				enters = append(enters, c)
			}
		}
	}

	require.Len(t, enters, 2)
	assert.NotEqual(t, enters[0].IdentityID, enters[1].IdentityID)
	assert.Equal(t, 2, tr.ActiveCount())
	assert.Len(t, tr.Snapshot(), 2)
}

// A one-second detector dropout on an active identity neither splits the
// identity nor emits an exit.
func TestMissedFrameContinuity(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	var candidates []Candidate
	for ts := 0.0; ts <= 4.0; ts++ {
		candidates = append(candidates, tr.Update([]stage.Detection{person(0.5, 0.4)}, ts)...)
	}
	candidates = append(candidates, tr.Update(nil, 5)...)
	candidates = append(candidates, tr.Update([]stage.Detection{person(0.5, 0.4)}, 6)...)

	require.Len(t, candidates, 1)
	assert.Equal(t, EventEnter, candidates[0].Type)

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, StateActive, snap[0].State)
	assert.Equal(t, candidates[0].IdentityID, snap[0].ID)
}

// An active identity that vanishes mid-stage goes dormant and, on
// re-detection at the same spot, re-stabilizes under the same ID without a
// second enter event.
func TestDormantReactivation(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	var candidates []Candidate
	for ts := 0.0; ts <= 4.0; ts++ {
		candidates = append(candidates, tr.Update([]stage.Detection{person(0.5, 0.4)}, ts)...)
	}
	require.Len(t, candidates, 1)
	id := candidates[0].IdentityID

	// Two missing seconds push the identity dormant (centroid is nowhere
	// near a frame edge).
	tr.Update(nil, 5)
	tr.Update(nil, 6)
	ident, ok := tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateDormant, ident.State)

	// Reappears overlapping the old box: re-match, re-stabilize, no new
	// enter.
	for ts := 7.0; ts <= 9.0; ts++ {
		candidates = append(candidates, tr.Update([]stage.Detection{person(0.5, 0.4)}, ts)...)
	}
	assert.Len(t, candidates, 1)

	ident, ok = tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateActive, ident.State)
	assert.Equal(t, 1, ident.Entries)
}

func TestDormantTimeoutExit(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	var candidates []Candidate
	for ts := 0.0; ts <= 4.0; ts++ {
		candidates = append(candidates, tr.Update([]stage.Detection{person(0.5, 0.4)}, ts)...)
	}
	require.Len(t, candidates, 1)
	id := candidates[0].IdentityID

	var exit *Candidate
	for ts := 5.0; ts <= 15.0; ts++ {
		for _, c := range tr.Update(nil, ts) {
			c := c
			require.Nil(t, exit, "multiple exits for one identity")
			exit = &c
		}
	}

	require.NotNil(t, exit)
	assert.Equal(t, EventExit, exit.Type)
	assert.Equal(t, id, exit.IdentityID)
	assert.Equal(t, 0.7, exit.Confidence)
	assert.Equal(t, 4.0, exit.StageTime) // last seen 4, first seen 0
	assert.Equal(t, 1, exit.Entries)
	assert.Empty(t, tr.Snapshot())
}

// Disappearing right at a frame edge is a confirmed exit at full confidence.
func TestEdgeConfirmedExit(t *testing.T) {
	t.Parallel()

	tr := New(testConfig())

	positions := []float64{0.5, 0.5, 0.5, 0.38, 0.26, 0.15}
	var candidates []Candidate
	for i, x := range positions {
		candidates = append(candidates, tr.Update([]stage.Detection{person(x, 0.4)}, float64(i))...)
	}
	require.Len(t, candidates, 1)

	tr.Update(nil, 6)
	exits := tr.Update(nil, 7)

	require.Len(t, exits, 1)
	assert.Equal(t, EventExit, exits[0].Type)
	assert.Equal(t, 1.0, exits[0].Confidence)
	assert.Equal(t, 7.0, exits[0].Timestamp)
	assert.Empty(t, tr.Snapshot())
}

func TestFlush(t *testing.T) {
	t.Parallel()

	t.Run("center exit is low confidence, timestamped at last sighting plus hysteresis", func(t *testing.T) {
		t.Parallel()
		tr := New(testConfig())
		for ts := 0.0; ts <= 4.0; ts++ {
			tr.Update([]stage.Detection{person(0.5, 0.4)}, ts)
		}

		exits := tr.Flush(10)
		require.Len(t, exits, 1)
		assert.Equal(t, 0.5, exits[0].Confidence)
		assert.Equal(t, 6.0, exits[0].Timestamp) // last seen 4 + exit hysteresis 2
		assert.Empty(t, tr.Snapshot())
	})

	t.Run("edge exit reads higher", func(t *testing.T) {
		t.Parallel()
		tr := New(testConfig())
		positions := []float64{0.4, 0.3, 0.25, 0.15}
		for i, x := range positions {
			tr.Update([]stage.Detection{person(x, 0.4)}, float64(i))
		}

		exits := tr.Flush(3)
		require.Len(t, exits, 1)
		assert.Equal(t, 0.8, exits[0].Confidence)
		assert.Equal(t, 3.0, exits[0].Timestamp) // stream ends before hysteresis would
	})

	t.Run("pending identities flush silently", func(t *testing.T) {
		t.Parallel()
		tr := New(testConfig())
		tr.Update([]stage.Detection{person(0.5, 0.4)}, 0)

		assert.Empty(t, tr.Flush(1))
		assert.Empty(t, tr.Snapshot())
	})
}

// New identities may only appear from the configured edges or mid-frame
// (already on stage when the video starts). The top edge is not a plausible
// entrance here.
func TestEntryEdgeValidation(t *testing.T) {
	t.Parallel()

	t.Run("invalid edge rejected", func(t *testing.T) {
		t.Parallel()
		tr := New(testConfig())
		for ts := 0.0; ts <= 5.0; ts++ {
			tr.Update([]stage.Detection{person(0.5, 0.1)}, ts)
		}
		assert.Empty(t, tr.Snapshot())
	})

	t.Run("interior spawn allowed", func(t *testing.T) {
		t.Parallel()
		tr := New(testConfig())
		var candidates []Candidate
		for ts := 0.0; ts <= 3.0; ts++ {
			candidates = append(candidates, tr.Update([]stage.Detection{person(0.5, 0.5)}, ts)...)
		}
		require.Len(t, candidates, 1)

		ident, ok := tr.Get(candidates[0].IdentityID)
		require.True(t, ok)
		assert.Equal(t, EdgeNone, ident.EntryEdge)
	})

	t.Run("valid edge recorded", func(t *testing.T) {
		t.Parallel()
		tr := New(testConfig())
		for ts := 0.0; ts <= 3.0; ts++ {
			tr.Update([]stage.Detection{person(0.1, 0.4)}, ts)
		}
		snap := tr.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, EdgeLeft, snap[0].EntryEdge)
	})
}

func TestFilterDetections(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	good := person(0.5, 0.4)

	lowConf := person(0.5, 0.4)
	lowConf.Confidence = 0.3

	tiny := person(0.5, 0.4)
	tiny.Box = stage.BoundingBox{X1: 0.49, Y1: 0.38, X2: 0.51, Y2: 0.42}

	wide := person(0.5, 0.4)
	wide.Box = stage.BoundingBox{X1: 0.3, Y1: 0.35, X2: 0.7, Y2: 0.45}

	audience := person(0.5, 0.85)

	fewKeypoints := person(0.5, 0.4)
	fewKeypoints.Keypoints = fewKeypoints.Keypoints[:4]

	bunched := person(0.5, 0.4)
	for i := range bunched.Keypoints {
		// All confident keypoints collapse into the head area.
		bunched.Keypoints[i].Y = bunched.Box.Y1 + 0.01
	}

	cases := []struct {
		name string
		det  stage.Detection
		keep bool
	}{
		{"full person", good, true},
		{"low detector confidence", lowConf, false},
		{"tiny box", tiny, false},
		{"wrong proportions", wide, false},
		{"audience centroid", audience, false},
		{"too few keypoints", fewKeypoints, false},
		{"keypoints bunched", bunched, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FilterDetections([]stage.Detection{tc.det}, cfg)
			if tc.keep {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestSinglePerformerKeepsLargest(t *testing.T) {
	t.Parallel()

	small := person(0.3, 0.4)
	big := person(0.6, 0.4)
	big.Box.X1 -= 0.02
	big.Box.X2 += 0.02

	got := SelectPrimary([]stage.Detection{small, big})
	require.Len(t, got, 1)
	assert.Equal(t, big.Box, got[0].Box)
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	d := stage.Detection{
		Confidence: 0.6,
		Keypoints: []stage.Keypoint{
			{Confidence: 0.8}, {Confidence: 0.4},
		},
	}
	assert.InDelta(t, 0.6, Visibility(d), 1e-9)

	// No keypoints falls back to the box confidence.
	assert.Equal(t, 0.9, Visibility(stage.Detection{Confidence: 0.9}))
}
