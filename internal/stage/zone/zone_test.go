package zone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmic-labs/stagecut/internal/stage"
)

func testZones() map[string]*Zone {
	return map[string]*Zone{
		"rectangle": NewRectangle(0.2, 0.8, 0.1, 0.7),
		"polygon": NewPolygon([]stage.Point{
			{X: 0.2, Y: 0.1}, {X: 0.8, Y: 0.1}, {X: 0.8, Y: 0.7}, {X: 0.2, Y: 0.7},
		}),
		"ellipse": NewEllipse(0.5, 0.4, 0.6, 0.6),
	}
}

// TestClassifyDistanceSignAgreement sweeps a grid of positions over every
// shape and checks the classification always agrees with the sign of the
// edge distance.
func TestClassifyDistanceSignAgreement(t *testing.T) {
	t.Parallel()

	for name, z := range testZones() {
		z := z
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for xi := 0; xi <= 50; xi++ {
				for yi := 0; yi <= 50; yi++ {
					p := stage.Point{X: float64(xi) / 50, Y: float64(yi) / 50}
					region := z.Classify(p)
					dist := z.DistanceToEdge(p)

					switch region {
					case RegionInside:
						assert.GreaterOrEqual(t, dist, 0.0, "inside point %v has negative distance", p)
					case RegionOutside:
						assert.Less(t, dist, 0.0, "outside point %v has non-negative distance", p)
					}
				}
			}
		})
	}
}

// Points that land exactly on the boundary must not read as outside with a
// zero-magnitude distance: containment is derived from the distance sign.
func TestClassifyOnEdgeAgreesWithDistance(t *testing.T) {
	t.Parallel()

	t.Run("polygon edge point", func(t *testing.T) {
		t.Parallel()
		z := testZones()["polygon"]
		p := stage.Point{X: 0.8, Y: 0.4}

		assert.Equal(t, 0.0, z.DistanceToEdge(p))
		assert.True(t, z.Contains(p))
		assert.Equal(t, RegionBoundary, z.Classify(p))
	})

	t.Run("polygon corner", func(t *testing.T) {
		t.Parallel()
		z := testZones()["polygon"]
		p := stage.Point{X: 0.8, Y: 0.1}

		assert.Equal(t, 0.0, z.DistanceToEdge(p))
		assert.NotEqual(t, RegionOutside, z.Classify(p))
	})

	t.Run("ellipse boundary rounding", func(t *testing.T) {
		t.Parallel()
		z := testZones()["ellipse"]
		// Exactly on the boundary in real arithmetic; rounding may land the
		// computed radius on either side of 1, but classification and the
		// distance sign must land on the same side.
		for _, p := range []stage.Point{
			{X: 0.26, Y: 0.22}, {X: 0.74, Y: 0.22}, {X: 0.26, Y: 0.58}, {X: 0.74, Y: 0.58},
		} {
			region := z.Classify(p)
			dist := z.DistanceToEdge(p)
			if region == RegionOutside {
				assert.Negative(t, dist, "outside point %v", p)
			} else {
				assert.GreaterOrEqual(t, dist, 0.0, "contained point %v", p)
			}
		}
	})
}

func TestClassifyRegions(t *testing.T) {
	t.Parallel()

	z := NewRectangle(0.2, 0.8, 0.1, 0.7)

	assert.Equal(t, RegionInside, z.Classify(stage.Point{X: 0.5, Y: 0.4}))
	assert.Equal(t, RegionOutside, z.Classify(stage.Point{X: 0.05, Y: 0.4}))

	// Just inside the stage edge but outside the shrunk safe band.
	assert.Equal(t, RegionBoundary, z.Classify(stage.Point{X: 0.21, Y: 0.4}))
}

func TestSubRegions(t *testing.T) {
	t.Parallel()

	z := NewRectangle(0.2, 0.8, 0.1, 0.7)

	center := stage.Point{X: 0.5, Y: 0.4}
	assert.True(t, z.InSafeRegion(center))
	assert.True(t, z.Contains(center))
	assert.True(t, z.InDangerRegion(center))

	// Just off stage but within the expanded danger band.
	edge := stage.Point{X: 0.81, Y: 0.4}
	assert.False(t, z.Contains(edge))
	assert.True(t, z.InDangerRegion(edge))

	far := stage.Point{X: 0.99, Y: 0.99}
	assert.False(t, z.InDangerRegion(far))
}

func TestDistanceContinuityNearEdge(t *testing.T) {
	t.Parallel()

	for name, z := range testZones() {
		z := z
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			// Walking across the right-hand boundary, distance should
			// pass near zero.
			var prev float64
			for i := 0; i <= 100; i++ {
				p := stage.Point{X: 0.5 + float64(i)/200, Y: 0.4}
				d := z.DistanceToEdge(p)
				if i > 0 {
					assert.InDelta(t, prev, d, 0.05, "distance jumped at %v", p)
				}
				prev = d
			}
		})
	}
}

func TestConfidenceGrades(t *testing.T) {
	t.Parallel()

	z := NewRectangle(0.2, 0.8, 0.1, 0.7)

	assert.Equal(t, 1.0, z.Confidence(stage.Point{X: 0.5, Y: 0.4}))
	assert.Equal(t, 0.7, z.Confidence(stage.Point{X: 0.21, Y: 0.4}))
	assert.Equal(t, 0.3, z.Confidence(stage.Point{X: 0.81, Y: 0.4}))
	assert.Equal(t, 0.0, z.Confidence(stage.Point{X: 0.99, Y: 0.99}))
}

func TestCalibrate(t *testing.T) {
	t.Parallel()

	t.Run("not enough samples", func(t *testing.T) {
		t.Parallel()
		z := NewRectangle(0, 1, 0, 1)
		z.AddSample(stage.Point{X: 0.5, Y: 0.5})

		err := z.Calibrate(10)
		require.ErrorIs(t, err, ErrNotCalibrated)

		// Geometry untouched.
		assert.True(t, z.Contains(stage.Point{X: 0.01, Y: 0.01}))
	})

	t.Run("derives extent plus margin", func(t *testing.T) {
		t.Parallel()
		z := NewEllipse(0.5, 0.5, 0.9, 0.9)
		for i := 0; i < 20; i++ {
			z.AddSample(stage.Point{X: 0.3 + float64(i%5)*0.05, Y: 0.4})
		}

		require.NoError(t, z.Calibrate(20))
		assert.Equal(t, KindRectangle, z.Kind())

		// Samples span x in [0.3, 0.5], y = 0.4; margin is 0.1.
		assert.True(t, z.Contains(stage.Point{X: 0.25, Y: 0.35}))
		assert.True(t, z.Contains(stage.Point{X: 0.55, Y: 0.45}))
		assert.False(t, z.Contains(stage.Point{X: 0.7, Y: 0.4}))
	})

	t.Run("clamps to frame", func(t *testing.T) {
		t.Parallel()
		z := NewRectangle(0.2, 0.8, 0.1, 0.7)
		z.AddSample(stage.Point{X: 0.02, Y: 0.02})
		z.AddSample(stage.Point{X: 0.98, Y: 0.98})

		require.NoError(t, z.Calibrate(2))
		d := z.Definition()
		assert.GreaterOrEqual(t, d.Left, 0.0)
		assert.LessOrEqual(t, d.Right, 1.0)
		assert.GreaterOrEqual(t, d.Top, 0.0)
		assert.LessOrEqual(t, d.Bottom, 1.0)
	})
}

func TestHeatmapBlendsIntoConfidence(t *testing.T) {
	t.Parallel()

	z := NewRectangle(0.1, 0.9, 0.1, 0.9)
	for i := 0; i < 200; i++ {
		z.AddSample(stage.Point{X: 0.5, Y: 0.5})
	}
	hm := z.GenerateHeatmap()
	require.NotNil(t, hm)

	// The hot cell reads near 1 after normalization.
	assert.Greater(t, hm.At(stage.Point{X: 0.5, Y: 0.5}), 0.9)

	// Confidence at the hot center: 0.7*1.0 + 0.3*~1.0.
	assert.InDelta(t, 1.0, z.Confidence(stage.Point{X: 0.5, Y: 0.5}), 0.05)

	// A safe-band position nowhere near the samples loses the occupancy
	// share: 0.7*1.0 + 0.3*~0.
	assert.InDelta(t, 0.7, z.Confidence(stage.Point{X: 0.2, Y: 0.2}), 0.05)
}

func TestDefinitionRoundTrip(t *testing.T) {
	t.Parallel()

	for name, z := range testZones() {
		z := z
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(z)
			require.NoError(t, err)

			var back Zone
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, z.Definition(), back.Definition())

			// Same classification behavior after the round trip.
			for _, p := range []stage.Point{{X: 0.5, Y: 0.4}, {X: 0.05, Y: 0.9}, {X: 0.79, Y: 0.3}} {
				assert.Equal(t, z.Classify(p), back.Classify(p), "point %v", p)
			}
		})
	}
}

func TestFromDefinitionRejectsBadGeometry(t *testing.T) {
	t.Parallel()

	_, err := FromDefinition(Definition{Shape: "polygon", Points: []stage.Point{{X: 0, Y: 0}}})
	assert.Error(t, err)

	_, err = FromDefinition(Definition{Shape: "ellipse", Width: -1, Height: 1})
	assert.Error(t, err)

	_, err = FromDefinition(Definition{Shape: "hexagon"})
	assert.Error(t, err)
}
