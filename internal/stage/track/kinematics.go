package track

import "gonum.org/v1/gonum/stat"

// updateKinematics refreshes an identity's velocity and acceleration from
// its position history. Velocity is the least-squares slope of position over
// time rather than a two-point difference, which keeps one jittery frame
// from swinging the exit-velocity signal.
func updateKinematics(id *Identity) {
	if len(id.History) < 2 {
		id.VX, id.VY, id.AX, id.AY = 0, 0, 0, 0
		return
	}

	ts := make([]float64, len(id.History))
	xs := make([]float64, len(id.History))
	ys := make([]float64, len(id.History))
	for i, s := range id.History {
		ts[i] = s.Timestamp
		xs[i] = s.Pos.X
		ys[i] = s.Pos.Y
	}

	// Degenerate when all samples share a timestamp.
	if ts[0] == ts[len(ts)-1] {
		return
	}

	prevVX, prevVY := id.VX, id.VY
	_, id.VX = stat.LinearRegression(ts, xs, nil, false)
	_, id.VY = stat.LinearRegression(ts, ys, nil, false)
	id.AX = id.VX - prevVX
	id.AY = id.VY - prevVY
}
