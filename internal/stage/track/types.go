// Package track maintains person identities across noisy per-frame
// detections: greedy nearest-centroid matching, a pending/active/dormant/
// exited lifecycle with hysteresis on both ends, and enter/exit event
// candidates for the downstream state machine.
package track

import "github.com/openmic-labs/stagecut/internal/stage"

// State is an identity lifecycle state.
type State string

const (
	// StatePending identities have been seen but not yet long enough to
	// count as real; detector glitches die here.
	StatePending State = "pending"

	// StateActive identities are stabilized, on-stage people.
	StateActive State = "active"

	// StateDormant identities disappeared away from any frame edge; they
	// may be occluded and can re-match before timing out.
	StateDormant State = "dormant"

	// StateExited identities are finished and removed after their exit
	// candidate is emitted.
	StateExited State = "exited"
)

// Edge names a frame edge.
type Edge string

const (
	EdgeNone   Edge = ""
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// PositionSample is one timestamped centroid in an identity's history.
type PositionSample struct {
	Pos       stage.Point
	Timestamp float64
}

// Identity is one tracked person.
type Identity struct {
	ID    int64
	State State

	LastBox        stage.BoundingBox
	LastConfidence float64

	// LastVisibility is the mean keypoint confidence of the last matched
	// detection, the appearance channel's notion of how clearly the person
	// is seen. Unlike LastConfidence it can sit well below the detection
	// quality gate when most of the body is occluded.
	LastVisibility float64

	FirstSeen float64 // first detection of the current appearance
	LastSeen  float64

	ConsecutiveMissing int

	// Bounded centroid history, newest last.
	History []PositionSample

	// Velocity and acceleration in frame-fractions per second.
	VX, VY float64
	AX, AY float64

	// SizeChange is the relative bbox area change since the previous
	// matched frame; shrinking suggests walking away from the camera.
	SizeChange float64

	EntryEdge Edge

	// EnterEmitted records whether the enter candidate for the current
	// appearance was emitted; only then does an exit candidate follow.
	EnterEmitted bool

	// DormantSince is set when the identity goes dormant.
	DormantSince float64

	// Appearance bookkeeping for role learning.
	Entries        int
	TotalStageTime float64
}

// Centroid returns the identity's last known centroid.
func (id *Identity) Centroid() stage.Point {
	return id.LastBox.Center()
}

// EventType distinguishes enter from exit candidates.
type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
)

// Candidate is a presence boundary event proposed by the tracker. Exit
// candidates carry a confidence reflecting how the exit was confirmed:
// 1.0 for an edge-confirmed departure, 0.7 for a dormant timeout, less for
// end-of-stream flushes.
type Candidate struct {
	Type       EventType
	IdentityID int64
	Timestamp  float64
	Confidence float64
	Box        stage.BoundingBox

	// Exit candidates carry the appearance that just ended, for role
	// learning: how long the person was up and how many times they have
	// entered so far.
	StageTime float64
	Entries   int
}

// Exit confidences by confirmation path.
const (
	exitConfidenceEdge        = 1.0
	exitConfidenceDormant     = 0.7
	exitConfidenceFlushEdge   = 0.8
	exitConfidenceFlushCenter = 0.5
)
