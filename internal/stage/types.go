// Package stage defines the value types shared by the presence-segmentation
// pipeline: per-frame observations produced by an upstream pose detector and
// the time segments the pipeline ultimately emits.
//
// All spatial coordinates are normalized to [0,1] with the origin at the
// top-left of the frame; timestamps are seconds from the start of the video.
package stage

import "math"

// Point is a normalized frame position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// BoundingBox is an axis-aligned box in normalized frame coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the box centroid.
func (b BoundingBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Width returns the box width.
func (b BoundingBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height.
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area as a fraction of the frame.
func (b BoundingBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// AspectRatio returns height/width, or 0 for a degenerate box.
func (b BoundingBox) AspectRatio() float64 {
	w := b.Width()
	if w <= 0 {
		return 0
	}
	return b.Height() / w
}

// IoU returns the intersection-over-union overlap with o.
func (b BoundingBox) IoU(o BoundingBox) float64 {
	ix1 := math.Max(b.X1, o.X1)
	iy1 := math.Max(b.Y1, o.Y1)
	ix2 := math.Min(b.X2, o.X2)
	iy2 := math.Min(b.Y2, o.Y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Keypoint is a single pose landmark with its detector confidence.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Detection is one candidate person in a frame as reported by the detector.
type Detection struct {
	Box        BoundingBox `json:"box"`
	Keypoints  []Keypoint  `json:"keypoints,omitempty"`
	Confidence float64     `json:"confidence"`
}

// FrameObservation is everything the detector reported for one frame.
type FrameObservation struct {
	FrameIndex int         `json:"frame_index"`
	Timestamp  float64     `json:"timestamp"`
	Detections []Detection `json:"detections"`
}

// Segment is a half-open-ish presence interval [Start, End] in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 { return s.End - s.Start }
