// Package zone models the stage region of the frame: where the stage is,
// whether a position is on it, and how far a position sits from its edge.
// Three shapes are supported (rectangle, polygon, ellipse); every shape also
// carries a shrunk "safe" band and an expanded "danger" band used to grade
// how firmly a position is on stage.
package zone

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/stage"
)

// ErrNotCalibrated reports that Calibrate was asked to run before enough
// positions were observed. It is a status, not a failure: callers keep the
// configured zone and try again later.
var ErrNotCalibrated = errors.New("zone: not enough samples to calibrate")

// Kind identifies the zone geometry.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindPolygon   Kind = "polygon"
	KindEllipse   Kind = "ellipse"
)

// Region classifies a position relative to the zone.
type Region int

const (
	RegionOutside Region = iota
	RegionBoundary
	RegionInside
)

func (r Region) String() string {
	switch r {
	case RegionInside:
		return "inside"
	case RegionBoundary:
		return "boundary"
	default:
		return "outside"
	}
}

// Sub-region scale factors: the safe band is the zone shrunk about its
// center, the danger band the zone expanded.
const (
	safeScale   = 0.9
	dangerScale = 1.1
)

// calibrationMargin is added around the observed position extent when the
// zone is re-derived from samples.
const calibrationMargin = 0.1

// Zone is a stage region in normalized frame coordinates. The zero value is
// not usable; construct with New* or FromConfig.
type Zone struct {
	kind Kind

	// Rectangle bounds.
	left, right, top, bottom float64

	// Polygon vertices.
	points []stage.Point

	// Ellipse center and full axis extents.
	centerX, centerY, width, height float64

	samples []stage.Point
	heat    *Heatmap
}

// NewRectangle returns a rectangular zone with the given normalized bounds.
func NewRectangle(left, right, top, bottom float64) *Zone {
	return &Zone{kind: KindRectangle, left: left, right: right, top: top, bottom: bottom}
}

// NewPolygon returns a polygonal zone. The vertex order defines the edges;
// the polygon is implicitly closed.
func NewPolygon(points []stage.Point) *Zone {
	pts := make([]stage.Point, len(points))
	copy(pts, points)
	return &Zone{kind: KindPolygon, points: pts}
}

// NewEllipse returns an elliptical zone centered at (cx, cy) with full axis
// extents width and height.
func NewEllipse(cx, cy, width, height float64) *Zone {
	return &Zone{kind: KindEllipse, centerX: cx, centerY: cy, width: width, height: height}
}

// FromConfig builds a zone from the zone section of the configuration.
func FromConfig(cfg *config.ZoneConfig) (*Zone, error) {
	switch cfg.GetShape() {
	case config.ShapeRectangle:
		return NewRectangle(cfg.GetLeft(), cfg.GetRight(), cfg.GetTop(), cfg.GetBottom()), nil
	case config.ShapePolygon:
		pts := make([]stage.Point, len(cfg.Points))
		for i, p := range cfg.Points {
			pts[i] = stage.Point{X: p.X, Y: p.Y}
		}
		return NewPolygon(pts), nil
	case config.ShapeEllipse:
		return NewEllipse(cfg.GetCenterX(), cfg.GetCenterY(), cfg.GetWidth(), cfg.GetHeight()), nil
	default:
		return nil, fmt.Errorf("zone: unknown shape %q", cfg.GetShape())
	}
}

// Kind returns the zone geometry kind.
func (z *Zone) Kind() Kind { return z.kind }

// Contains reports whether p lies within the stage region, edge included.
// Containment is derived from the sign of DistanceToEdge so the two can
// never disagree on points that land exactly on the boundary.
func (z *Zone) Contains(p stage.Point) bool {
	return z.DistanceToEdge(p) >= 0
}

// InSafeRegion reports whether p lies within the shrunk safe band.
func (z *Zone) InSafeRegion(p stage.Point) bool {
	return z.containsScaled(p, safeScale)
}

// InDangerRegion reports whether p lies within the expanded danger band.
func (z *Zone) InDangerRegion(p stage.Point) bool {
	return z.containsScaled(p, dangerScale)
}

// Classify grades p against the zone. A position inside the stage region is
// "inside" when it also clears the safe band and "boundary" otherwise, so
// the classification always agrees with the sign of DistanceToEdge.
func (z *Zone) Classify(p stage.Point) Region {
	if !z.Contains(p) {
		return RegionOutside
	}
	if z.InSafeRegion(p) {
		return RegionInside
	}
	return RegionBoundary
}

// DistanceToEdge returns the signed distance from p to the stage boundary:
// positive inside, negative outside, approaching zero near the edge. The
// polygon and ellipse distances are exact and approximate respectively, but
// the sign is always consistent with Contains.
func (z *Zone) DistanceToEdge(p stage.Point) float64 {
	switch z.kind {
	case KindRectangle:
		return rectDistance(p, z.left, z.right, z.top, z.bottom)
	case KindPolygon:
		d := polygonEdgeDistance(p, z.points)
		if pointInPolygon(p, z.points) || d == 0 {
			return d
		}
		return -d
	case KindEllipse:
		a, b := z.width/2, z.height/2
		if a <= 0 || b <= 0 {
			return -math.Hypot(p.X-z.centerX, p.Y-z.centerY)
		}
		nx := (p.X - z.centerX) / a
		ny := (p.Y - z.centerY) / b
		r := math.Sqrt(nx*nx + ny*ny)
		// Radial approximation scaled by the minor semi-axis.
		return (1 - r) * math.Min(a, b)
	}
	return 0
}

// Confidence grades how firmly p is on stage in [0, 1]: 1.0 in the safe
// band, 0.7 elsewhere on stage, 0.3 in the danger band just off stage, 0
// beyond it. When an occupancy heat map has been generated the geometric
// grade is blended 70/30 with the observed occupancy at p.
func (z *Zone) Confidence(p stage.Point) float64 {
	var base float64
	switch {
	case z.InSafeRegion(p):
		base = 1.0
	case z.Contains(p):
		base = 0.7
	case z.InDangerRegion(p):
		base = 0.3
	default:
		base = 0.0
	}
	if z.heat == nil {
		return base
	}
	return 0.7*base + 0.3*z.heat.At(p)
}

// AddSample records an observed on-stage position for calibration and the
// occupancy heat map.
func (z *Zone) AddSample(p stage.Point) {
	z.samples = append(z.samples, p)
}

// SampleCount returns the number of recorded calibration samples.
func (z *Zone) SampleCount() int { return len(z.samples) }

// Calibrate re-derives the zone from the recorded positions: the bounding
// extent of all samples plus a margin, clamped to the frame. The result is
// always a rectangle regardless of the configured shape. Returns
// ErrNotCalibrated when fewer than minSamples positions have been recorded;
// the zone is left untouched in that case.
func (z *Zone) Calibrate(minSamples int) error {
	if len(z.samples) < minSamples {
		return fmt.Errorf("%w: have %d, need %d", ErrNotCalibrated, len(z.samples), minSamples)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range z.samples {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	z.kind = KindRectangle
	z.left = clamp01(minX - calibrationMargin)
	z.right = clamp01(maxX + calibrationMargin)
	z.top = clamp01(minY - calibrationMargin)
	z.bottom = clamp01(maxY + calibrationMargin)
	z.points = nil
	return nil
}

// GenerateHeatmap builds the occupancy heat map from the recorded samples
// and attaches it to the zone so Confidence blends it in. The map is also
// returned for export.
func (z *Zone) GenerateHeatmap() *Heatmap {
	z.heat = buildHeatmap(z.samples, heatmapSize, heatmapSize)
	return z.heat
}

// containsScaled tests containment against the zone scaled about its center
// by factor f.
func (z *Zone) containsScaled(p stage.Point, f float64) bool {
	switch z.kind {
	case KindRectangle:
		cx := (z.left + z.right) / 2
		cy := (z.top + z.bottom) / 2
		hw := (z.right - z.left) / 2 * f
		hh := (z.bottom - z.top) / 2 * f
		return p.X >= cx-hw && p.X <= cx+hw && p.Y >= cy-hh && p.Y <= cy+hh
	case KindPolygon:
		return pointInPolygon(p, scalePolygon(z.points, f))
	case KindEllipse:
		a, b := z.width/2*f, z.height/2*f
		if a <= 0 || b <= 0 {
			return false
		}
		nx := (p.X - z.centerX) / a
		ny := (p.Y - z.centerY) / b
		return nx*nx+ny*ny <= 1
	}
	return false
}

func rectDistance(p stage.Point, left, right, top, bottom float64) float64 {
	inside := p.X >= left && p.X <= right && p.Y >= top && p.Y <= bottom
	if inside {
		return math.Min(
			math.Min(p.X-left, right-p.X),
			math.Min(p.Y-top, bottom-p.Y),
		)
	}
	dx := math.Max(math.Max(left-p.X, 0), p.X-right)
	dy := math.Max(math.Max(top-p.Y, 0), p.Y-bottom)
	return -math.Hypot(dx, dy)
}

// pointInPolygon is the even-odd ray cast.
func pointInPolygon(p stage.Point, poly []stage.Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			x := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// polygonEdgeDistance returns the unsigned distance from p to the nearest
// polygon edge.
func polygonEdgeDistance(p stage.Point, poly []stage.Point) float64 {
	best := math.Inf(1)
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		best = math.Min(best, segmentDistance(p, poly[j], poly[i]))
		j = i
	}
	return best
}

func segmentDistance(p, a, b stage.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Distance(stage.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

func scalePolygon(poly []stage.Point, f float64) []stage.Point {
	var cx, cy float64
	for _, p := range poly {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(poly))
	cy /= float64(len(poly))

	out := make([]stage.Point, len(poly))
	for i, p := range poly {
		out[i] = stage.Point{X: cx + (p.X-cx)*f, Y: cy + (p.Y-cy)*f}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Definition is the serializable form of a zone, round-tripped through the
// zone section of saved configuration files.
type Definition struct {
	Shape   string        `json:"shape"`
	Left    float64       `json:"left,omitempty"`
	Right   float64       `json:"right,omitempty"`
	Top     float64       `json:"top,omitempty"`
	Bottom  float64       `json:"bottom,omitempty"`
	Points  []stage.Point `json:"points,omitempty"`
	CenterX float64       `json:"center_x,omitempty"`
	CenterY float64       `json:"center_y,omitempty"`
	Width   float64       `json:"width,omitempty"`
	Height  float64       `json:"height,omitempty"`
}

// Definition returns the serializable zone geometry.
func (z *Zone) Definition() Definition {
	d := Definition{Shape: string(z.kind)}
	switch z.kind {
	case KindRectangle:
		d.Left, d.Right, d.Top, d.Bottom = z.left, z.right, z.top, z.bottom
	case KindPolygon:
		d.Points = make([]stage.Point, len(z.points))
		copy(d.Points, z.points)
	case KindEllipse:
		d.CenterX, d.CenterY, d.Width, d.Height = z.centerX, z.centerY, z.width, z.height
	}
	return d
}

// FromDefinition rebuilds a zone from its serialized geometry.
func FromDefinition(d Definition) (*Zone, error) {
	switch Kind(d.Shape) {
	case KindRectangle:
		return NewRectangle(d.Left, d.Right, d.Top, d.Bottom), nil
	case KindPolygon:
		if len(d.Points) < 3 {
			return nil, fmt.Errorf("zone: polygon needs at least 3 vertices, got %d", len(d.Points))
		}
		return NewPolygon(d.Points), nil
	case KindEllipse:
		if d.Width <= 0 || d.Height <= 0 {
			return nil, fmt.Errorf("zone: ellipse extents must be positive, got %fx%f", d.Width, d.Height)
		}
		return NewEllipse(d.CenterX, d.CenterY, d.Width, d.Height), nil
	default:
		return nil, fmt.Errorf("zone: unknown shape %q", d.Shape)
	}
}

// MarshalJSON serializes the zone geometry (samples and heat map excluded).
func (z *Zone) MarshalJSON() ([]byte, error) {
	return json.Marshal(z.Definition())
}

// UnmarshalJSON replaces the zone with the serialized geometry.
func (z *Zone) UnmarshalJSON(data []byte) error {
	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	nz, err := FromDefinition(d)
	if err != nil {
		return err
	}
	*z = *nz
	return nil
}
