package zone

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/openmic-labs/stagecut/internal/stage"
)

// heatmapSize is the grid resolution along each axis.
const heatmapSize = 100

// heatmapSigma controls the Gaussian smoothing spread, in cells.
const heatmapSigma = 2.5

// Heatmap is an occupancy grid over the normalized frame: each cell holds a
// smoothed, max-normalized visit density in [0, 1].
type Heatmap struct {
	width, height int
	cells         []float64 // row-major, height rows of width
}

func buildHeatmap(samples []stage.Point, width, height int) *Heatmap {
	h := &Heatmap{
		width:  width,
		height: height,
		cells:  make([]float64, width*height),
	}
	if len(samples) == 0 {
		return h
	}

	for _, p := range samples {
		col := int(p.X * float64(width))
		row := int(p.Y * float64(height))
		if col < 0 || col >= width || row < 0 || row >= height {
			continue
		}
		h.cells[row*width+col]++
	}

	h.smooth()

	if max := floats.Max(h.cells); max > 0 {
		floats.Scale(1/max, h.cells)
	}
	return h
}

// At samples the occupancy density at a normalized position. Positions
// outside the frame read as zero.
func (h *Heatmap) At(p stage.Point) float64 {
	col := int(p.X * float64(h.width))
	row := int(p.Y * float64(h.height))
	if col < 0 || col >= h.width || row < 0 || row >= h.height {
		return 0
	}
	return h.cells[row*h.width+col]
}

// Dims returns the grid dimensions as (columns, rows).
func (h *Heatmap) Dims() (cols, rows int) { return h.width, h.height }

// Cell returns the density at grid coordinates (col, row).
func (h *Heatmap) Cell(col, row int) float64 {
	return h.cells[row*h.width+col]
}

// smooth applies a separable Gaussian blur in place.
func (h *Heatmap) smooth() {
	kernel := gaussianKernel(heatmapSigma)
	radius := len(kernel) / 2

	tmp := make([]float64, len(h.cells))

	// Horizontal pass.
	for row := 0; row < h.height; row++ {
		for col := 0; col < h.width; col++ {
			var sum, weight float64
			for k := -radius; k <= radius; k++ {
				c := col + k
				if c < 0 || c >= h.width {
					continue
				}
				w := kernel[k+radius]
				sum += w * h.cells[row*h.width+c]
				weight += w
			}
			tmp[row*h.width+col] = sum / weight
		}
	}

	// Vertical pass.
	for row := 0; row < h.height; row++ {
		for col := 0; col < h.width; col++ {
			var sum, weight float64
			for k := -radius; k <= radius; k++ {
				r := row + k
				if r < 0 || r >= h.height {
					continue
				}
				w := kernel[k+radius]
				sum += w * tmp[r*h.width+col]
				weight += w
			}
			h.cells[row*h.width+col] = sum / weight
		}
	}
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	return kernel
}
