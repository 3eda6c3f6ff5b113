package diag

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/openmic-labs/stagecut/internal/stage/zone"
)

// heatGrid adapts a zone heat map to plotter.GridXYZ. The y axis is
// flipped so the plot reads like the video frame (origin top-left).
type heatGrid struct {
	hm *zone.Heatmap
}

func (g heatGrid) Dims() (c, r int) { return g.hm.Dims() }

func (g heatGrid) Z(c, r int) float64 {
	_, rows := g.hm.Dims()
	return g.hm.Cell(c, rows-1-r)
}

func (g heatGrid) X(c int) float64 {
	cols, _ := g.hm.Dims()
	return float64(c) / float64(cols)
}

func (g heatGrid) Y(r int) float64 {
	_, rows := g.hm.Dims()
	return float64(r) / float64(rows)
}

// WriteOccupancyHeatmap renders the stage occupancy grid as a PNG.
func WriteOccupancyHeatmap(path string, hm *zone.Heatmap) error {
	p := plot.New()
	p.Title.Text = "Stage occupancy"
	p.X.Label.Text = "x (frame fraction)"
	p.Y.Label.Text = "y (frame fraction)"

	h := plotter.NewHeatMap(heatGrid{hm: hm}, palette.Heat(12, 1))
	p.Add(h)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save occupancy heatmap: %w", err)
	}
	return nil
}
