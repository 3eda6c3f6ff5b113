// Package diag exports the pipeline's internal estimates as files a human
// can look at: an HTML timeline of per-identity confidences and a PNG of
// the stage occupancy heat map.
package diag

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/openmic-labs/stagecut/internal/stage/pipeline"
)

// WriteConfidenceTimeline renders an HTML line chart of exit confidence and
// stage presence over time, one series pair per identity.
func WriteConfidenceTimeline(path, runID string, diags []pipeline.IdentityDiagnostics) error {
	byIdentity := make(map[int64][]pipeline.IdentityDiagnostics)
	for _, d := range diags {
		byIdentity[d.IdentityID] = append(byIdentity[d.IdentityID], d)
	}
	ids := make([]int64, 0, len(byIdentity))
	for id := range byIdentity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	// Shared x axis over all snapshot timestamps.
	seen := make(map[float64]bool)
	var timestamps []float64
	for _, d := range diags {
		if !seen[d.Timestamp] {
			seen[d.Timestamp] = true
			timestamps = append(timestamps, d.Timestamp)
		}
	}
	sort.Float64s(timestamps)
	xIndex := make(map[float64]int, len(timestamps))
	xLabels := make([]string, len(timestamps))
	for i, ts := range timestamps {
		xIndex[ts] = i
		xLabels[i] = fmt.Sprintf("%.1f", ts)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Exit confidence timeline",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Exit confidence and stage presence",
			Subtitle: runID,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "confidence"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xLabels)

	for _, id := range ids {
		exit := make([]opts.LineData, len(timestamps))
		presence := make([]opts.LineData, len(timestamps))
		for i := range timestamps {
			exit[i] = opts.LineData{Value: nil}
			presence[i] = opts.LineData{Value: nil}
		}
		for _, d := range byIdentity[id] {
			i := xIndex[d.Timestamp]
			exit[i] = opts.LineData{Value: d.ExitConfidence}
			presence[i] = opts.LineData{Value: d.StagePresence}
		}
		line.AddSeries(fmt.Sprintf("id %d exit", id), exit)
		line.AddSeries(fmt.Sprintf("id %d presence", id), presence)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return fmt.Errorf("render confidence timeline: %w", err)
	}
	return nil
}
