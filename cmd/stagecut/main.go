// Command stagecut replays a video's pose observations through the
// presence pipeline and emits the final performance segments.
//
// Usage:
//
//	stagecut -observations detections.json [-config stagecut.json] \
//	    [-video-duration 5400] [-out segments.json] [-chart-dir out/] \
//	    [-chunks 4]
//
// The observations file is a JSON array of frame observations as produced
// by the upstream pose detector. Detection itself is out of scope here; see
// the pipeline.Source contract.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/stage"
	"github.com/openmic-labs/stagecut/internal/stage/diag"
	"github.com/openmic-labs/stagecut/internal/stage/pipeline"
	"github.com/openmic-labs/stagecut/internal/stage/segment"
	"github.com/openmic-labs/stagecut/internal/units"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to JSON config (defaults apply when empty)")
		obsPath       = flag.String("observations", "", "path to JSON observation file (required)")
		videoDuration = flag.Float64("video-duration", -1, "video duration in seconds (-1 when unknown)")
		outPath       = flag.String("out", "", "write final segments as JSON to this path")
		chartDir      = flag.String("chart-dir", "", "write diagnostics charts into this directory")
		chunks        = flag.Int("chunks", 1, "replay the stream as N sequential chunks")
	)
	flag.Parse()

	if *obsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("stagecut: %v", err)
		}
	}

	observations, err := loadObservations(*obsPath)
	if err != nil {
		log.Fatalf("stagecut: %v", err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("stagecut: %v", err)
	}

	var segments []stage.Segment
	if *chunks > 1 {
		segments, err = p.ReplayChunked(splitChunks(observations, *chunks), *videoDuration)
	} else {
		segments, err = p.Replay(observations, *videoDuration)
	}
	if err != nil {
		log.Fatalf("stagecut: %v", err)
	}

	stats := segment.Summarize(segments)
	fmt.Printf("%s: %d segments (total %s)\n", p.RunID(), stats.Count, units.FormatDuration(stats.TotalDuration))
	for _, seg := range segments {
		fmt.Println("  " + units.FormatSegment(seg))
	}

	if *outPath != "" {
		if err := writeSegments(*outPath, segments); err != nil {
			log.Fatalf("stagecut: %v", err)
		}
	}

	if *chartDir != "" {
		if err := writeCharts(*chartDir, p); err != nil {
			log.Fatalf("stagecut: %v", err)
		}
	}
}

func loadObservations(path string) ([]stage.FrameObservation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}
	var observations []stage.FrameObservation
	if err := json.Unmarshal(data, &observations); err != nil {
		return nil, fmt.Errorf("parse observations: %w", err)
	}
	return observations, nil
}

// splitChunks slices the stream into n contiguous runs, preserving order.
func splitChunks(observations []stage.FrameObservation, n int) [][]stage.FrameObservation {
	if n < 1 {
		n = 1
	}
	size := (len(observations) + n - 1) / n
	var out [][]stage.FrameObservation
	for start := 0; start < len(observations); start += size {
		end := start + size
		if end > len(observations) {
			end = len(observations)
		}
		out = append(out, observations[start:end])
	}
	return out
}

func writeSegments(path string, segments []stage.Segment) error {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write segments: %w", err)
	}
	return nil
}

func writeCharts(dir string, p *pipeline.Pipeline) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}
	timeline := filepath.Join(dir, "confidence_timeline.html")
	if err := diag.WriteConfidenceTimeline(timeline, p.RunID(), p.Diagnostics()); err != nil {
		return err
	}
	heatmap := filepath.Join(dir, "occupancy.png")
	return diag.WriteOccupancyHeatmap(heatmap, p.Zone().GenerateHeatmap())
}
