// Package pipeline wires the stages together: observations in timestamp
// order through the identity tracker, signal fusion and the show state
// machine, then final segment assembly. One Pipeline processes one video.
package pipeline

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/monitoring"
	"github.com/openmic-labs/stagecut/internal/stage"
	"github.com/openmic-labs/stagecut/internal/stage/fusion"
	"github.com/openmic-labs/stagecut/internal/stage/segment"
	"github.com/openmic-labs/stagecut/internal/stage/show"
	"github.com/openmic-labs/stagecut/internal/stage/track"
	"github.com/openmic-labs/stagecut/internal/stage/zone"
)

// IdentityDiagnostics is one per-frame, per-identity snapshot of the
// pipeline's internal estimates, for offline inspection.
type IdentityDiagnostics struct {
	Timestamp      float64
	IdentityID     int64
	State          track.State
	Role           show.Role
	ExitConfidence float64
	StagePresence  float64
	Signals        map[fusion.SignalType]float64
}

// ClipWriter is the contract for the collaborator that cuts the video. The
// pipeline itself never touches video files.
type ClipWriter interface {
	WriteClip(src string, seg stage.Segment) error
}

// Pipeline runs one video's observations through the full analysis chain.
// Not safe for concurrent use.
type Pipeline struct {
	runID string
	cfg   *config.Config

	zone      *zone.Zone
	tracker   *track.Tracker
	engine    *fusion.Engine
	machine   *show.Machine
	assembler segment.Assembler

	events      []track.Candidate
	diagnostics []IdentityDiagnostics

	lastTimestamp float64
	started       bool
	finalized     bool
}

// New validates the configuration, builds the zone and assembles the
// stages. This is the single point where configuration errors surface.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline configuration: %w", err)
	}
	z, err := zone.FromConfig(&cfg.Zone)
	if err != nil {
		return nil, fmt.Errorf("pipeline configuration: %w", err)
	}
	return &Pipeline{
		runID:     "run_" + uuid.NewString(),
		cfg:       cfg,
		zone:      z,
		tracker:   track.New(track.ConfigFrom(cfg)),
		engine:    fusion.New(fusion.ConfigFrom(cfg)),
		machine:   show.NewMachine(show.ConfigFrom(cfg)),
		assembler: segment.New(segment.ConfigFrom(cfg)),
	}, nil
}

// RunID returns this pipeline's run identifier.
func (p *Pipeline) RunID() string { return p.runID }

// Zone returns the stage zone, for calibration and heat-map export.
func (p *Pipeline) Zone() *zone.Zone { return p.zone }

// State returns the current show state estimate.
func (p *Pipeline) State() show.State { return p.machine.Current() }

// Events returns all enter/exit candidates emitted so far, in order.
func (p *Pipeline) Events() []track.Candidate {
	out := make([]track.Candidate, len(p.events))
	copy(out, p.events)
	return out
}

// Diagnostics returns the per-identity snapshots collected so far.
func (p *Pipeline) Diagnostics() []IdentityDiagnostics {
	out := make([]IdentityDiagnostics, len(p.diagnostics))
	copy(out, p.diagnostics)
	return out
}

// Process ingests one frame observation. Observations must arrive in
// non-decreasing timestamp order; a regression is an error because every
// stage's hysteresis assumes forward time.
func (p *Pipeline) Process(obs stage.FrameObservation) error {
	if p.finalized {
		return fmt.Errorf("pipeline: process after finalize")
	}
	if p.started && obs.Timestamp < p.lastTimestamp {
		return fmt.Errorf("pipeline: observation timestamp %.3f precedes %.3f", obs.Timestamp, p.lastTimestamp)
	}
	p.started = true
	p.lastTimestamp = obs.Timestamp
	ts := obs.Timestamp

	candidates := p.tracker.Update(obs.Detections, ts)
	p.absorb(candidates)

	// Feed fusion and collect the state machine's view of who is up.
	var people []show.PersonInfo
	for _, ident := range p.tracker.Snapshot() {
		if ident.State != track.StateActive {
			continue
		}

		c := ident.Centroid()
		p.zone.AddSample(c)

		role := p.machine.Roles().Role(ident.ID)
		stageTime := ts - ident.FirstSeen

		p.engine.ObservePosition(ident.ID, c, ts)
		p.engine.ObserveVelocity(ident.ID, ident.VX, ident.VY, c, ts)
		p.engine.ObserveZone(ident.ID, p.zone.Classify(c), p.zone.Confidence(c), ts)
		p.engine.ObserveAppearance(ident.ID, ident.LastVisibility, ident.SizeChange, ts)
		p.engine.ObserveContext(ident.ID, string(role), p.machine.Current() == show.StateHostOutro, stageTime, ts)

		people = append(people, show.PersonInfo{
			ID:        ident.ID,
			Role:      role,
			StageTime: stageTime,
		})

		p.diagnostics = append(p.diagnostics, IdentityDiagnostics{
			Timestamp:      ts,
			IdentityID:     ident.ID,
			State:          ident.State,
			Role:           role,
			ExitConfidence: p.engine.ExitConfidence(ident.ID),
			StagePresence:  p.engine.StagePresence(ident.ID, ts),
			Signals:        p.engine.Breakdown(ident.ID),
		})
	}

	p.machine.Update(len(people), people, ts)
	return nil
}

// Finalize ends the stream: flushes remaining identities, closes any open
// performance at the video end, and assembles the final segments. The
// pipeline rejects further observations afterwards.
func (p *Pipeline) Finalize(videoDuration float64) []stage.Segment {
	p.finalized = true

	p.flushTracker()

	end := p.lastTimestamp
	if videoDuration >= 0 {
		end = math.Max(end, videoDuration)
	}
	p.machine.Update(0, nil, end)
	p.machine.CloseAt(end)

	raw := p.machine.Segments()
	final := p.assembler.Filter(raw, videoDuration)
	monitoring.Logf("pipeline %s: %d raw segments -> %d final", p.runID, len(raw), len(final))
	return final
}

// Replay processes a full observation stream and finalizes.
func (p *Pipeline) Replay(observations []stage.FrameObservation, videoDuration float64) ([]stage.Segment, error) {
	for _, obs := range observations {
		if err := p.Process(obs); err != nil {
			return nil, err
		}
	}
	return p.Finalize(videoDuration), nil
}

// flushTracker drains the tracker at the current timestamp and absorbs the
// resulting exit candidates.
func (p *Pipeline) flushTracker() {
	p.absorb(p.tracker.Flush(p.lastTimestamp))
}

// absorb records candidates, feeds completed appearances to role learning
// and drops fusion state for identities that are done.
func (p *Pipeline) absorb(candidates []track.Candidate) {
	for _, c := range candidates {
		p.events = append(p.events, c)
		if c.Type == track.EventExit {
			p.machine.Roles().Observe(c.IdentityID, c.StageTime, c.Entries)
			p.engine.Remove(c.IdentityID)
		}
	}
}

// ReplayChunked replays a video split into sequential observation
// substreams. Each chunk gets a fresh tracker with a disjoint identity ID
// base and is flushed at its boundary; the show state machine and the role
// learner run continuously across the whole video, so a host recognized in
// chunk one is still the host in chunk five.
func (p *Pipeline) ReplayChunked(chunks [][]stage.FrameObservation, videoDuration float64) ([]stage.Segment, error) {
	trackerCfg := track.ConfigFrom(p.cfg)
	for k, chunk := range chunks {
		trackerCfg.IDBase = track.ChunkIDBase(k)
		p.tracker = track.New(trackerCfg)
		for _, obs := range chunk {
			if err := p.Process(obs); err != nil {
				return nil, fmt.Errorf("chunk %d: %w", k, err)
			}
		}
		p.flushTracker()
	}
	return p.Finalize(videoDuration), nil
}

// ReplayChunks is the package-level convenience over ReplayChunked.
func ReplayChunks(cfg *config.Config, chunks [][]stage.FrameObservation, videoDuration float64) ([]stage.Segment, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return p.ReplayChunked(chunks, videoDuration)
}

// WriteClips cuts every final segment from src through the given writer.
func WriteClips(w ClipWriter, src string, segments []stage.Segment) error {
	for _, seg := range segments {
		if err := w.WriteClip(src, seg); err != nil {
			return fmt.Errorf("write clip %.2f-%.2f: %w", seg.Start, seg.End, err)
		}
	}
	return nil
}
