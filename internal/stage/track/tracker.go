package track

import (
	"math"
	"sort"

	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/monitoring"
	"github.com/openmic-labs/stagecut/internal/stage"
)

// Config is the resolved tracker tuning. Build one with DefaultConfig or
// ConfigFrom; values are plain (non-pointer) because defaults are already
// applied.
type Config struct {
	MaxMatchDistance     float64
	MaxDisappearedFrames int
	PositionHistory      int

	EnterStability float64
	ExitStability  float64
	DormantTimeout float64

	// Quality filter.
	MinDetectionConfidence float64
	MinBoxAreaFraction     float64
	MinAspectRatio         float64
	MaxAspectRatio         float64
	MinVisibleKeypoints    int
	KeypointConfidence     float64
	MinKeypointCoverage    float64
	MinVerticalSpan        float64
	AudienceZoneFraction   float64

	// EdgeThreshold is the frame fraction counted as "near an edge" for
	// exit confirmation and entry-edge attribution.
	EdgeThreshold float64

	ValidEntryEdges []Edge
	SinglePerformer bool

	// IDBase offsets identity IDs so trackers running over separate
	// observation substreams never collide.
	IDBase int64
}

// dormantMatch tuning: a dormant identity re-matches on bbox overlap with a
// bonus for close centers, gated by a minimum combined score.
const (
	dormantCenterRadius = 0.30
	dormantCenterBonus  = 0.20
	dormantMinScore     = 0.15
)

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.Empty())
}

// ConfigFrom resolves the tracker tuning from the full configuration. The
// edge threshold comes from the zone section so exit confirmation and zone
// geometry agree on what "near an edge" means.
func ConfigFrom(cfg *config.Config) Config {
	edges := make([]Edge, 0, len(cfg.Tracker.GetValidEntryEdges()))
	for _, e := range cfg.Tracker.GetValidEntryEdges() {
		edges = append(edges, Edge(e))
	}
	return Config{
		MaxMatchDistance:       cfg.Tracker.GetMaxMatchDistance(),
		MaxDisappearedFrames:   cfg.Tracker.GetMaxDisappearedFrames(),
		PositionHistory:        cfg.Tracker.GetPositionHistory(),
		EnterStability:         cfg.Tracker.GetEnterStabilitySeconds(),
		ExitStability:          cfg.Tracker.GetExitStabilitySeconds(),
		DormantTimeout:         cfg.Tracker.GetDormantTimeoutSeconds(),
		MinDetectionConfidence: cfg.Tracker.GetMinDetectionConfidence(),
		MinBoxAreaFraction:     cfg.Tracker.GetMinBoxAreaFraction(),
		MinAspectRatio:         cfg.Tracker.GetMinAspectRatio(),
		MaxAspectRatio:         cfg.Tracker.GetMaxAspectRatio(),
		MinVisibleKeypoints:    cfg.Tracker.GetMinVisibleKeypoints(),
		KeypointConfidence:     cfg.Tracker.GetKeypointConfidence(),
		MinKeypointCoverage:    cfg.Tracker.GetMinKeypointCoverage(),
		MinVerticalSpan:        cfg.Tracker.GetMinVerticalSpan(),
		AudienceZoneFraction:   cfg.Tracker.GetAudienceZoneFraction(),
		EdgeThreshold:          cfg.Zone.GetExitThreshold(),
		ValidEntryEdges:        edges,
		SinglePerformer:        cfg.Tracker.GetSinglePerformer(),
	}
}

// Tracker carries identities across frames. It is not safe for concurrent
// use; the pipeline drives it from a single goroutine in timestamp order.
type Tracker struct {
	cfg        Config
	identities map[int64]*Identity
	nextID     int64

	// stabilizeSince tracks when each identity last (re)entered pending.
	stabilizeSince map[int64]float64

	lastTimestamp float64
}

// New returns a tracker with no identities. IDs start at cfg.IDBase+1.
func New(cfg Config) *Tracker {
	return &Tracker{
		cfg:            cfg,
		identities:     make(map[int64]*Identity),
		stabilizeSince: make(map[int64]float64),
		nextID:         cfg.IDBase,
	}
}

// Update ingests one frame's detections and returns any enter/exit
// candidates confirmed at this timestamp. Detections failing the quality
// filter are dropped before matching ever sees them.
func (t *Tracker) Update(dets []stage.Detection, ts float64) []Candidate {
	t.lastTimestamp = ts

	dets = FilterDetections(dets, t.cfg)
	if t.cfg.SinglePerformer {
		dets = SelectPrimary(dets)
	}

	matchedDet := make([]bool, len(dets))
	matchedID := make(map[int64]bool, len(t.identities))
	for _, pair := range t.matchPairs(dets) {
		if matchedDet[pair.det] || matchedID[pair.id] {
			continue
		}
		matchedDet[pair.det] = true
		matchedID[pair.id] = true
		t.applyMatch(t.identities[pair.id], dets[pair.det], ts)
	}

	var candidates []Candidate

	// Promote pending identities that have been continuously present for
	// the stabilization window. A re-activated dormant identity
	// re-stabilizes but does not re-enter.
	for _, id := range t.sortedIDs() {
		ident := t.identities[id]
		if ident.State != StatePending || !matchedID[id] {
			continue
		}
		if ts-t.stabilizeSince[id] < t.cfg.EnterStability {
			continue
		}
		ident.State = StateActive
		if !ident.EnterEmitted {
			ident.EnterEmitted = true
			ident.Entries++
			candidates = append(candidates, Candidate{
				Type:       EventEnter,
				IdentityID: ident.ID,
				Timestamp:  ts,
				Confidence: ident.LastConfidence,
				Box:        ident.LastBox,
			})
		}
	}

	// Spawn identities for unmatched detections that enter from a
	// plausible edge.
	for i, det := range dets {
		if matchedDet[i] {
			continue
		}
		t.spawn(det, ts)
	}

	// Age out unmatched identities.
	for _, id := range t.sortedIDs() {
		ident := t.identities[id]
		if matchedID[id] {
			continue
		}
		candidates = append(candidates, t.age(ident, ts)...)
	}

	// Drop exited identities.
	for id, ident := range t.identities {
		if ident.State == StateExited {
			delete(t.identities, id)
			delete(t.stabilizeSince, id)
		}
	}

	return candidates
}

// Flush finalizes all remaining identities at end of stream, emitting exit
// candidates for every identity whose enter was emitted. Confidence is
// graded down from the in-stream paths: a last position near an edge reads
// as a likely real exit, a center-stage disappearance does not.
func (t *Tracker) Flush(ts float64) []Candidate {
	var candidates []Candidate
	for _, id := range t.sortedIDs() {
		ident := t.identities[id]
		if ident.EnterEmitted {
			conf := exitConfidenceFlushCenter
			if t.nearEdge(ident.Centroid()) {
				conf = exitConfidenceFlushEdge
			}
			exitTS := ident.LastSeen + t.cfg.ExitStability
			if exitTS > ts {
				exitTS = ts
			}
			ident.TotalStageTime += ident.LastSeen - ident.FirstSeen
			candidates = append(candidates, Candidate{
				Type:       EventExit,
				IdentityID: ident.ID,
				Timestamp:  exitTS,
				Confidence: conf,
				Box:        ident.LastBox,
				StageTime:  ident.LastSeen - ident.FirstSeen,
				Entries:    ident.Entries,
			})
		}
		delete(t.identities, id)
		delete(t.stabilizeSince, id)
	}
	return candidates
}

// Snapshot returns copies of all live identities sorted by ID, with history
// slices deep-copied so callers can hold them across updates.
func (t *Tracker) Snapshot() []Identity {
	out := make([]Identity, 0, len(t.identities))
	for _, id := range t.sortedIDs() {
		ident := *t.identities[id]
		ident.History = append([]PositionSample(nil), ident.History...)
		out = append(out, ident)
	}
	return out
}

// ActiveCount returns the number of stabilized on-stage identities.
func (t *Tracker) ActiveCount() int {
	n := 0
	for _, ident := range t.identities {
		if ident.State == StateActive {
			n++
		}
	}
	return n
}

// Get returns a copy of one identity.
func (t *Tracker) Get(id int64) (Identity, bool) {
	ident, ok := t.identities[id]
	if !ok {
		return Identity{}, false
	}
	cp := *ident
	cp.History = append([]PositionSample(nil), cp.History...)
	return cp, true
}

type matchPair struct {
	id    int64
	det   int
	score float64
}

// matchPairs scores every plausible (identity, detection) pairing. Live
// identities match on centroid distance within the gate; dormant identities
// match on bbox overlap with a center-distance bonus. Pairs are ordered by
// score, then identity ID, then detection index, so ambiguous frames always
// resolve the same way.
func (t *Tracker) matchPairs(dets []stage.Detection) []matchPair {
	var pairs []matchPair
	for id, ident := range t.identities {
		for i, det := range dets {
			var score float64
			switch ident.State {
			case StatePending, StateActive:
				dist := ident.Centroid().Distance(det.Box.Center())
				if dist > t.cfg.MaxMatchDistance {
					continue
				}
				score = 1 - dist/t.cfg.MaxMatchDistance
			case StateDormant:
				score = ident.LastBox.IoU(det.Box)
				if cd := ident.Centroid().Distance(det.Box.Center()); cd < dormantCenterRadius {
					score += dormantCenterBonus * (1 - cd/dormantCenterRadius)
				}
				if score <= dormantMinScore {
					continue
				}
			default:
				continue
			}
			pairs = append(pairs, matchPair{id: id, det: i, score: score})
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].score != pairs[b].score {
			return pairs[a].score > pairs[b].score
		}
		if pairs[a].id != pairs[b].id {
			return pairs[a].id < pairs[b].id
		}
		return pairs[a].det < pairs[b].det
	})
	return pairs
}

func (t *Tracker) applyMatch(ident *Identity, det stage.Detection, ts float64) {
	if ident.State == StateDormant {
		// Came back: re-stabilize before counting as on stage again.
		ident.State = StatePending
		t.stabilizeSince[ident.ID] = ts
		ident.DormantSince = 0
		monitoring.Logf("track: identity %d re-activated from dormant at t=%.2f", ident.ID, ts)
	}

	prevArea := ident.LastBox.Area()
	if prevArea > 0 {
		ident.SizeChange = (det.Box.Area() - prevArea) / prevArea
	}

	ident.LastBox = det.Box
	ident.LastConfidence = det.Confidence
	ident.LastVisibility = Visibility(det)
	ident.LastSeen = ts
	ident.ConsecutiveMissing = 0

	ident.History = append(ident.History, PositionSample{Pos: det.Box.Center(), Timestamp: ts})
	if len(ident.History) > t.cfg.PositionHistory {
		ident.History = ident.History[len(ident.History)-t.cfg.PositionHistory:]
	}
	updateKinematics(ident)
}

func (t *Tracker) spawn(det stage.Detection, ts float64) {
	edge := t.nearestEdge(det.Box.Center())
	if edge != EdgeNone && !t.validEntryEdge(edge) {
		// Someone surfacing from the audience or a top-edge artifact.
		return
	}

	t.nextID++
	ident := &Identity{
		ID:             t.nextID,
		State:          StatePending,
		LastBox:        det.Box,
		LastConfidence: det.Confidence,
		LastVisibility: Visibility(det),
		FirstSeen:      ts,
		LastSeen:       ts,
		History:        []PositionSample{{Pos: det.Box.Center(), Timestamp: ts}},
		EntryEdge:      edge,
	}
	t.identities[ident.ID] = ident
	t.stabilizeSince[ident.ID] = ts
}

// age advances the missing-counters for an unmatched identity and returns
// any exit candidate that confirms at this timestamp.
func (t *Tracker) age(ident *Identity, ts float64) []Candidate {
	ident.ConsecutiveMissing++
	missingFor := ts - ident.LastSeen

	switch ident.State {
	case StatePending:
		if missingFor >= t.cfg.ExitStability || ident.ConsecutiveMissing > t.cfg.MaxDisappearedFrames {
			// Never admitted; drop silently.
			ident.State = StateExited
		}

	case StateActive:
		if missingFor < t.cfg.ExitStability && ident.ConsecutiveMissing <= t.cfg.MaxDisappearedFrames {
			return nil
		}
		if t.nearEdge(ident.Centroid()) {
			ident.State = StateExited
			ident.TotalStageTime += ident.LastSeen - ident.FirstSeen
			if ident.EnterEmitted {
				return []Candidate{{
					Type:       EventExit,
					IdentityID: ident.ID,
					Timestamp:  ts,
					Confidence: exitConfidenceEdge,
					Box:        ident.LastBox,
					StageTime:  ident.LastSeen - ident.FirstSeen,
					Entries:    ident.Entries,
				}}
			}
			return nil
		}
		// Vanished mid-stage: likely occlusion, hold as dormant.
		ident.State = StateDormant
		ident.DormantSince = ts

	case StateDormant:
		if ts-ident.DormantSince > t.cfg.DormantTimeout {
			ident.State = StateExited
			ident.TotalStageTime += ident.LastSeen - ident.FirstSeen
			if ident.EnterEmitted {
				return []Candidate{{
					Type:       EventExit,
					IdentityID: ident.ID,
					Timestamp:  ts,
					Confidence: exitConfidenceDormant,
					Box:        ident.LastBox,
					StageTime:  ident.LastSeen - ident.FirstSeen,
					Entries:    ident.Entries,
				}}
			}
		}
	}
	return nil
}

func (t *Tracker) nearEdge(p stage.Point) bool {
	return t.nearestEdge(p) != EdgeNone
}

// nearestEdge returns the frame edge p sits closest to, or EdgeNone when p
// is more than EdgeThreshold from all of them.
func (t *Tracker) nearestEdge(p stage.Point) Edge {
	type edgeDist struct {
		edge Edge
		dist float64
	}
	dists := []edgeDist{
		{EdgeLeft, p.X},
		{EdgeRight, 1 - p.X},
		{EdgeTop, p.Y},
		{EdgeBottom, 1 - p.Y},
	}
	best := edgeDist{EdgeNone, math.Inf(1)}
	for _, d := range dists {
		if d.dist < best.dist {
			best = d
		}
	}
	if best.dist >= t.cfg.EdgeThreshold {
		return EdgeNone
	}
	return best.edge
}

func (t *Tracker) validEntryEdge(e Edge) bool {
	for _, v := range t.cfg.ValidEntryEdges {
		if v == e {
			return true
		}
	}
	return false
}

func (t *Tracker) sortedIDs() []int64 {
	ids := make([]int64, 0, len(t.identities))
	for id := range t.identities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
