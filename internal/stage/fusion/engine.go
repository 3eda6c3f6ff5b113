// Package fusion grades how likely each tracked person is to be leaving the
// stage by fusing five weighted evidence channels: position relative to the
// frame edges, velocity toward an edge, stage-zone classification,
// appearance (visibility and shrinking), and show context (role and time on
// stage). Single channels misfire constantly on real footage; the weighted
// blend with temporal smoothing is what makes the exit confidence usable.
package fusion

import (
	"math"

	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/stage"
	"github.com/openmic-labs/stagecut/internal/stage/zone"
)

// Config is the resolved fusion tuning.
type Config struct {
	Weights map[SignalType]float64

	ExitThreshold  float64
	EnterThreshold float64

	SmoothingAlpha float64
	RecentWindow   int
	SignalHistory  int
	StaleAfter     float64
	Decay          float64

	// EdgeThreshold gates the position and velocity channels: only within
	// this frame fraction of an edge does movement read as an exit.
	EdgeThreshold float64

	// ExitSpeed normalizes edge-directed velocity, in frame-fractions per
	// second; walking off stage at this speed saturates the channel.
	ExitSpeed float64

	// HostOverstay is how long a host plausibly stays up between acts;
	// past it the context channel expects them to leave.
	HostOverstay float64
}

// DefaultConfig returns the fusion defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.Empty())
}

// ConfigFrom resolves the fusion tuning from the full configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Weights: map[SignalType]float64{
			SignalPosition:   cfg.Fusion.GetPositionWeight(),
			SignalVelocity:   cfg.Fusion.GetVelocityWeight(),
			SignalZone:       cfg.Fusion.GetZoneWeight(),
			SignalAppearance: cfg.Fusion.GetAppearanceWeight(),
			SignalContext:    cfg.Fusion.GetContextWeight(),
		},
		ExitThreshold:  cfg.Fusion.GetExitThreshold(),
		EnterThreshold: cfg.Fusion.GetEnterThreshold(),
		SmoothingAlpha: cfg.Fusion.GetSmoothingAlpha(),
		RecentWindow:   cfg.Fusion.GetRecentWindow(),
		SignalHistory:  cfg.Fusion.GetSignalHistory(),
		StaleAfter:     cfg.Fusion.GetStaleAfterSeconds(),
		Decay:          cfg.Fusion.GetConfidenceDecay(),
		EdgeThreshold:  cfg.Zone.GetExitThreshold(),
		ExitSpeed:      cfg.Tracker.GetExitSpeed(),
		HostOverstay:   cfg.StateMachine.GetHostShortDuration(),
	}
}

type identityState struct {
	signals        []Signal
	exitConfidence float64
	lastUpdate     float64
}

// Engine fuses per-identity signals. Not safe for concurrent use.
type Engine struct {
	cfg    Config
	states map[int64]*identityState
}

// New returns an engine with no identity state.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, states: make(map[int64]*identityState)}
}

// AddSignal appends a raw signal to an identity's bounded history. The
// Observe* helpers are the usual entry points; AddSignal exists for tests
// and custom channels.
func (e *Engine) AddSignal(id int64, s Signal) {
	st := e.state(id)
	st.signals = append(st.signals, s)
	if len(st.signals) > e.cfg.SignalHistory {
		st.signals = st.signals[len(st.signals)-e.cfg.SignalHistory:]
	}
	st.lastUpdate = s.Timestamp
}

// ObservePosition feeds the position channel: proximity to the nearest
// frame edge, regardless of direction of travel.
func (e *Engine) ObservePosition(id int64, p stage.Point, ts float64) {
	minEdge := math.Min(
		math.Min(p.X, 1-p.X),
		math.Min(p.Y, 1-p.Y),
	)
	e.AddSignal(id, Signal{
		Type:       SignalPosition,
		Value:      1 - minEdge,
		Confidence: 0.8,
		Timestamp:  ts,
	})
}

// ObserveVelocity feeds the velocity channel: speed toward the nearest
// edge, but only while already near that edge. Crossing the stage fast
// reads as zero.
func (e *Engine) ObserveVelocity(id int64, vx, vy float64, p stage.Point, ts float64) {
	var edgeVel float64
	towardEdge := false
	switch {
	case p.X < e.cfg.EdgeThreshold && vx < 0:
		edgeVel, towardEdge = -vx, true
	case p.X > 1-e.cfg.EdgeThreshold && vx > 0:
		edgeVel, towardEdge = vx, true
	case p.Y < e.cfg.EdgeThreshold && vy < 0:
		edgeVel, towardEdge = -vy, true
	case p.Y > 1-e.cfg.EdgeThreshold && vy > 0:
		edgeVel, towardEdge = vy, true
	}

	speed := math.Hypot(vx, vy)
	s := Signal{Type: SignalVelocity, Timestamp: ts}
	if towardEdge {
		s.Value = math.Min(1, edgeVel/e.cfg.ExitSpeed)
		s.Confidence = math.Min(1, speed/(e.cfg.ExitSpeed*0.66))
	} else {
		s.Value = 0
		s.Confidence = 0.5
	}
	e.AddSignal(id, s)
}

// ObserveZone feeds the zone channel from the stage-zone classification.
func (e *Engine) ObserveZone(id int64, region zone.Region, zoneConfidence, ts float64) {
	var value float64
	switch region {
	case zone.RegionOutside:
		value = 1.0
	case zone.RegionBoundary:
		value = 0.5
	default:
		value = 0.0
	}
	e.AddSignal(id, Signal{
		Type:       SignalZone,
		Value:      value,
		Confidence: zoneConfidence,
		Timestamp:  ts,
	})
}

// ObserveAppearance feeds the appearance channel: a barely visible or
// rapidly shrinking person is probably walking out of frame.
func (e *Engine) ObserveAppearance(id int64, visibility, sizeChange, ts float64) {
	var value float64
	switch {
	case visibility < 0.3:
		value = 0.8
	case sizeChange < -0.2:
		value = 0.6
	}
	e.AddSignal(id, Signal{
		Type:       SignalAppearance,
		Value:      value,
		Confidence: 0.7,
		Timestamp:  ts,
	})
}

// ObserveContext feeds the context channel from show-level expectations: a
// host who has been up past a handoff-length stay should be leaving, and a
// performer should leave once the host's outro starts or after a very long
// set.
func (e *Engine) ObserveContext(id int64, role string, hostOutro bool, stageTime, ts float64) {
	value, confidence := 0.0, 0.5
	switch role {
	case "host":
		if stageTime > e.cfg.HostOverstay {
			value, confidence = 0.7, 0.8
		}
	case "performer":
		if hostOutro {
			value, confidence = 0.6, 0.7
		} else if stageTime > 300 {
			value, confidence = 0.3, 0.6
		}
	}
	e.AddSignal(id, Signal{
		Type:       SignalContext,
		Value:      value,
		Confidence: confidence,
		Timestamp:  ts,
	})
}

// ExitConfidence fuses the recent signals into a smoothed exit confidence
// in [0, 1]. Channels with no signals contribute nothing and their weight
// is excluded from the normalization, so a sparse identity is judged only
// on the evidence that exists.
func (e *Engine) ExitConfidence(id int64) float64 {
	st, ok := e.states[id]
	if !ok || len(st.signals) == 0 {
		return 0
	}

	groups := make(map[SignalType][]Signal)
	for _, s := range st.signals {
		groups[s.Type] = append(groups[s.Type], s)
	}

	var sum, totalWeight float64
	for sigType, weight := range e.cfg.Weights {
		sigs := groups[sigType]
		if len(sigs) == 0 {
			continue
		}
		if len(sigs) > e.cfg.RecentWindow {
			sigs = sigs[len(sigs)-e.cfg.RecentWindow:]
		}
		var valSum, confSum float64
		for _, s := range sigs {
			valSum += s.Value * s.Confidence
			confSum += s.Confidence
		}
		avgValue := valSum / float64(len(sigs))
		avgConfidence := confSum / float64(len(sigs))
		sum += avgValue * avgConfidence * weight
		totalWeight += weight
	}

	raw := 0.0
	if totalWeight > 0 {
		raw = sum / totalWeight
	}

	alpha := e.cfg.SmoothingAlpha
	st.exitConfidence = alpha*raw + (1-alpha)*st.exitConfidence
	return st.exitConfidence
}

// StagePresence returns confidence the person is still on stage at the
// given timestamp: the complement of exit confidence, decayed once the
// signals go stale.
func (e *Engine) StagePresence(id int64, now float64) float64 {
	presence := 1 - e.ExitConfidence(id)
	st, ok := e.states[id]
	if !ok {
		return presence
	}
	if sinceUpdate := now - st.lastUpdate; sinceUpdate > e.cfg.StaleAfter {
		presence *= math.Pow(e.cfg.Decay, sinceUpdate)
	}
	return presence
}

// Breakdown returns each channel's unweighted recent contribution
// (avg value x avg confidence), for diagnostics.
func (e *Engine) Breakdown(id int64) map[SignalType]float64 {
	out := make(map[SignalType]float64, len(SignalTypes))
	st, ok := e.states[id]
	if !ok {
		return out
	}
	groups := make(map[SignalType][]Signal)
	for _, s := range st.signals {
		groups[s.Type] = append(groups[s.Type], s)
	}
	for sigType, sigs := range groups {
		if len(sigs) > e.cfg.RecentWindow {
			sigs = sigs[len(sigs)-e.cfg.RecentWindow:]
		}
		var valSum, confSum float64
		for _, s := range sigs {
			valSum += s.Value * s.Confidence
			confSum += s.Confidence
		}
		out[sigType] = (valSum / float64(len(sigs))) * (confSum / float64(len(sigs)))
	}
	return out
}

// Remove drops all state for an identity, called after its exit is final.
func (e *Engine) Remove(id int64) {
	delete(e.states, id)
}

func (e *Engine) state(id int64) *identityState {
	st, ok := e.states[id]
	if !ok {
		st = &identityState{}
		e.states[id] = st
	}
	return st
}
