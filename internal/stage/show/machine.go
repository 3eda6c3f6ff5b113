package show

import (
	"github.com/openmic-labs/stagecut/internal/config"
	"github.com/openmic-labs/stagecut/internal/monitoring"
	"github.com/openmic-labs/stagecut/internal/stage"
)

// Strategy estimates the next show state from one observation. prev and
// stateDuration describe the machine's current state and how long it has
// held at this timestamp.
type Strategy interface {
	Update(personCount int, people []PersonInfo, prev State, stateDuration float64) (State, float64)
}

// transition is a (from, to) state pair.
type transition struct {
	from, to State
}

// The full set of transitions that open or close a performance segment.
// Anything not listed moves the state without touching segment boundaries.
var (
	segmentOpens = map[transition]bool{
		{StatePerformerEntering, StatePerformerPerforming}: true,
		{StateEmptyStage, StatePerformerPerforming}:        true,
		{StateTransition, StatePerformerPerforming}:        true,
	}
	segmentCloses = map[transition]bool{
		{StatePerformerPerforming, StateHostOutro}:  true,
		{StatePerformerPerforming, StateEmptyStage}: true,
		{StatePerformerPerforming, StateApplause}:   true,
	}
)

// Machine tracks the show state over time and collects performance segment
// boundaries. Not safe for concurrent use.
type Machine struct {
	cfg      Config
	strategy Strategy
	roles    *RoleLearner

	current    State
	stateStart float64
	confidence float64

	openStart *float64
	segments  []stage.Segment
}

// NewMachine builds a machine with the configured strategy. The role
// learner is created here and shared with the heuristic strategy; feed it
// through Roles().Observe as identities exit.
func NewMachine(cfg Config) *Machine {
	m := &Machine{
		cfg:        cfg,
		roles:      NewRoleLearner(cfg),
		current:    StateEmptyStage,
		confidence: 1.0,
	}
	if cfg.Strategy == config.StrategyBayes {
		m.strategy = NewBayes()
	} else {
		m.strategy = NewHeuristic(cfg, m.roles)
	}
	return m
}

// Roles exposes the shared role learner.
func (m *Machine) Roles() *RoleLearner { return m.roles }

// Current returns the present state estimate.
func (m *Machine) Current() State { return m.current }

// Confidence returns the confidence of the present state estimate.
func (m *Machine) Confidence() float64 { return m.confidence }

// Update advances the machine by one observation and returns the new state
// and its confidence. Timestamps must be non-decreasing.
func (m *Machine) Update(personCount int, people []PersonInfo, ts float64) (State, float64) {
	stateDuration := ts - m.stateStart

	next, confidence := m.strategy.Update(personCount, people, m.current, stateDuration)
	if next != m.current {
		m.boundary(transition{m.current, next}, ts)
		monitoring.Logf("show: %s -> %s at t=%.2f (confidence %.2f)", m.current, next, ts, confidence)
		m.current = next
		m.stateStart = ts
	}
	m.confidence = confidence
	return m.current, m.confidence
}

func (m *Machine) boundary(tr transition, ts float64) {
	switch {
	case segmentOpens[tr]:
		if m.openStart == nil {
			start := ts
			m.openStart = &start
		}
	case segmentCloses[tr]:
		m.closeSegment(ts)
	}
}

func (m *Machine) closeSegment(ts float64) {
	if m.openStart == nil {
		return
	}
	seg := stage.Segment{Start: *m.openStart, End: ts}
	m.openStart = nil
	if seg.Duration() < m.cfg.MinPerformanceDuration {
		monitoring.Logf("show: discarding short segment %.2f-%.2f (%.2fs)", seg.Start, seg.End, seg.Duration())
		return
	}
	m.segments = append(m.segments, seg)
}

// CloseAt finalizes any open segment at end of stream, typically the video
// duration. Short candidates are discarded the same as in-stream closes.
func (m *Machine) CloseAt(ts float64) {
	m.closeSegment(ts)
}

// Segments returns the closed performance segments in order.
func (m *Machine) Segments() []stage.Segment {
	out := make([]stage.Segment, len(m.segments))
	copy(out, m.segments)
	return out
}
