// Package show interprets per-frame person counts as the phases of a live
// show: who is on stage and why, where performances start and end, and
// which recurring identity is the host. Two interchangeable strategies
// drive the state estimate, a rule-based one and a discrete Bayes filter.
package show

import "github.com/openmic-labs/stagecut/internal/config"

// State is a phase of the show.
type State string

const (
	StateEmptyStage          State = "empty_stage"
	StateHostIntro           State = "host_intro"
	StatePerformerEntering   State = "performer_entering"
	StatePerformerPerforming State = "performer_performing"
	StateHostOutro           State = "host_outro"
	StateTransition          State = "transition"
	StateApplause            State = "applause"
)

// States lists every state in a fixed order; the Bayes strategy indexes its
// belief vector by position in this slice.
var States = []State{
	StateEmptyStage,
	StateHostIntro,
	StatePerformerEntering,
	StatePerformerPerforming,
	StateHostOutro,
	StateTransition,
	StateApplause,
}

// Role is a learned identity role.
type Role string

const (
	RoleUnknown   Role = "unknown"
	RoleHost      Role = "host"
	RolePerformer Role = "performer"
)

// PersonInfo is what the state machine knows about one on-stage identity.
type PersonInfo struct {
	ID        int64
	Role      Role
	StageTime float64 // seconds into the current appearance
}

// Config is the resolved state-machine tuning.
type Config struct {
	Strategy string

	TypicalIntroDuration   float64
	TypicalOutroDuration   float64
	MinPerformanceDuration float64

	HostMaxAvgDuration      float64
	HostMinEntries          int
	HostShortDuration       float64
	PerformerMinAvgDuration float64
	PerformerLongDuration   float64
}

// DefaultConfig returns the state-machine defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.Empty())
}

// ConfigFrom resolves the state-machine tuning from the full configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Strategy:                cfg.StateMachine.GetStrategy(),
		TypicalIntroDuration:    cfg.StateMachine.GetTypicalIntroDuration(),
		TypicalOutroDuration:    cfg.StateMachine.GetTypicalOutroDuration(),
		MinPerformanceDuration:  cfg.StateMachine.GetMinPerformanceDuration(),
		HostMaxAvgDuration:      cfg.StateMachine.GetHostMaxAvgDuration(),
		HostMinEntries:          cfg.StateMachine.GetHostMinEntries(),
		HostShortDuration:       cfg.StateMachine.GetHostShortDuration(),
		PerformerMinAvgDuration: cfg.StateMachine.GetPerformerMinAvgDuration(),
		PerformerLongDuration:   cfg.StateMachine.GetPerformerLongDuration(),
	}
}
