package fusion

// SignalType names one of the five evidence channels fused into an exit
// confidence.
type SignalType string

const (
	SignalPosition   SignalType = "position"
	SignalVelocity   SignalType = "velocity"
	SignalZone       SignalType = "zone"
	SignalAppearance SignalType = "appearance"
	SignalContext    SignalType = "context"
)

// SignalTypes lists all channels in weight order, for diagnostics output.
var SignalTypes = []SignalType{
	SignalPosition, SignalVelocity, SignalZone, SignalAppearance, SignalContext,
}

// Signal is one piece of exit evidence: Value is how strongly the channel
// suggests the person is leaving, Confidence how much the channel trusts
// its own reading. Both are in [0, 1].
type Signal struct {
	Type       SignalType
	Value      float64
	Confidence float64
	Timestamp  float64
}
