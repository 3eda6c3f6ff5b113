package show

// RoleLearner infers identity roles from appearance patterns observed over
// the course of a show. A host makes many short appearances between acts; a
// performer makes one or two long ones. Roles only firm up as exits
// accumulate, so early states are judged mostly on timing.
type RoleLearner struct {
	cfg       Config
	durations map[int64][]float64
	roles     map[int64]Role
}

// NewRoleLearner returns an empty learner.
func NewRoleLearner(cfg Config) *RoleLearner {
	return &RoleLearner{
		cfg:       cfg,
		durations: make(map[int64][]float64),
		roles:     make(map[int64]Role),
	}
}

// Observe records one completed appearance and re-classifies the identity.
func (l *RoleLearner) Observe(id int64, duration float64, entryCount int) {
	l.durations[id] = append(l.durations[id], duration)

	var sum float64
	for _, d := range l.durations[id] {
		sum += d
	}
	avg := sum / float64(len(l.durations[id]))

	switch {
	case entryCount >= l.cfg.HostMinEntries && avg < l.cfg.HostMaxAvgDuration:
		// Many short appearances.
		l.roles[id] = RoleHost
	case entryCount < l.cfg.HostMinEntries && avg > l.cfg.PerformerMinAvgDuration:
		// Few long appearances.
		l.roles[id] = RolePerformer
	case duration > l.cfg.PerformerLongDuration:
		l.roles[id] = RolePerformer
	case duration < l.cfg.HostShortDuration && entryCount > 1:
		l.roles[id] = RoleHost
	}
}

// Role returns the learned role for an identity, RoleUnknown before any
// classification sticks.
func (l *RoleLearner) Role(id int64) Role {
	if r, ok := l.roles[id]; ok {
		return r
	}
	return RoleUnknown
}

// Roles returns a copy of all learned roles.
func (l *RoleLearner) Roles() map[int64]Role {
	out := make(map[int64]Role, len(l.roles))
	for id, r := range l.roles {
		out[id] = r
	}
	return out
}
