package show

// Heuristic is the rule-based state strategy: person count plus learned
// roles plus how long the previous state has held. It is the default
// because its mistakes are easy to reason about from a log.
type Heuristic struct {
	cfg   Config
	roles *RoleLearner
}

// NewHeuristic returns the rule-based strategy sharing the machine's role
// learner.
func NewHeuristic(cfg Config, roles *RoleLearner) *Heuristic {
	return &Heuristic{cfg: cfg, roles: roles}
}

// Update picks the next state from the current observation.
func (h *Heuristic) Update(personCount int, people []PersonInfo, prev State, stateDuration float64) (State, float64) {
	switch {
	case personCount == 0:
		return StateEmptyStage, 1.0
	case personCount == 1:
		return h.onePerson(people, prev, stateDuration)
	case personCount == 2:
		return h.twoPeople(people, prev)
	default:
		if prev == StatePerformerPerforming {
			return StateApplause, 0.7
		}
		return StateTransition, 0.6
	}
}

func (h *Heuristic) onePerson(people []PersonInfo, prev State, stateDuration float64) (State, float64) {
	var role Role = RoleUnknown
	if len(people) > 0 {
		role = h.roles.Role(people[0].ID)
	}

	switch prev {
	case StateEmptyStage:
		switch role {
		case RoleHost:
			return StateHostIntro, 0.8
		case RolePerformer:
			return StatePerformerPerforming, 0.8
		}
		// Unknown person: a quick turnaround suggests the host is back up.
		if stateDuration < h.cfg.TypicalIntroDuration {
			return StateHostIntro, 0.6
		}
		return StatePerformerPerforming, 0.6

	case StateHostIntro:
		if stateDuration > h.cfg.TypicalIntroDuration*2 {
			// Too long for an intro; this is the act.
			return StatePerformerPerforming, 0.7
		}
		return StateHostIntro, 0.9

	case StatePerformerPerforming:
		return StatePerformerPerforming, 0.95

	default:
		return StatePerformerPerforming, 0.6
	}
}

func (h *Heuristic) twoPeople(people []PersonInfo, prev State) (State, float64) {
	hasHost, hasPerformer := false, false
	for _, p := range people {
		switch h.roles.Role(p.ID) {
		case RoleHost:
			hasHost = true
		case RolePerformer:
			hasPerformer = true
		}
	}

	if hasHost && hasPerformer {
		switch prev {
		case StatePerformerPerforming:
			return StateHostOutro, 0.85
		case StateEmptyStage:
			return StatePerformerEntering, 0.7
		default:
			return StateTransition, 0.7
		}
	}

	switch prev {
	case StateHostIntro:
		return StatePerformerEntering, 0.8
	case StatePerformerPerforming:
		return StateHostOutro, 0.8
	default:
		return StateTransition, 0.6
	}
}
