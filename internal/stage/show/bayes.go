package show

import "gonum.org/v1/gonum/mat"

// Bayes is the probabilistic state strategy: a discrete Bayes filter over
// the seven states with person count as the observation. It tolerates
// flickery counts better than the rules but offers no role awareness.
type Bayes struct {
	transition *mat.Dense    // rows: from, cols: to, indexed by States order
	belief     *mat.VecDense // current state distribution
}

// stateIndex maps a state to its position in States.
var stateIndex = func() map[State]int {
	m := make(map[State]int, len(States))
	for i, s := range States {
		m[s] = i
	}
	return m
}()

// NewBayes returns the filter primed with near-certainty of an empty stage.
func NewBayes() *Bayes {
	b := &Bayes{
		transition: mat.NewDense(len(States), len(States), nil),
		belief:     mat.NewVecDense(len(States), nil),
	}

	set := func(from, to State, p float64) {
		b.transition.Set(stateIndex[from], stateIndex[to], p)
	}

	set(StateEmptyStage, StateEmptyStage, 0.70)
	set(StateEmptyStage, StateHostIntro, 0.25)
	set(StateEmptyStage, StatePerformerPerforming, 0.05)

	set(StateHostIntro, StateHostIntro, 0.30)
	set(StateHostIntro, StatePerformerEntering, 0.50)
	set(StateHostIntro, StatePerformerPerforming, 0.20)

	set(StatePerformerEntering, StatePerformerEntering, 0.30)
	set(StatePerformerEntering, StatePerformerPerforming, 0.60)
	set(StatePerformerEntering, StateTransition, 0.10)

	set(StatePerformerPerforming, StatePerformerPerforming, 0.80)
	set(StatePerformerPerforming, StateHostOutro, 0.10)
	set(StatePerformerPerforming, StateApplause, 0.05)
	set(StatePerformerPerforming, StateEmptyStage, 0.05)

	set(StateHostOutro, StateHostOutro, 0.30)
	set(StateHostOutro, StateEmptyStage, 0.40)
	set(StateHostOutro, StateHostIntro, 0.20)
	set(StateHostOutro, StateApplause, 0.10)

	set(StateTransition, StateTransition, 0.40)
	set(StateTransition, StatePerformerPerforming, 0.30)
	set(StateTransition, StateEmptyStage, 0.20)
	set(StateTransition, StateHostIntro, 0.10)

	set(StateApplause, StateApplause, 0.30)
	set(StateApplause, StateEmptyStage, 0.30)
	set(StateApplause, StateHostOutro, 0.20)
	set(StateApplause, StateTransition, 0.20)

	b.belief.SetVec(stateIndex[StateEmptyStage], 0.90)
	b.belief.SetVec(stateIndex[StateHostIntro], 0.05)
	b.belief.SetVec(stateIndex[StatePerformerPerforming], 0.05)

	return b
}

// countLikelihoods is P(observed count | state), by count clamped to 3.
var countLikelihoods = map[int][]float64{
	// empty, intro, entering, performing, outro, transition, applause
	0: {0.99, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01},
	1: {0.01, 0.40, 0.10, 0.80, 0.10, 0.20, 0.10},
	2: {0.01, 0.10, 0.80, 0.15, 0.80, 0.50, 0.30},
	3: {0.01, 0.05, 0.30, 0.10, 0.30, 0.60, 0.60},
}

// Update runs one predict/update cycle on the observed person count.
func (b *Bayes) Update(personCount int, people []PersonInfo, prev State, stateDuration float64) (State, float64) {
	// Predict: propagate belief through the transition model.
	var predicted mat.VecDense
	predicted.MulVec(b.transition.T(), b.belief)

	// Update: weight by the observation likelihood and renormalize.
	count := personCount
	if count > 3 {
		count = 3
	}
	likelihood := countLikelihoods[count]

	var total float64
	for i := 0; i < predicted.Len(); i++ {
		v := predicted.AtVec(i) * likelihood[i]
		predicted.SetVec(i, v)
		total += v
	}
	if total > 0 {
		predicted.ScaleVec(1/total, &predicted)
	}
	b.belief.CopyVec(&predicted)

	best, bestP := 0, 0.0
	for i := 0; i < b.belief.Len(); i++ {
		if p := b.belief.AtVec(i); p > bestP {
			best, bestP = i, p
		}
	}
	return States[best], bestP
}

// Belief returns a copy of the current state distribution keyed by state.
func (b *Bayes) Belief() map[State]float64 {
	out := make(map[State]float64, len(States))
	for i, s := range States {
		out[s] = b.belief.AtVec(i)
	}
	return out
}
