package show

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmic-labs/stagecut/internal/stage"
)

func testConfig() Config {
	return Config{
		Strategy:               "heuristic",
		TypicalIntroDuration:   10,
		TypicalOutroDuration:   5,
		MinPerformanceDuration: 30,

		HostMaxAvgDuration:      30,
		HostMinEntries:          3,
		HostShortDuration:       15,
		PerformerMinAvgDuration: 60,
		PerformerLongDuration:   120,
	}
}

func one(id int64) []PersonInfo { return []PersonInfo{{ID: id}} }

func TestRoleLearner(t *testing.T) {
	t.Parallel()

	t.Run("many short appearances make a host", func(t *testing.T) {
		t.Parallel()
		l := NewRoleLearner(testConfig())
		l.Observe(1, 20, 1)
		assert.Equal(t, RoleUnknown, l.Role(1))
		l.Observe(1, 25, 2)
		l.Observe(1, 20, 3)
		assert.Equal(t, RoleHost, l.Role(1))
	})

	t.Run("one long appearance makes a performer", func(t *testing.T) {
		t.Parallel()
		l := NewRoleLearner(testConfig())
		l.Observe(2, 90, 1)
		assert.Equal(t, RolePerformer, l.Role(2))
	})

	t.Run("very long set overrides entry count", func(t *testing.T) {
		t.Parallel()
		l := NewRoleLearner(testConfig())
		// Averaged down by earlier short stints, but the marathon set
		// decides it.
		l.Observe(3, 10, 1)
		l.Observe(3, 10, 2)
		l.Observe(3, 10, 3)
		l.Observe(3, 150, 4)
		assert.Equal(t, RolePerformer, l.Role(3))
	})

	t.Run("repeated quick stints make a host", func(t *testing.T) {
		t.Parallel()
		l := NewRoleLearner(testConfig())
		// First read looks like a performer; the quick return flips it.
		l.Observe(4, 100, 1)
		require.Equal(t, RolePerformer, l.Role(4))
		l.Observe(4, 10, 2)
		assert.Equal(t, RoleHost, l.Role(4))
	})

	t.Run("roles copy", func(t *testing.T) {
		t.Parallel()
		l := NewRoleLearner(testConfig())
		l.Observe(5, 200, 1)
		roles := l.Roles()
		roles[5] = RoleHost
		assert.Equal(t, RolePerformer, l.Role(5))
	})
}

// A performer taking the stage after a long empty stretch opens a segment;
// the stage emptying closes it. A stint shorter than the minimum performance
// is discarded at close.
func TestMachineSegmentLifecycle(t *testing.T) {
	t.Parallel()

	m := NewMachine(testConfig())
	require.Equal(t, StateEmptyStage, m.Current())

	m.Update(0, nil, 0)

	// Stage was empty for 15s, longer than any intro turnaround: whoever
	// walks up now is performing.
	state, _ := m.Update(1, one(7), 15)
	require.Equal(t, StatePerformerPerforming, state)

	for ts := 20.0; ts <= 50; ts += 10 {
		m.Update(1, one(7), ts)
	}
	state, _ = m.Update(0, nil, 60)
	require.Equal(t, StateEmptyStage, state)

	// Second, too-short stint.
	m.Update(1, one(8), 70)
	m.Update(0, nil, 75)

	assert.Equal(t, []stage.Segment{{Start: 15, End: 60}}, m.Segments())
}

// Full compere flow: known host up, performer joins, host steps off, the act
// runs, host returns for the outro.
func TestMachineHostedShow(t *testing.T) {
	t.Parallel()

	m := NewMachine(testConfig())

	// Teach the machine who the host is.
	m.Roles().Observe(1, 20, 1)
	m.Roles().Observe(1, 20, 2)
	m.Roles().Observe(1, 20, 3)
	require.Equal(t, RoleHost, m.Roles().Role(1))

	state, conf := m.Update(1, one(1), 0)
	require.Equal(t, StateHostIntro, state)
	assert.Equal(t, 0.8, conf)

	state, _ = m.Update(2, []PersonInfo{{ID: 1}, {ID: 2}}, 5)
	require.Equal(t, StatePerformerEntering, state)

	state, _ = m.Update(1, one(2), 8)
	require.Equal(t, StatePerformerPerforming, state)

	for ts := 20.0; ts <= 90; ts += 10 {
		m.Update(1, one(2), ts)
	}

	state, _ = m.Update(2, []PersonInfo{{ID: 1}, {ID: 2}}, 100)
	require.Equal(t, StateHostOutro, state)

	assert.Equal(t, []stage.Segment{{Start: 8, End: 100}}, m.Segments())
}

func TestMachineApplauseClosesSegment(t *testing.T) {
	t.Parallel()

	m := NewMachine(testConfig())
	m.Update(0, nil, 0)
	m.Update(1, one(2), 20)
	require.Equal(t, StatePerformerPerforming, m.Current())

	// A crowd on stage mid-performance reads as the applause pile-on.
	state, _ := m.Update(4, nil, 80)
	require.Equal(t, StateApplause, state)

	assert.Equal(t, []stage.Segment{{Start: 20, End: 80}}, m.Segments())
}

// CloseAt finalizes a performance still running when the video ends.
func TestMachineCloseAt(t *testing.T) {
	t.Parallel()

	t.Run("open segment closed at end", func(t *testing.T) {
		t.Parallel()
		m := NewMachine(testConfig())
		m.Update(0, nil, 0)
		m.Update(1, one(2), 20)
		require.Equal(t, StatePerformerPerforming, m.Current())

		m.CloseAt(300)
		assert.Equal(t, []stage.Segment{{Start: 20, End: 300}}, m.Segments())
	})

	t.Run("short open segment discarded", func(t *testing.T) {
		t.Parallel()
		m := NewMachine(testConfig())
		m.Update(0, nil, 0)
		m.Update(1, one(2), 20)

		m.CloseAt(25)
		assert.Empty(t, m.Segments())
	})

	t.Run("nothing open is a no-op", func(t *testing.T) {
		t.Parallel()
		m := NewMachine(testConfig())
		m.CloseAt(100)
		assert.Empty(t, m.Segments())
	})
}

func TestBayesConverges(t *testing.T) {
	t.Parallel()

	b := NewBayes()

	// A steady count of one settles on a performance.
	var state State
	var conf float64
	for i := 0; i < 5; i++ {
		state, conf = b.Update(1, nil, state, 0)
	}
	assert.Equal(t, StatePerformerPerforming, state)
	assert.Greater(t, conf, 0.7)

	// Stage empties: the filter follows within a couple of observations.
	b.Update(0, nil, state, 0)
	state, conf = b.Update(0, nil, state, 0)
	assert.Equal(t, StateEmptyStage, state)
	assert.Greater(t, conf, 0.9)
}

func TestBayesBeliefNormalized(t *testing.T) {
	t.Parallel()

	b := NewBayes()
	counts := []int{0, 1, 1, 2, 1, 3, 5, 0}
	for _, c := range counts {
		b.Update(c, nil, StateEmptyStage, 0)
	}

	var total float64
	for _, p := range b.Belief() {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestMachineBayesStrategy(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Strategy = "bayes"
	cfg.MinPerformanceDuration = 1
	m := NewMachine(cfg)

	// First single-person observation reads as the host warming up; the
	// count holding at one hands over to the act.
	state, _ := m.Update(1, nil, 0)
	assert.Equal(t, StateHostIntro, state)

	for ts := 1.0; ts <= 5; ts++ {
		state, _ = m.Update(1, nil, ts)
	}
	assert.Equal(t, StatePerformerPerforming, state)
}
