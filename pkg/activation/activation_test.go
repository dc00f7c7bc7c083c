package activation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simmotion/pkg/model"
)

const tick = 50 * time.Millisecond

func TestTransitionTable(t *testing.T) {
	allowed := map[State][]State{
		StateInitialized: {StateDeactivated},
		StateDeactivated: {StateEnabled},
		StateEnabled:     {StateDeactivated, StateRunning, StatePaused},
		StateRunning:     {StateEnabled, StatePaused, StateDeactivated},
		StatePaused:      {StateEnabled, StateRunning, StateDeactivated},
	}

	for _, from := range States {
		for _, to := range States {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				c := controllerIn(t, from)
				err := c.Request(to, model.Uniform(700))

				switch {
				case from == to:
					assert.NoError(t, err)
					assert.Equal(t, from, c.State())
				case contains(allowed[from], to):
					assert.NoError(t, err)
					assert.Equal(t, to, c.State())
				default:
					assert.ErrorIs(t, err, ErrInvalidTransition)
					assert.Equal(t, from, c.State(), "rejected request leaves state unchanged")
				}
			})
		}
	}
}

func contains(list []State, s State) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// controllerIn walks a fresh controller into state s, finishing any plans.
func controllerIn(t *testing.T, s State) *Controller {
	t.Helper()
	c := NewController(model.Uniform(800), tick, DefaultRate)
	path := map[State][]State{
		StateInitialized: nil,
		StateDeactivated: {StateDeactivated},
		StateEnabled:     {StateDeactivated, StateEnabled},
		StateRunning:     {StateDeactivated, StateEnabled, StateRunning},
		StatePaused:      {StateDeactivated, StateEnabled, StatePaused},
	}[s]
	for _, step := range path {
		require.NoError(t, c.Request(step, model.Uniform(700)))
		finish(c)
	}
	require.Equal(t, s, c.State())
	return c
}

func finish(c *Controller) {
	for c.Transitioning() {
		c.Lengths(model.Lengths{})
	}
}

func TestParseState(t *testing.T) {
	s, err := ParseState("running")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, s)
	assert.Equal(t, 3, s.Index())

	_, err = ParseState("flying")
	assert.Error(t, err)
}

func TestPlan_Sizing(t *testing.T) {
	tests := []struct {
		name  string
		start model.Lengths
		end   model.Lengths
		steps int
	}{
		{"full range", model.Uniform(0), model.Uniform(600), 240},
		{"slowest axis wins", model.Lengths{0, 0, 0, 0, 0, 0}, model.Lengths{10, -100, 5, 0, 0, 0}, 40},
		{"rounds", model.Uniform(0), model.Uniform(6), 2},
		{"no movement", model.Uniform(300), model.Uniform(300), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlan(ModeActivating, tt.start, tt.end, tick, DefaultRate)
			assert.Equal(t, tt.steps, p.Steps)
		})
	}
}

func TestPlan_ReachesEndExactly(t *testing.T) {
	p := NewPlan(ModeActivating, model.Uniform(0), model.Uniform(600), tick, DefaultRate)
	require.Equal(t, 240, p.Steps)

	var (
		got     model.Lengths
		percent int
		done    bool
	)
	for i := 1; i <= 240; i++ {
		got, percent, done = p.Step()
		if i < 240 {
			require.False(t, done, "step %d", i)
			assert.Equal(t, model.Uniform(int(float64(i)*2.5+0.5)), got, "step %d", i)
		}
	}
	assert.True(t, done)
	assert.Equal(t, 100, percent)
	assert.Equal(t, model.Uniform(600), got)
}

func TestPlan_NoDrift(t *testing.T) {
	// 7/3 per step does not divide evenly.
	p := NewPlan(ModeDeactivating, model.Lengths{0, 7, 3, 11, 0, 1}, model.Lengths{7, 0, 5, 0, 2, 9}, tick, DefaultRate)
	var got model.Lengths
	done := false
	for n := 0; !done; n++ {
		require.Less(t, n, p.Steps)
		got, _, done = p.Step()
	}
	assert.Equal(t, model.Lengths{7, 0, 5, 0, 2, 9}, got)
}

func TestController_Activation(t *testing.T) {
	c := NewController(model.Uniform(800), tick, DefaultRate)
	var events []Event
	c.OnEvent(func(e Event) { events = append(events, e) })

	require.NoError(t, c.Request(StateDeactivated, model.Lengths{}))
	finish(c)
	events = nil

	require.NoError(t, c.Request(StateEnabled, model.Uniform(700)))
	require.True(t, c.Transitioning())
	assert.Equal(t, 40, c.Plan().Steps)

	live := model.Uniform(123)
	for i := 0; i < 40; i++ {
		got := c.Lengths(live)
		assert.NotEqual(t, live, got, "live lengths are suppressed during a plan")
	}
	assert.False(t, c.Transitioning(), "plan cleared after final step")
	require.Len(t, events, 40)

	last := events[len(events)-1]
	assert.True(t, last.Done)
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, model.Uniform(700), last.Lengths)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
	}

	assert.Equal(t, live, c.Lengths(live), "enabled follows live lengths")
}

func TestController_Deactivation(t *testing.T) {
	c := controllerIn(t, StateRunning)
	var last Event
	c.OnEvent(func(e Event) { last = e })

	c.Lengths(model.Uniform(650))
	require.NoError(t, c.Request(StateDeactivated, model.Lengths{}))
	finish(c)

	assert.True(t, last.Done)
	assert.Equal(t, 0, last.Percent)
	assert.Equal(t, ModeDeactivating, last.Mode)
	assert.Equal(t, model.Uniform(800), c.Current())
	assert.Equal(t, model.Uniform(800), c.Lengths(model.Uniform(650)), "deactivated holds parked")
}

func TestController_CancelReplansFromCurrent(t *testing.T) {
	c := controllerIn(t, StateDeactivated)
	require.NoError(t, c.Request(StateEnabled, model.Uniform(600)))

	var mid model.Lengths
	for range 20 {
		mid = c.Lengths(model.Lengths{})
	}
	assert.Equal(t, model.Uniform(750), mid)

	require.NoError(t, c.Request(StateDeactivated, model.Lengths{}))
	p := c.Plan()
	require.NotNil(t, p)
	assert.Equal(t, ModeDeactivating, p.Mode)
	assert.Equal(t, mid, p.Start)
	assert.Equal(t, 20, p.Steps)
}

func TestController_StateListener(t *testing.T) {
	c := NewController(model.Uniform(0), tick, DefaultRate)
	var changes [][2]State
	c.OnStateChange(func(from, to State) { changes = append(changes, [2]State{from, to}) })

	require.NoError(t, c.Request(StateDeactivated, model.Lengths{}))
	assert.Error(t, c.Request(StateRunning, model.Lengths{}))
	assert.Equal(t, [][2]State{{StateInitialized, StateDeactivated}}, changes)
}
