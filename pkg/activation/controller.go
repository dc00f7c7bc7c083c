package activation

import (
	"fmt"
	"log/slog"
	"time"

	"simmotion/pkg/model"
)

// Event reports transition progress. It is emitted on every plan step and
// once more, with Done set, when the plan completes.
type Event struct {
	State   State         `json:"state"`
	Mode    Mode          `json:"mode"`
	Percent int           `json:"percent"`
	Lengths model.Lengths `json:"lengths"`
	Done    bool          `json:"done"`
}

// Listener receives transition events from the tick.
type Listener func(Event)

// StateListener is called after a state change has been accepted.
type StateListener func(from, to State)

// Controller owns the platform state and any active transition plan.
// It is driven from the tick loop and is not safe for concurrent use.
type Controller struct {
	state   State
	plan    *Plan
	parked  model.Lengths
	current model.Lengths
	tick    time.Duration
	rate    float64

	listeners      []Listener
	stateListeners []StateListener
}

// NewController starts in StateInitialized with actuators at parked.
func NewController(parked model.Lengths, tick time.Duration, rate float64) *Controller {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Controller{
		state:   StateInitialized,
		parked:  parked,
		current: parked,
		tick:    tick,
		rate:    rate,
	}
}

// OnEvent registers a transition progress listener.
func (c *Controller) OnEvent(l Listener) { c.listeners = append(c.listeners, l) }

// OnStateChange registers a state change listener.
func (c *Controller) OnStateChange(l StateListener) {
	c.stateListeners = append(c.stateListeners, l)
}

// State returns the current platform state.
func (c *Controller) State() State { return c.state }

// Plan returns the active plan, or nil.
func (c *Controller) Plan() *Plan { return c.plan }

// Transitioning reports whether a plan is active.
func (c *Controller) Transitioning() bool { return c.plan != nil }

// Current returns the most recently commanded lengths.
func (c *Controller) Current() model.Lengths { return c.current }

// Parked returns the deactivated lengths.
func (c *Controller) Parked() model.Lengths { return c.parked }

// Request moves to state to if the table allows it. target is the length
// vector an activation ramps to; it is ignored for other states. A request
// made while a plan runs replans from the current interpolated lengths.
func (c *Controller) Request(to State, target model.Lengths) error {
	from := c.state
	if to == from {
		slog.Debug("Platform already in requested state", "state", to)
		return nil
	}
	if !Allowed(from, to) {
		slog.Warn("Rejected platform state request", "from", from, "to", to)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	c.state = to
	slog.Info("Platform state changed", "from", from, "to", to)

	switch to {
	case StateEnabled:
		if from == StateDeactivated {
			c.start(ModeActivating, target)
		}
	case StateDeactivated:
		c.start(ModeDeactivating, c.parked)
	}

	for _, l := range c.stateListeners {
		l(from, to)
	}
	return nil
}

func (c *Controller) start(mode Mode, end model.Lengths) {
	if c.plan != nil {
		slog.Info("Replanning transition in progress", "from_mode", c.plan.Mode, "to_mode", mode)
	}
	c.plan = NewPlan(mode, c.current, end, c.tick, c.rate)
	slog.Info("Transition started", "mode", mode, "steps", c.plan.Steps, "start", c.plan.Start, "end", end)
}

// Lengths returns the lengths to command this tick. While a plan is active
// it consumes one step and live is ignored. Otherwise the platform follows
// live when enabled, running or paused, and holds parked lengths when not.
func (c *Controller) Lengths(live model.Lengths) model.Lengths {
	if c.plan != nil {
		lengths, percent, done := c.plan.Step()
		c.current = lengths
		ev := Event{State: c.state, Mode: c.plan.Mode, Percent: percent, Lengths: lengths, Done: done}
		if done {
			slog.Info("Transition complete", "mode", c.plan.Mode, "lengths", lengths)
			c.plan = nil
		}
		c.emit(ev)
		return lengths
	}

	switch c.state {
	case StateEnabled, StateRunning, StatePaused:
		c.current = live
	default:
		c.current = c.parked
	}
	return c.current
}

func (c *Controller) emit(ev Event) {
	for _, l := range c.listeners {
		l(ev)
	}
}
