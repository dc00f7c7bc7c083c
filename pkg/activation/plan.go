package activation

import (
	"math"
	"time"

	"simmotion/pkg/model"
)

// Mode is the direction of a transition plan.
type Mode string

const (
	ModeActivating   Mode = "activating"
	ModeDeactivating Mode = "deactivating"
)

// DefaultRate is the slowest-actuator travel in mm per second.
const DefaultRate = 50.0

// Plan interpolates actuator lengths from Start to End over Steps ticks.
type Plan struct {
	Mode  Mode
	Start model.Lengths
	End   model.Lengths
	Delta [model.NumActuators]float64
	Steps int

	index int
}

// NewPlan sizes a plan so the largest move covers at most rate*tick mm per step.
func NewPlan(mode Mode, start, end model.Lengths, tick time.Duration, rate float64) *Plan {
	maxDist := 0
	for i := range start {
		d := end[i] - start[i]
		if d < 0 {
			d = -d
		}
		maxDist = max(maxDist, d)
	}

	perStep := rate * tick.Seconds()
	steps := 1
	if perStep > 0 {
		steps = max(1, int(math.Round(float64(maxDist)/perStep)))
	}

	p := &Plan{Mode: mode, Start: start, End: end, Steps: steps}
	for i := range start {
		p.Delta[i] = float64(end[i]-start[i]) / float64(steps)
	}
	return p
}

// Step advances one tick. The final step returns End exactly.
func (p *Plan) Step() (lengths model.Lengths, percent int, done bool) {
	if p.index < p.Steps {
		p.index++
	}
	if p.index >= p.Steps {
		return p.End, p.finalPercent(), true
	}
	return p.Current(), p.percent(), false
}

// Current returns the lengths at the current step.
func (p *Plan) Current() model.Lengths {
	if p.index >= p.Steps {
		return p.End
	}
	var f [model.NumActuators]float64
	for i := range f {
		f[i] = float64(p.Start[i]) + float64(p.index)*p.Delta[i]
	}
	return model.LengthsFromFloats(f)
}

// Index returns the number of steps taken.
func (p *Plan) Index() int { return p.index }

// Done reports whether the plan has reached End.
func (p *Plan) Done() bool { return p.index >= p.Steps }

func (p *Plan) percent() int {
	progress := p.index * 100 / p.Steps
	if p.Mode == ModeDeactivating {
		return 100 - progress
	}
	return progress
}

func (p *Plan) finalPercent() int {
	if p.Mode == ModeDeactivating {
		return 0
	}
	return 100
}
