// Package dynamics scales, limits and washes out motion requests.
package dynamics

import (
	"fmt"

	"simmotion/pkg/model"
)

// Regulator applies per-axis gains and the master gain to a normalized
// request and scales the clamped result to real-world units.
type Regulator struct {
	gains      [6]float64
	master     float64
	motionSpan [6]float64
}

// NewRegulator returns a regulator with unity gains. motionSpan is the
// travel reached at a normalized request of ±1 on each axis.
func NewRegulator(motionSpan [6]float64) *Regulator {
	return &Regulator{
		gains:      [6]float64{1, 1, 1, 1, 1, 1},
		master:     1,
		motionSpan: motionSpan,
	}
}

// Regulate returns clamp(t ⊙ gains · master, -1, 1) ⊙ span.
func (r *Regulator) Regulate(t model.Transform) model.Transform {
	var out model.Transform
	for i, v := range t {
		v *= r.gains[i] * r.master
		out[i] = min(max(v, -1), 1) * r.motionSpan[i]
	}
	return out
}

// SetGain sets one axis gain.
func (r *Regulator) SetGain(axis int, gain float64) error {
	if axis < 0 || axis >= len(r.gains) {
		return fmt.Errorf("axis %d out of range", axis)
	}
	r.gains[axis] = gain
	return nil
}

// SetGains replaces all axis gains.
func (r *Regulator) SetGains(g [6]float64) { r.gains = g }

// Gains returns the axis gains.
func (r *Regulator) Gains() [6]float64 { return r.gains }

// SetMasterGain sets the gain applied on top of the axis gains.
func (r *Regulator) SetMasterGain(g float64) { r.master = g }

// MasterGain returns the master gain.
func (r *Regulator) MasterGain() float64 { return r.master }

// MotionSpan returns the full-scale travel per axis.
func (r *Regulator) MotionSpan() [6]float64 { return r.motionSpan }
