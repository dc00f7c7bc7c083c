package dynamics

import (
	"math"

	"simmotion/pkg/model"
)

// WashoutState carries the previous washed output between ticks.
type WashoutState struct {
	Prev model.Transform
}

// Reset returns the envelope to neutral.
func (s *WashoutState) Reset() { s.Prev = model.Transform{} }

// Washout is a per-axis envelope follower: a growing cue passes straight
// through, a shrinking one decays from the previous output by a constant
// factor per tick.
type Washout struct {
	frame   float64
	times   [6]float64
	factors [6]float64
}

// NewWashout builds factors for a tick of frameSeconds. A washout time of
// zero disables decay on that axis.
func NewWashout(frameSeconds float64, times [6]float64) *Washout {
	w := &Washout{frame: frameSeconds}
	for i, t := range times {
		w.SetTime(i, t)
	}
	return w
}

// Factor is the per-tick decay multiplier that brings a cue below about
// 2% of its start after washoutSeconds.
func Factor(frameSeconds, washoutSeconds float64) float64 {
	if washoutSeconds == 0 {
		return 0
	}
	return 1 - frameSeconds/washoutSeconds*4
}

// SetTime changes the washout time of one axis.
func (w *Washout) SetTime(axis int, seconds float64) {
	if axis < 0 || axis >= len(w.times) {
		return
	}
	w.times[axis] = seconds
	w.factors[axis] = Factor(w.frame, seconds)
}

// Times returns the configured washout times in seconds.
func (w *Washout) Times() [6]float64 { return w.times }

// Factors returns the per-axis decay factors.
func (w *Washout) Factors() [6]float64 { return w.factors }

// Apply washes one tick of telemetry and records the result in st.
func (w *Washout) Apply(t model.Transform, st *WashoutState) model.Transform {
	for i, f := range w.factors {
		if f != 0 && math.Abs(t[i]) < math.Abs(st.Prev[i]) {
			t[i] = st.Prev[i] * f
		}
	}
	st.Prev = t
	return t
}
