package d2p

import (
	"fmt"

	"simmotion/pkg/model"
)

// Hysteresis branches.
const (
	BranchUp   = 0
	BranchDown = 1
)

// Threshold is the compression change in mm needed to switch branch.
const Threshold = 5

// HysteresisState tracks the active branch and last compression per muscle.
type HysteresisState struct {
	Branch [model.NumActuators]int
	Prev   [model.NumActuators]int
	primed bool
}

// Primed reports whether a first reading has been taken.
func (h *HysteresisState) Primed() bool { return h.primed }

// Converter maps muscle lengths to pressures for the current load.
type Converter struct {
	table     *LoadTable
	maxLength int
	load      float64
	active    ActiveTable
	hyst      HysteresisState
	last      [model.NumActuators]int
}

// NewConverter builds a converter whose compression reference is
// maxMuscleLength. The active rows start at the lightest load.
func NewConverter(t *LoadTable, maxMuscleLength int) *Converter {
	c := &Converter{table: t, maxLength: maxMuscleLength}
	c.load = float64(t.Loads[0])
	c.active = t.Interpolate(c.load)
	return c
}

// SetLoad rebuilds the active rows when the load changes.
func (c *Converter) SetLoad(load float64) {
	if load == c.load {
		return
	}
	c.load = load
	c.active = c.table.Interpolate(load)
}

// Load returns the load the active rows were built for.
func (c *Converter) Load() float64 { return c.load }

// Active returns the interpolated up and down rows.
func (c *Converter) Active() ActiveTable { return c.active }

// Convert returns one pressure per muscle at the given load.
func (c *Converter) Convert(lengths model.Lengths, load float64) [model.NumActuators]int {
	c.SetLoad(load)
	var comp [model.NumActuators]int
	for i, l := range lengths {
		comp[i] = c.maxLength - l
	}
	return c.FromCompressions(comp)
}

// ConvertSlice is Convert for callers holding a slice.
func (c *Converter) ConvertSlice(lengths []int, load float64) ([]int, error) {
	if len(lengths) != model.NumActuators {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrMuscleCount, len(lengths), model.NumActuators)
	}
	var l model.Lengths
	copy(l[:], lengths)
	p := c.Convert(l, load)
	return p[:], nil
}

// FromCompressions looks up pressures for compressions in mm, clipping
// them to the table width and updating the hysteresis state.
func (c *Converter) FromCompressions(comp [model.NumActuators]int) [model.NumActuators]int {
	width := c.table.Columns
	for i, v := range comp {
		comp[i] = min(max(v, 0), width-1)
	}

	h := &c.hyst
	if h.primed {
		for i, v := range comp {
			delta := v - h.Prev[i]
			switch {
			case delta >= Threshold:
				h.Branch[i] = BranchUp
			case delta <= -Threshold:
				h.Branch[i] = BranchDown
			}
		}
	} else {
		h.Branch = [model.NumActuators]int{}
		h.primed = true
	}
	h.Prev = comp

	var out [model.NumActuators]int
	for i, v := range comp {
		out[i] = c.active[h.Branch[i]][v]
	}
	c.last = out
	return out
}

// Pressures returns the most recent output.
func (c *Converter) Pressures() [model.NumActuators]int { return c.last }

// State returns a copy of the hysteresis state.
func (c *Converter) State() HysteresisState { return c.hyst }

// Reset forgets branch history; the next reading starts on the up branch.
func (c *Converter) Reset() {
	c.hyst = HysteresisState{}
}
