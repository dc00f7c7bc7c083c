// Package geometry describes the physical layout of a motion platform.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"simmotion/pkg/model"
)

// Kind selects the inverse kinematics variant.
type Kind string

const (
	// Rigid platforms connect fixed base points to platform points with
	// variable-length actuators.
	Rigid Kind = "rigid"
	// Sliding platforms move the base end of a fixed-length strut along a rail.
	Sliding Kind = "sliding"
)

var (
	ErrPointCount     = errors.New("geometry needs six base and six platform points")
	ErrDegenerateRail = errors.New("degenerate slider rail")
	ErrBounds         = errors.New("invalid actuator bounds")
	ErrInvertAxis     = errors.New("invert axis entries must be +1 or -1")
	ErrUnknownKind    = errors.New("unknown geometry kind")
)

// Rail is the orientation of one slider: the direction of travel is
// (SignX*sin(Angle), SignY*cos(Angle)) in the base plane.
type Rail struct {
	Angle float64 `yaml:"angle"`
	SignX float64 `yaml:"sign_x"`
	SignY float64 `yaml:"sign_y"`
}

// Direction returns the unit travel vector of the rail.
func (r Rail) Direction() r3.Vec {
	return r3.Vec{X: r.SignX * math.Sin(r.Angle), Y: r.SignY * math.Cos(r.Angle)}
}

// Geometry is loaded once and never mutated afterwards.
type Geometry struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	Base     []r3.Vec `yaml:"base"`
	Platform []r3.Vec `yaml:"platform"`

	InvertAxis    [6]float64 `yaml:"invert_axis"`
	SwapRollPitch bool       `yaml:"swap_roll_pitch"`
	Limits1DOF    [6]float64 `yaml:"limits_1dof"`
	Limits6DOF    [6]float64 `yaml:"limits_6dof"`

	// Actuator length bounds in mm. For rigid platforms these are muscle
	// lengths; for sliding platforms they are offsets from MinOffset.
	MinLength int `yaml:"min_length"`
	MaxLength int `yaml:"max_length"`

	// FixedHardwareLength is subtracted from the joint distance of a rigid
	// actuator to give the muscle length.
	FixedHardwareLength float64 `yaml:"fixed_hardware_length"`

	// ParkedLengths is where the platform rests while deactivated.
	ParkedLengths model.Lengths `yaml:"parked_lengths"`

	Rails       []Rail  `yaml:"rails,omitempty"`
	MinOffset   float64 `yaml:"min_offset,omitempty"`
	MaxOffset   float64 `yaml:"max_offset,omitempty"`
	StrutLength float64 `yaml:"strut_length,omitempty"`

	UnloadedWeight float64   `yaml:"unloaded_weight"`
	PayloadWeights []float64 `yaml:"payload_weights"`
}

// Range is the usable actuator travel in mm.
func (g *Geometry) Range() int {
	return g.MaxLength - g.MinLength
}

// RailOrigin returns the point on rail i at offset zero: the neutral
// platform point projected onto the base plane.
func (g *Geometry) RailOrigin(i int) r3.Vec {
	p := g.Platform[i]
	return r3.Vec{X: p.X, Y: p.Y}
}

// Validate reports construction-time faults.
func (g *Geometry) Validate() error {
	if len(g.Base) != model.NumActuators || len(g.Platform) != model.NumActuators {
		return fmt.Errorf("%w: got %d base, %d platform", ErrPointCount, len(g.Base), len(g.Platform))
	}
	for i, s := range g.InvertAxis {
		if s != 1 && s != -1 {
			return fmt.Errorf("%w: axis %s is %v", ErrInvertAxis, model.AxisNames[i], s)
		}
	}
	if g.MinLength >= g.MaxLength || g.MinLength < 0 {
		return fmt.Errorf("%w: min %d, max %d", ErrBounds, g.MinLength, g.MaxLength)
	}
	for i, v := range g.ParkedLengths {
		if v < g.MinLength || v > g.MaxLength {
			return fmt.Errorf("%w: parked length %d of actuator %d outside [%d, %d]", ErrBounds, v, i, g.MinLength, g.MaxLength)
		}
	}

	switch g.Kind {
	case Rigid:
		if g.FixedHardwareLength < 0 {
			return fmt.Errorf("%w: negative fixed hardware length", ErrBounds)
		}
		return nil
	case Sliding:
		return g.validateRails()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, g.Kind)
	}
}

func (g *Geometry) validateRails() error {
	if len(g.Rails) != model.NumActuators {
		return fmt.Errorf("%w: need six rails, got %d", ErrDegenerateRail, len(g.Rails))
	}
	for i, r := range g.Rails {
		if math.Abs(r.SignX) != 1 || math.Abs(r.SignY) != 1 {
			return fmt.Errorf("%w: rail %d signs (%v, %v)", ErrDegenerateRail, i, r.SignX, r.SignY)
		}
		if math.IsNaN(r.Angle) || math.IsInf(r.Angle, 0) {
			return fmt.Errorf("%w: rail %d angle %v", ErrDegenerateRail, i, r.Angle)
		}
	}
	if g.MinOffset < 0 || g.MinOffset >= g.MaxOffset {
		return fmt.Errorf("%w: offsets [%v, %v]", ErrDegenerateRail, g.MinOffset, g.MaxOffset)
	}
	if g.StrutLength <= 0 {
		return fmt.Errorf("%w: strut length %v", ErrDegenerateRail, g.StrutLength)
	}
	if got, want := g.Range(), int(math.Round(g.MaxOffset-g.MinOffset)); got != want {
		return fmt.Errorf("%w: length range %d does not match slider travel %d", ErrBounds, got, want)
	}
	return nil
}

// PayloadPerMuscle returns the load carried by each actuator when the
// payload at index level is seated.
func (g *Geometry) PayloadPerMuscle(level int) float64 {
	if len(g.PayloadWeights) == 0 {
		return g.UnloadedWeight / model.NumActuators
	}
	level = min(max(level, 0), len(g.PayloadWeights)-1)
	return (g.PayloadWeights[level] + g.UnloadedWeight) / model.NumActuators
}
