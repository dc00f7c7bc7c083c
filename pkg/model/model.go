// Package model holds the value types shared by the motion pipeline.
package model

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NumActuators is the actuator count of every supported platform.
const NumActuators = 6

// Axis indices into a Transform.
const (
	Surge = iota
	Sway
	Heave
	Roll
	Pitch
	Yaw
)

// AxisNames lists the axes in Transform order.
var AxisNames = [6]string{"surge", "sway", "heave", "roll", "pitch", "yaw"}

// Transform is a 6-DOF request: surge, sway, heave in mm and roll, pitch, yaw
// in radians. Before regulation the same type carries normalized -1..1 values.
type Transform [6]float64

// Pose holds the platform attachment points after rotation and translation.
type Pose [NumActuators]r3.Vec

// Lengths holds one actuator solution in mm.
type Lengths [NumActuators]int

// Scale multiplies every axis by k.
func (t Transform) Scale(k float64) Transform {
	for i := range t {
		t[i] *= k
	}
	return t
}

// Mul returns the elementwise product of t and v.
func (t Transform) Mul(v [6]float64) Transform {
	for i := range t {
		t[i] *= v[i]
	}
	return t
}

// Inverted applies an axis inversion vector of +1/-1 signs.
func (t Transform) Inverted(signs [6]float64) Transform {
	return t.Mul(signs)
}

// SwapRollPitch exchanges surge with sway and roll with pitch.
func (t Transform) SwapRollPitch() Transform {
	t[Surge], t[Sway] = t[Sway], t[Surge]
	t[Roll], t[Pitch] = t[Pitch], t[Roll]
	return t
}

// Sanitized replaces non-finite values with zero and clamps each axis to
// the normalized range [-1, 1].
func (t Transform) Sanitized() Transform {
	for i, v := range t {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			t[i] = 0
		case v > 1:
			t[i] = 1
		case v < -1:
			t[i] = -1
		}
	}
	return t
}

// Floats converts lengths to float64 for interpolation.
func (l Lengths) Floats() [NumActuators]float64 {
	var f [NumActuators]float64
	for i, v := range l {
		f[i] = float64(v)
	}
	return f
}

// Clamp limits each length to [lo, hi].
func (l Lengths) Clamp(lo, hi int) Lengths {
	for i, v := range l {
		l[i] = min(max(v, lo), hi)
	}
	return l
}

// LengthsFromFloats rounds each value to the nearest mm.
func LengthsFromFloats(f [NumActuators]float64) Lengths {
	var l Lengths
	for i, v := range f {
		l[i] = int(math.Round(v))
	}
	return l
}

// Uniform returns lengths with every actuator set to v.
func Uniform(v int) Lengths {
	var l Lengths
	for i := range l {
		l[i] = v
	}
	return l
}
