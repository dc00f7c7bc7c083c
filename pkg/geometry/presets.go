package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"simmotion/pkg/model"
)

// Preset names accepted by ByName.
const (
	PresetChair  = "chair"
	PresetSlider = "slider"
)

// ByName returns a built-in geometry.
func ByName(name string) (*Geometry, error) {
	switch name {
	case PresetChair:
		return Chair(), nil
	case PresetSlider:
		return Slider(), nil
	default:
		return nil, fmt.Errorf("%w: no preset named %q", ErrUnknownKind, name)
	}
}

const (
	chairMuscleMax    = 800
	chairMuscleMin    = chairMuscleMax * 3 / 4
	chairFixedLength  = 200
	chairHeightSweeps = 1000
)

// Chair is the suspended pneumatic-muscle chair. The platform hangs below
// the base, so platform z is negative.
func Chair() *Geometry {
	base := mirrorHalf([]r3.Vec{
		{X: 379.8, Y: -515.1},
		{X: 258.7, Y: -585.4},
		{X: -636.0, Y: -71.4},
	})
	half := []r3.Vec{
		{X: 617.0, Y: -170.0},
		{X: -256.2, Y: -586.5},
		{X: -377.6, Y: -516.7},
	}

	z := chairMidHeight(base, half)
	for i := range half {
		half[i].Z = z
	}

	deg := math.Pi / 180
	return &Geometry{
		Name:                "Chair V3",
		Kind:                Rigid,
		Base:                base,
		Platform:            mirrorHalf(half),
		InvertAxis:          [6]float64{1, 1, -1, -1, 1, 1},
		Limits1DOF:          [6]float64{90, 90, 100, 12 * deg, 10 * deg, 12 * deg},
		Limits6DOF:          [6]float64{80, 80, 80, 10 * deg, 10 * deg, 10 * deg},
		MinLength:           chairMuscleMin,
		MaxLength:           chairMuscleMax,
		FixedHardwareLength: chairFixedLength,
		ParkedLengths:       model.Uniform(chairMuscleMax),
		UnloadedWeight:      25,
		PayloadWeights:      []float64{50, 60, 150},
	}
}

// chairMidHeight sweeps the platform height from full vertical extension up
// to the base plane and returns the z whose mean muscle length is closest to
// the middle of the muscle range.
func chairMidHeight(base, half []r3.Vec) float64 {
	low := -float64(chairMuscleMax + chairFixedLength)
	high := 0.0
	target := float64(chairMuscleMax+chairMuscleMin) / 2

	best, bestErr := low, math.Inf(1)
	for i := range chairHeightSweeps {
		z := low + (high-low)*float64(i)/float64(chairHeightSweeps-1)
		pts := make([]r3.Vec, len(half))
		for j, p := range half {
			pts[j] = r3.Vec{X: p.X, Y: p.Y, Z: z}
		}
		platform := mirrorHalf(pts)

		var sum float64
		for j := range platform {
			sum += r3.Norm(r3.Sub(platform[j], base[j])) - chairFixedLength
		}
		if e := math.Abs(sum/float64(len(platform)) - target); e < bestErr {
			best, bestErr = z, e
		}
	}
	return best
}

// mirrorHalf appends the three points reflected across the x axis in
// reverse order, giving the usual 0..5 winding.
func mirrorHalf(half []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, 0, 2*len(half))
	out = append(out, half...)
	for i := len(half) - 1; i >= 0; i-- {
		p := half[i]
		out = append(out, r3.Vec{X: p.X, Y: -p.Y, Z: p.Z})
	}
	return out
}

const (
	sliderInnerJoint = 383
	sliderOuterJoint = 483
	sliderMidHeight  = 302
	sliderMinOffset  = 130
	sliderMaxOffset  = 330
	sliderStrut      = 400
)

// Slider is the six-rail sliding actuator platform.
func Slider() *Geometry {
	a := -2 * math.Pi / 3
	midOffset := float64(sliderMinOffset+sliderMaxOffset) / 2

	upperInner := r3.Vec{X: sliderInnerJoint, Z: sliderMidHeight}
	upperOuter := r3.Vec{X: sliderOuterJoint, Z: sliderMidHeight}
	lowerInner := r3.Vec{X: sliderInnerJoint, Y: -midOffset}
	lowerOuter := r3.Vec{X: sliderOuterJoint, Y: midOffset}

	deg := math.Pi / 180
	return &Geometry{
		Name: "Sliding Actuators",
		Kind: Sliding,
		Platform: []r3.Vec{
			upperInner,
			rotateZ(upperOuter, a),
			rotateZ(upperInner, a),
			rotateZ(upperOuter, 2*a),
			rotateZ(upperInner, 2*a),
			upperOuter,
		},
		Base: []r3.Vec{
			lowerInner,
			rotateZ(lowerOuter, a),
			rotateZ(lowerInner, a),
			rotateZ(lowerOuter, 2*a),
			rotateZ(lowerInner, 2*a),
			lowerOuter,
		},
		Rails: []Rail{
			{Angle: 0, SignX: 1, SignY: -1},
			{Angle: a, SignX: -1, SignY: 1},
			{Angle: a, SignX: 1, SignY: -1},
			{Angle: 2 * a, SignX: -1, SignY: 1},
			{Angle: 2 * a, SignX: 1, SignY: -1},
			{Angle: 0, SignX: 1, SignY: 1},
		},
		InvertAxis:    [6]float64{1, 1, -1, -1, -1, -1},
		Limits1DOF:    [6]float64{60, 60, 75, 8 * deg, 12 * deg, 12 * deg},
		Limits6DOF:    [6]float64{40, 40, 50, 6 * deg, 6 * deg, 6 * deg},
		MinLength:     0,
		MaxLength:     sliderMaxOffset - sliderMinOffset,
		MinOffset:     sliderMinOffset,
		MaxOffset:     sliderMaxOffset,
		StrutLength:   sliderStrut,
		ParkedLengths: model.Uniform(0),
	}
}

func rotateZ(p r3.Vec, rad float64) r3.Vec {
	s, c := math.Sincos(rad)
	return r3.Vec{X: c*p.X - s*p.Y, Y: s*p.X + c*p.Y, Z: p.Z}
}
