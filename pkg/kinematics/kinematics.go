// Package kinematics converts 6-DOF transforms into actuator lengths.
package kinematics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"simmotion/pkg/geometry"
	"simmotion/pkg/model"
)

// Solver is the inverse kinematics contract shared by every geometry kind.
// Solve never fails: the geometry is validated when the solver is built.
type Solver interface {
	Solve(t model.Transform, intensity float64) (model.Pose, model.Lengths)
	Geometry() *geometry.Geometry
}

// New builds the solver matching the geometry kind.
func New(g *geometry.Geometry) (Solver, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	switch g.Kind {
	case geometry.Sliding:
		return &SlidingSolver{geom: g}, nil
	default:
		return &RigidSolver{geom: g}, nil
	}
}

// Rotation returns Rz(yaw)·Ry(pitch)·Rx(roll) written out term by term.
func Rotation(roll, pitch, yaw float64) *r3.Mat {
	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)

	return r3.NewMat([]float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	})
}

// PoseOf translates each platform point by the transform's surge, sway and
// heave and then rotates it by the transform's roll, pitch and yaw.
func PoseOf(g *geometry.Geometry, t model.Transform) model.Pose {
	rot := Rotation(t[model.Roll], t[model.Pitch], t[model.Yaw])
	shift := r3.Vec{X: t[model.Surge], Y: t[model.Sway], Z: t[model.Heave]}

	var pose model.Pose
	for i, p := range g.Platform {
		pose[i] = rot.MulVec(r3.Add(p, shift))
	}
	return pose
}

// Percents maps lengths onto 0..100 of the actuator travel.
func Percents(g *geometry.Geometry, l model.Lengths) [model.NumActuators]float64 {
	var out [model.NumActuators]float64
	span := float64(g.Range())
	for i, v := range l {
		out[i] = float64(v-g.MinLength) / span * 100
	}
	return out
}

// RigidSolver handles fixed base attachment points.
type RigidSolver struct {
	geom *geometry.Geometry
}

// Geometry implements Solver.
func (s *RigidSolver) Geometry() *geometry.Geometry { return s.geom }

// Solve returns joint distance minus fixed hardware length for each
// actuator. Lengths are not clamped.
func (s *RigidSolver) Solve(t model.Transform, intensity float64) (model.Pose, model.Lengths) {
	pose := PoseOf(s.geom, t.Scale(intensity))

	var lengths model.Lengths
	for i, p := range pose {
		d := r3.Norm(r3.Sub(p, s.geom.Base[i]))
		lengths[i] = int(math.Round(d - s.geom.FixedHardwareLength))
	}
	return pose, lengths
}
