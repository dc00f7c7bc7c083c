package kinematics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"simmotion/pkg/geometry"
	"simmotion/pkg/model"
)

const (
	searchIterations = 9
	searchFirstStep  = 64
)

// SlidingSolver handles struts whose base end rides along a rail.
type SlidingSolver struct {
	geom *geometry.Geometry
}

// Geometry implements Solver.
func (s *SlidingSolver) Geometry() *geometry.Geometry { return s.geom }

// Solve returns slider offsets measured from MinOffset.
func (s *SlidingSolver) Solve(t model.Transform, intensity float64) (model.Pose, model.Lengths) {
	pose := PoseOf(s.geom, t.Scale(intensity))

	var lengths model.Lengths
	for i, p := range pose {
		d := s.Offset(i, p)
		lengths[i] = int(math.Round(d - s.geom.MinOffset))
	}
	return pose, lengths
}

// RailPoint returns the position of slider i at offset d.
func (s *SlidingSolver) RailPoint(i int, d float64) r3.Vec {
	return r3.Add(s.geom.RailOrigin(i), r3.Scale(d, s.geom.Rails[i].Direction()))
}

// Offset finds the rail offset at which slider i sits exactly one strut
// length from p. The search starts mid rail and moves by a step that halves
// each iteration, stopping on an exact (rounded) match or at a rail end.
func (s *SlidingSolver) Offset(i int, p r3.Vec) float64 {
	lo, hi := s.geom.MinOffset, s.geom.MaxOffset
	strut := math.Round(s.geom.StrutLength)

	d := (lo + hi) / 2
	step := float64(searchFirstStep)
	for range searchIterations {
		reach := math.Round(r3.Norm(r3.Sub(s.RailPoint(i, d), p)))
		diff := strut - reach
		if diff == 0 {
			break
		}
		if diff < 0 {
			d -= step
		} else {
			d += step
		}
		if d <= lo {
			d = lo
			break
		}
		if d >= hi {
			d = hi
			break
		}
		if step >= 2 {
			step /= 2
		}
	}
	return d
}
