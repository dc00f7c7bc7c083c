package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"simmotion/pkg/geometry"
	"simmotion/pkg/model"
)

// column builds a rigid geometry whose six actuators all run from the
// origin straight up to (0, 0, 100).
func column(fixed float64) *geometry.Geometry {
	g := &geometry.Geometry{
		Name:                "column",
		Kind:                geometry.Rigid,
		InvertAxis:          [6]float64{1, 1, 1, 1, 1, 1},
		MinLength:           0,
		MaxLength:           200,
		FixedHardwareLength: fixed,
	}
	for range model.NumActuators {
		g.Base = append(g.Base, r3.Vec{})
		g.Platform = append(g.Platform, r3.Vec{Z: 100})
	}
	return g
}

func TestRotation_ClosedForm(t *testing.T) {
	angles := [][3]float64{
		{0, 0, 0},
		{0.1, -0.2, 0.3},
		{-0.21, 0.17, 1.2},
		{math.Pi / 2, 0, 0},
	}
	for _, a := range angles {
		roll, pitch, yaw := a[0], a[1], a[2]
		m := Rotation(roll, pitch, yaw)

		cr, sr := math.Cos(roll), math.Sin(roll)
		cp, sp := math.Cos(pitch), math.Sin(pitch)
		cy, sy := math.Cos(yaw), math.Sin(yaw)
		want := [3][3]float64{
			{cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr},
			{sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr},
			{-sp, cp * sr, cp * cr},
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if got := m.At(i, j); got != want[i][j] {
					t.Errorf("Rotation(%v)[%d][%d] = %v, want %v", a, i, j, got, want[i][j])
				}
			}
		}
	}
}

func TestRotation_Composition(t *testing.T) {
	roll, pitch, yaw := 0.3, -0.4, 0.5
	rx := r3.NewMat([]float64{1, 0, 0, 0, math.Cos(roll), -math.Sin(roll), 0, math.Sin(roll), math.Cos(roll)})
	ry := r3.NewMat([]float64{math.Cos(pitch), 0, math.Sin(pitch), 0, 1, 0, -math.Sin(pitch), 0, math.Cos(pitch)})
	rz := r3.NewMat([]float64{math.Cos(yaw), -math.Sin(yaw), 0, math.Sin(yaw), math.Cos(yaw), 0, 0, 0, 1})

	v := r3.Vec{X: 1, Y: 2, Z: 3}
	want := rz.MulVec(ry.MulVec(rx.MulVec(v)))
	got := Rotation(roll, pitch, yaw).MulVec(v)
	assert.InDelta(t, want.X, got.X, 1e-12)
	assert.InDelta(t, want.Y, got.Y, 1e-12)
	assert.InDelta(t, want.Z, got.Z, 1e-12)
}

func TestRigid_ZeroTransform(t *testing.T) {
	for _, name := range []string{geometry.PresetChair, geometry.PresetSlider} {
		t.Run(name, func(t *testing.T) {
			g, err := geometry.ByName(name)
			require.NoError(t, err)
			s, err := New(g)
			require.NoError(t, err)

			pose, _ := s.Solve(model.Transform{}, 1.0)
			for i := range pose {
				assert.InDelta(t, g.Platform[i].X, pose[i].X, 1e-9)
				assert.InDelta(t, g.Platform[i].Y, pose[i].Y, 1e-9)
				assert.InDelta(t, g.Platform[i].Z, pose[i].Z, 1e-9)
			}
		})
	}
}

func TestRigid_EndToEnd(t *testing.T) {
	s, err := New(column(30))
	require.NoError(t, err)

	pose, lengths := s.Solve(model.Transform{}, 1.0)
	assert.Equal(t, r3.Vec{Z: 100}, pose[0])
	assert.Equal(t, model.Uniform(70), lengths)
}

func TestRigid_RotationInvariant(t *testing.T) {
	s, err := New(column(0))
	require.NoError(t, err)

	tests := []struct {
		name string
		t    model.Transform
	}{
		{"roll", model.Transform{0, 0, 0, 0.4, 0, 0}},
		{"pitch", model.Transform{0, 0, 0, 0, -0.3, 0}},
		{"yaw", model.Transform{0, 0, 0, 0, 0, 1.1}},
		{"combined", model.Transform{0, 0, 0, 0.2, 0.25, -0.7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, lengths := s.Solve(tt.t, 1.0)
			assert.Equal(t, model.Uniform(100), lengths)
		})
	}
}

func TestRigid_TranslateThenRotate(t *testing.T) {
	s, err := New(column(0))
	require.NoError(t, err)

	// Heave +50 then pitch 90 degrees swings (0,0,150) onto the x axis.
	pose, _ := s.Solve(model.Transform{0, 0, 50, 0, math.Pi / 2, 0}, 1.0)
	assert.InDelta(t, 150, pose[0].X, 1e-9)
	assert.InDelta(t, 0, pose[0].Z, 1e-9)
}

func TestRigid_Intensity(t *testing.T) {
	s, err := New(column(0))
	require.NoError(t, err)

	_, full := s.Solve(model.Transform{0, 0, 40, 0, 0, 0}, 1.0)
	_, half := s.Solve(model.Transform{0, 0, 40, 0, 0, 0}, 0.5)
	assert.Equal(t, model.Uniform(140), full)
	assert.Equal(t, model.Uniform(120), half)
}

func TestRigid_NoClamp(t *testing.T) {
	s, err := New(column(0))
	require.NoError(t, err)

	_, lengths := s.Solve(model.Transform{0, 0, 500, 0, 0, 0}, 1.0)
	assert.Equal(t, model.Uniform(600), lengths, "solver reports lengths beyond MaxLength")
}

func TestNew_RejectsBadGeometry(t *testing.T) {
	g := column(0)
	g.Platform = g.Platform[:4]
	_, err := New(g)
	assert.ErrorIs(t, err, geometry.ErrPointCount)
}

func TestPercents(t *testing.T) {
	g := geometry.Chair()
	got := Percents(g, model.Lengths{600, 700, 800, 650, 750, 600})
	assert.Equal(t, [6]float64{0, 50, 100, 25, 75, 0}, got)
}
