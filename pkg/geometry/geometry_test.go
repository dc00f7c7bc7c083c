package geometry

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPresets_Validate(t *testing.T) {
	for _, name := range []string{PresetChair, PresetSlider} {
		t.Run(name, func(t *testing.T) {
			g, err := ByName(name)
			require.NoError(t, err)
			assert.NoError(t, g.Validate())
		})
	}
}

func TestByName_Unknown(t *testing.T) {
	_, err := ByName("hexapod")
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ByName(hexapod) error = %v, want ErrUnknownKind", err)
	}
}

func TestValidate_Faults(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Geometry)
		want   error
	}{
		{"five base points", func(g *Geometry) { g.Base = g.Base[:5] }, ErrPointCount},
		{"seven platform points", func(g *Geometry) { g.Platform = append(g.Platform, r3.Vec{}) }, ErrPointCount},
		{"zero invert sign", func(g *Geometry) { g.InvertAxis[2] = 0 }, ErrInvertAxis},
		{"inverted bounds", func(g *Geometry) { g.MinLength, g.MaxLength = 800, 600 }, ErrBounds},
		{"parked outside bounds", func(g *Geometry) { g.ParkedLengths[0] = 900 }, ErrBounds},
		{"unknown kind", func(g *Geometry) { g.Kind = "cable" }, ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Chair()
			tt.mutate(g)
			if err := g.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidate_SliderFaults(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Geometry)
		want   error
	}{
		{"missing rail", func(g *Geometry) { g.Rails = g.Rails[:5] }, ErrDegenerateRail},
		{"zero sign", func(g *Geometry) { g.Rails[3].SignY = 0 }, ErrDegenerateRail},
		{"nan angle", func(g *Geometry) { g.Rails[1].Angle = math.NaN() }, ErrDegenerateRail},
		{"empty travel", func(g *Geometry) { g.MaxOffset = g.MinOffset }, ErrDegenerateRail},
		{"no strut", func(g *Geometry) { g.StrutLength = 0 }, ErrDegenerateRail},
		{"range mismatch", func(g *Geometry) { g.MaxLength = 150 }, ErrBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Slider()
			tt.mutate(g)
			if err := g.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestChair_MidHeight(t *testing.T) {
	g := Chair()
	var sum float64
	for i := range g.Platform {
		sum += r3.Norm(r3.Sub(g.Platform[i], g.Base[i])) - g.FixedHardwareLength
	}
	mean := sum / float64(len(g.Platform))
	assert.InDelta(t, 700, mean, 2, "neutral muscle length should sit mid range")
	assert.Less(t, g.Platform[0].Z, 0.0, "suspended platform hangs below the base")
}

func TestChair_Mirrored(t *testing.T) {
	g := Chair()
	for i := 0; i < 3; i++ {
		a, b := g.Base[i], g.Base[5-i]
		assert.Equal(t, a.X, b.X)
		assert.Equal(t, a.Y, -b.Y)
	}
}

func TestSlider_RailsPassThroughMidpoints(t *testing.T) {
	g := Slider()
	mid := (g.MinOffset + g.MaxOffset) / 2
	for i, r := range g.Rails {
		p := r3.Add(g.RailOrigin(i), r3.Scale(mid, r.Direction()))
		assert.InDelta(t, g.Base[i].X, p.X, 1e-9, "rail %d x", i)
		assert.InDelta(t, g.Base[i].Y, p.Y, 1e-9, "rail %d y", i)
	}
}

func TestPayloadPerMuscle(t *testing.T) {
	g := Chair()
	assert.InDelta(t, (60.0+25)/6, g.PayloadPerMuscle(1), 1e-9)
	assert.InDelta(t, (150.0+25)/6, g.PayloadPerMuscle(9), 1e-9, "level saturates")
	assert.InDelta(t, 0.0, Slider().PayloadPerMuscle(0), 1e-9)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slider.yaml")
	require.NoError(t, Save(path, Slider()))

	g, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, Sliding, g.Kind)
	assert.Equal(t, Slider().Rails, g.Rails)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
