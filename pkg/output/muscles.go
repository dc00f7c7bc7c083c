package output

import (
	"simmotion/pkg/d2p"
	"simmotion/pkg/model"
)

// Muscles converts muscle lengths to pressures and forwards them to a sink.
type Muscles struct {
	conv    *d2p.Converter
	sink    Sink
	load    float64
	lengths model.Lengths
}

// NewMuscles pairs a converter with a sink at the given payload weight per muscle.
func NewMuscles(conv *d2p.Converter, sink Sink, load float64) *Muscles {
	return &Muscles{conv: conv, sink: sink, load: load}
}

// SetLoad changes the per-muscle payload weight used for table interpolation.
func (m *Muscles) SetLoad(load float64) { m.load = load }

// Load returns the per-muscle payload weight.
func (m *Muscles) Load() float64 { return m.load }

// SetLengths converts and sends. The pressures are returned even when the
// send fails.
func (m *Muscles) SetLengths(l model.Lengths) ([model.NumActuators]int, error) {
	p := m.conv.Convert(l, m.load)
	m.lengths = l
	return p, m.sink.Send(p)
}

// Lengths returns the last commanded lengths.
func (m *Muscles) Lengths() model.Lengths { return m.lengths }

// Pressures returns the last converted pressures.
func (m *Muscles) Pressures() [model.NumActuators]int { return m.conv.Pressures() }

// ResetHysteresis clears the converter's branch history.
func (m *Muscles) ResetHysteresis() { m.conv.Reset() }

// Close closes the sink.
func (m *Muscles) Close() error { return m.sink.Close() }

// Passive records lengths for platforms driven without pressure tables,
// such as the sliding platform in virtual mode. Pressures are always zero.
type Passive struct {
	load    float64
	lengths model.Lengths
}

// SetLoad records the per-muscle payload weight.
func (p *Passive) SetLoad(load float64) { p.load = load }

// Load returns the per-muscle payload weight.
func (p *Passive) Load() float64 { return p.load }

// SetLengths records l.
func (p *Passive) SetLengths(l model.Lengths) ([model.NumActuators]int, error) {
	p.lengths = l
	return [model.NumActuators]int{}, nil
}

// Lengths returns the last commanded lengths.
func (p *Passive) Lengths() model.Lengths { return p.lengths }

// ResetHysteresis is a no-op.
func (p *Passive) ResetHysteresis() {}
