// Package output delivers actuator commands: pressures to the Festo
// valve controller and pose echoes to visualisers.
package output

import (
	"sync"

	"simmotion/pkg/model"
)

// Sink consumes one pressure vector per tick.
type Sink interface {
	Send(pressures [model.NumActuators]int) error
	Close() error
}

// VirtualSink records pressures without any hardware attached.
type VirtualSink struct {
	mu    sync.Mutex
	last  [model.NumActuators]int
	count int
}

// NewVirtualSink returns an empty recorder.
func NewVirtualSink() *VirtualSink { return &VirtualSink{} }

// Send records p.
func (v *VirtualSink) Send(p [model.NumActuators]int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = p
	v.count++
	return nil
}

// Last returns the most recent pressures and how many sends occurred.
func (v *VirtualSink) Last() ([model.NumActuators]int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last, v.count
}

// Close is a no-op.
func (v *VirtualSink) Close() error { return nil }
