package core

import (
	"time"

	"simmotion/pkg/model"
	"simmotion/pkg/sim"
)

// Connection is the simulator link as seen by the tick.
type Connection interface {
	Handle(now time.Time) (sim.Frame, bool)
	State() sim.ConnState
	Status() sim.Status
	Run() error
	Pause() error
	SetFlightMode(mode int) error
	SetAssistLevel(level int) error
}

// Actuators turns commanded lengths into hardware output.
type Actuators interface {
	SetLengths(l model.Lengths) ([model.NumActuators]int, error)
	SetLoad(load float64)
	Load() float64
	ResetHysteresis()
}

// Echoer mirrors each tick to a visualiser.
type Echoer interface {
	Send(t model.Transform, lengths model.Lengths, pose model.Pose) error
}

// Publisher fans pipeline output out to operator clients.
type Publisher interface {
	Publish(kind string, payload any)
}

// Settings persists operator choices between runs.
type Settings interface {
	SaveAxisGains(g [6]float64)
	SaveMasterGain(g float64)
	SaveIntensity(v int)
	SaveLoadLevel(v int)
	SaveFlightMode(v int)
	SaveAssistLevel(v int)
}
