// Package sim tracks the link to the flight simulator: heartbeat liveness,
// the connection state machine, and the telemetry source contract.
package sim

// ConnState is the connection state of the simulator link.
type ConnState string

const (
	// StateWaitingHeartbeat means the heartbeat server is not answering.
	StateWaitingHeartbeat ConnState = "waiting_heartbeat"
	// StateWaitingSim means the heartbeat answers but the simulator is not running.
	StateWaitingSim ConnState = "waiting_sim"
	// StateWaitingData means the simulator runs but no telemetry is arriving.
	StateWaitingData ConnState = "waiting_data"
	// StateReceivingData is the only state in which telemetry is trusted.
	StateReceivingData ConnState = "receiving_data"
)

// ConnStates lists the connection states in order of progress.
var ConnStates = []ConnState{StateWaitingHeartbeat, StateWaitingSim, StateWaitingData, StateReceivingData}

// Index returns the ordinal of s in ConnStates, or -1.
func (s ConnState) Index() int {
	for i, v := range ConnStates {
		if v == s {
			return i
		}
	}
	return -1
}

// Level is a traffic-light status for operator displays.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelNoGo    Level = "nogo"
)

// Aircraft describes the aircraft reported by telemetry.
type Aircraft struct {
	Name   string `json:"name"`
	Status Level  `json:"status"`
}

// Status summarises the link for the UI.
type Status struct {
	State      ConnState `json:"state"`
	Connection Level     `json:"connection"`
	Data       Level     `json:"data"`
	Aircraft   Aircraft  `json:"aircraft"`
}
