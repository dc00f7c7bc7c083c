package sim

import (
	"errors"
	"strings"
	"time"

	"simmotion/pkg/model"
)

var (
	// ErrNotConnected is returned when a command requires live telemetry.
	ErrNotConnected = errors.New("simulator not connected")
)

// DefaultAircraftName is reported until telemetry names the aircraft.
const DefaultAircraftName = "Aircraft"

// Frame is one decoded telemetry sample, normalised to roughly [-1, 1].
type Frame struct {
	Transform model.Transform
	ICAO      string
	At        time.Time
}

// Source is the data side of a simulator adapter. Poll must not block.
type Source interface {
	// Poll returns the newest frame received since the last call.
	Poll() (Frame, bool)
	// Send writes a command to the simulator plugin.
	Send(cmd string) error
	// Close releases sockets.
	Close() error
}

// Prober reports heartbeat liveness. Query must not block.
type Prober interface {
	Query(now time.Time) (ok, running bool)
}

// AircraftSupported reports whether icao starts with one of the prefixes.
// An empty list supports every aircraft.
func AircraftSupported(icao string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	icao = strings.ToUpper(strings.TrimSpace(icao))
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(icao, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}
