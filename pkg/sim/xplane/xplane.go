// Package xplane adapts the X-Plane telemetry plugin to sim.Source.
package xplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"simmotion/pkg/model"
	"simmotion/pkg/sim"
	"simmotion/pkg/udp"
)

// Default ports of the telemetry plugin and heartbeat server.
const (
	TelemetryPort = 10022
	CommandPort   = TelemetryPort + 1
	HeartbeatPort = 10030
)

// TelemetryHeader tags telemetry datagrams.
const TelemetryHeader = "xplane_telemetry"

var (
	// NormFactors scale raw telemetry into the normalised transform. A
	// negative factor inverts the axis.
	NormFactors = [model.NumActuators]float64{1.2, 1.2, 0.5, -3.0, 2.2, -0.3}
	// WashoutTimes are the per-axis washout times in seconds.
	WashoutTimes = [model.NumActuators]float64{12, 12, 12, 0, 0, 0}
)

// ErrBadHeader is returned for datagrams that are not telemetry.
var ErrBadHeader = errors.New("not an xplane telemetry packet")

// Packet is the JSON telemetry datagram sent by the plugin.
type Packet struct {
	Header string  `json:"header"`
	GAxil  float64 `json:"g_axil"`
	GSide  float64 `json:"g_side"`
	GNrml  float64 `json:"g_nrml"`
	Phi    float64 `json:"phi"`
	Theta  float64 `json:"theta"`
	Rrad   float64 `json:"Rrad"`
	ICAO   string  `json:"icao"`
}

// Transform scales the packet into surge, sway, heave, roll, pitch, yaw.
func (p Packet) Transform(factors [model.NumActuators]float64) model.Transform {
	raw := model.Transform{p.GAxil, p.GSide, p.GNrml, p.Phi, p.Theta, p.Rrad}
	return raw.Mul(factors)
}

// Decode parses one telemetry datagram.
func Decode(data []byte, factors [model.NumActuators]float64) (sim.Frame, error) {
	var p Packet
	if err := json.Unmarshal(data, &p); err != nil {
		return sim.Frame{}, fmt.Errorf("failed to decode telemetry: %w", err)
	}
	if p.Header != "" && p.Header != TelemetryHeader {
		return sim.Frame{}, fmt.Errorf("%w: header %q", ErrBadHeader, p.Header)
	}
	icao := p.ICAO
	if icao == "" {
		icao = sim.DefaultAircraftName
	}
	return sim.Frame{Transform: p.Transform(factors), ICAO: icao}, nil
}

// Config addresses the plugin.
type Config struct {
	// Host is the simulator PC. When empty, commands go to the sender of
	// the most recent telemetry datagram.
	Host          string
	TelemetryPort int
	CommandPort   int
	Factors       [model.NumActuators]float64
}

// DefaultConfig returns the stock ports and factors.
func DefaultConfig() Config {
	return Config{TelemetryPort: TelemetryPort, CommandPort: CommandPort, Factors: NormFactors}
}

// Telemetry receives plugin datagrams and sends commands back.
type Telemetry struct {
	cfg     Config
	rx      *udp.Listener
	cmdAddr *net.UDPAddr
}

// Listen binds the telemetry port.
func Listen(ctx context.Context, cfg Config) (*Telemetry, error) {
	rx, err := udp.Listen(ctx, ":"+strconv.Itoa(cfg.TelemetryPort), udp.DefaultQueueDepth)
	if err != nil {
		return nil, err
	}
	return NewTelemetry(cfg, rx)
}

// NewTelemetry wraps a bound listener.
func NewTelemetry(cfg Config, rx *udp.Listener) (*Telemetry, error) {
	t := &Telemetry{cfg: cfg, rx: rx}
	if cfg.Host != "" {
		if err := t.SetHost(cfg.Host); err != nil {
			rx.Close()
			return nil, err
		}
	}
	return t, nil
}

// SetHost points the command channel at host.
func (t *Telemetry) SetHost(host string) error {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(t.cfg.CommandPort)))
	if err != nil {
		return fmt.Errorf("failed to resolve simulator %s: %w", host, err)
	}
	t.cmdAddr = addr
	return nil
}

// Poll decodes the newest queued datagram.
func (t *Telemetry) Poll() (sim.Frame, bool) {
	d, ok := t.rx.Latest()
	if !ok {
		return sim.Frame{}, false
	}
	f, err := Decode(d.Data, t.cfg.Factors)
	if err != nil {
		slog.Warn("Dropping telemetry datagram", "from", d.From, "error", err)
		return sim.Frame{}, false
	}
	f.At = d.At
	if t.cfg.Host == "" && d.From != nil {
		t.cmdAddr = &net.UDPAddr{IP: d.From.IP, Port: t.cfg.CommandPort}
	}
	return f, true
}

// Send writes cmd to the plugin command port.
func (t *Telemetry) Send(cmd string) error {
	if t.cmdAddr == nil {
		return fmt.Errorf("%w: simulator address unknown", sim.ErrNotConnected)
	}
	return t.rx.SendTo([]byte(cmd), t.cmdAddr)
}

// Close releases the socket.
func (t *Telemetry) Close() error { return t.rx.Close() }
