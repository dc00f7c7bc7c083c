// Package mocksim is a stand-in for the simulator PC: it answers heartbeat
// pings, accepts plugin commands and streams synthetic telemetry.
package mocksim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"simmotion/pkg/sim"
	"simmotion/pkg/sim/xplane"
	"simmotion/pkg/udp"
)

const (
	// Phases of the scripted flight.
	PhaseParked  = "PARKED"
	PhaseTaxi    = "TAXI"
	PhaseTakeoff = "TAKEOFF"
	PhaseCruise  = "CRUISE"

	defaultRate = 50 * time.Millisecond
)

// Config holds addresses and timing for the mock simulator.
type Config struct {
	// TelemetryAddr receives telemetry, e.g. "127.0.0.1:10022".
	TelemetryAddr string
	// CommandAddr and HeartbeatAddr are bound locally, e.g. ":10023".
	CommandAddr   string
	HeartbeatAddr string
	Rate          time.Duration
	ICAO          string

	DurationParked  time.Duration
	DurationTaxi    time.Duration
	DurationTakeoff time.Duration
}

// DefaultConfig serves the standard X-Plane ports on localhost.
func DefaultConfig() Config {
	return Config{
		TelemetryAddr:   "127.0.0.1:" + strconv.Itoa(xplane.TelemetryPort),
		CommandAddr:     ":" + strconv.Itoa(xplane.CommandPort),
		HeartbeatAddr:   ":" + strconv.Itoa(xplane.HeartbeatPort),
		Rate:            defaultRate,
		ICAO:            "C172",
		DurationParked:  5 * time.Second,
		DurationTaxi:    10 * time.Second,
		DurationTakeoff: 15 * time.Second,
	}
}

type scenarioStep struct {
	Phase    string
	Duration time.Duration
}

// MockSim serves the simulator side of the link.
type MockSim struct {
	mu        sync.Mutex
	cfg       Config
	pkt       xplane.Packet
	running   bool
	streaming bool
	paused    bool
	assist    int
	mode      int
	commands  []string

	scenario   []scenarioStep
	stepIdx    int
	stepStart  time.Time
	phaseStart time.Time

	hb     *udp.Listener
	cmd    *udp.Listener
	out    *net.UDPAddr
	resp   *sim.Responder
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New binds the command and heartbeat ports and starts the physics loop.
func New(ctx context.Context, cfg Config) (*MockSim, error) {
	if cfg.Rate <= 0 {
		cfg.Rate = defaultRate
	}
	out, err := net.ResolveUDPAddr("udp4", cfg.TelemetryAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve telemetry address: %w", err)
	}
	hb, err := udp.Listen(ctx, cfg.HeartbeatAddr, udp.DefaultQueueDepth)
	if err != nil {
		return nil, err
	}
	cmd, err := udp.Listen(ctx, cfg.CommandAddr, udp.DefaultQueueDepth)
	if err != nil {
		hb.Close()
		return nil, err
	}

	m := &MockSim{
		cfg:     cfg,
		running: true,
		hb:      hb,
		cmd:     cmd,
		out:     out,
		stopCh:  make(chan struct{}),
		pkt:     xplane.Packet{Header: xplane.TelemetryHeader, GNrml: 1, ICAO: cfg.ICAO},
	}
	m.resp = sim.NewResponder(hb, sim.DefaultMarker, "mocksim", m.Running)
	m.initScenario(time.Now())

	m.wg.Add(1)
	go m.physicsLoop()
	return m, nil
}

// HeartbeatAddr returns the bound heartbeat address.
func (m *MockSim) HeartbeatAddr() *net.UDPAddr { return m.hb.LocalAddr() }

// CommandAddr returns the bound command address.
func (m *MockSim) CommandAddr() *net.UDPAddr { return m.cmd.LocalAddr() }

// SetRunning simulates the simulator process starting or stopping.
func (m *MockSim) SetRunning(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = v
	if !v {
		m.streaming = false
	}
}

// Running reports whether the simulated process is up.
func (m *MockSim) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Paused reports whether a Pause command is in effect.
func (m *MockSim) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Streaming reports whether telemetry is being sent.
func (m *MockSim) Streaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaming
}

// Commands returns the commands received so far.
func (m *MockSim) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// Phase returns the current scripted phase.
func (m *MockSim) Phase() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scenario[m.stepIdx].Phase
}

// Close stops the physics loop and releases the sockets.
func (m *MockSim) Close() error {
	close(m.stopCh)
	m.wg.Wait()
	m.hb.Close()
	m.cmd.Close()
	return nil
}

func (m *MockSim) physicsLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Rate)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.resp.HandlePending(now)
			m.handleCommands()
			if data, ok := m.update(now); ok {
				if err := m.cmd.SendTo(data, m.out); err != nil {
					slog.Debug("Mock telemetry send failed", "error", err)
				}
			}
		}
	}
}

func (m *MockSim) handleCommands() {
	for {
		d, ok := m.cmd.Poll()
		if !ok {
			return
		}
		m.apply(strings.TrimSpace(string(d.Data)))
	}
}

func (m *MockSim) apply(cmd string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)

	name, arg, _ := strings.Cut(cmd, ",")
	switch name {
	case sim.CmdInitComs:
		if m.running {
			m.streaming = true
		}
	case sim.CmdRun:
		m.paused = false
	case sim.CmdPause:
		m.paused = true
	case sim.CmdFlightMode:
		m.mode, _ = strconv.Atoi(arg)
		m.initScenario(time.Now())
	case sim.CmdAssistLevel:
		m.assist, _ = strconv.Atoi(arg)
	default:
		slog.Debug("Mock sim ignoring command", "cmd", cmd)
	}
}

// update advances the scripted flight and returns the telemetry datagram
// to send, if any.
func (m *MockSim) update(now time.Time) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || !m.streaming {
		return nil, false
	}
	if !m.paused {
		m.advance(now)
	}
	data, err := json.Marshal(m.pkt)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (m *MockSim) initScenario(now time.Time) {
	m.scenario = []scenarioStep{
		{Phase: PhaseParked, Duration: m.cfg.DurationParked},
		{Phase: PhaseTaxi, Duration: m.cfg.DurationTaxi},
		{Phase: PhaseTakeoff, Duration: m.cfg.DurationTakeoff},
		{Phase: PhaseCruise},
	}
	m.stepIdx = 0
	m.stepStart = now
	m.phaseStart = now
}

func (m *MockSim) advance(now time.Time) {
	step := m.scenario[m.stepIdx]
	if step.Duration > 0 && now.Sub(m.stepStart) >= step.Duration && m.stepIdx < len(m.scenario)-1 {
		m.stepIdx++
		m.stepStart = now
		step = m.scenario[m.stepIdx]
	}
	t := now.Sub(m.phaseStart).Seconds()
	p := &m.pkt

	switch step.Phase {
	case PhaseParked:
		p.GAxil, p.GSide, p.GNrml = 0, 0, 1
		p.Phi, p.Theta, p.Rrad = 0, 0, 0
	case PhaseTaxi:
		p.GAxil = 0.05 * math.Sin(2*math.Pi*0.1*t)
		p.GSide = 0.08 * math.Sin(2*math.Pi*0.05*t)
		p.GNrml = 1 + 0.03*math.Sin(2*math.Pi*2*t)
		p.Phi, p.Theta = 0, 0.01
		p.Rrad = 0.1 * math.Sin(2*math.Pi*0.05*t)
	case PhaseTakeoff:
		p.GAxil = 0.25
		p.GSide = 0
		p.GNrml = 1 + 0.05*math.Sin(2*math.Pi*3*t)
		p.Phi = 0
		p.Theta = 0.15
		p.Rrad = 0
	case PhaseCruise:
		p.GAxil = 0.02 * math.Sin(2*math.Pi*0.02*t)
		p.GSide = 0.05 * math.Sin(2*math.Pi*0.03*t)
		p.GNrml = 1 + 0.1*math.Sin(2*math.Pi*0.2*t)
		p.Phi = 0.3 * math.Sin(2*math.Pi*0.01*t)
		p.Theta = 0.05 * math.Cos(2*math.Pi*0.02*t)
		p.Rrad = 0.02 * math.Sin(2*math.Pi*0.01*t)
	}
}
