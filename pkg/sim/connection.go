package sim

import (
	"fmt"
	"log/slog"
	"time"
)

// Simulator commands understood by the telemetry plugin.
const (
	CmdInitComs    = "InitComs"
	CmdRun         = "Run"
	CmdPause       = "Pause"
	CmdFlightMode  = "FlightMode"
	CmdAssistLevel = "AssistLevel"
)

// ConnectionConfig tunes the connection machine.
type ConnectionConfig struct {
	// HandshakeInterval is the resend period of InitComs while waiting for data.
	HandshakeInterval time.Duration
	// DataTimeout is how old the last frame may be while still counting as live.
	DataTimeout time.Duration
	// SupportedAircraft lists accepted ICAO prefixes; empty accepts all.
	SupportedAircraft []string
}

// DefaultConnectionConfig returns the stock timings.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		HandshakeInterval: time.Second,
		DataTimeout:       250 * time.Millisecond,
	}
}

// ConnectionMachine advances the link state once per tick. It is owned by
// the tick loop and is not safe for concurrent use.
type ConnectionMachine struct {
	prober Prober
	source Source
	cfg    ConnectionConfig

	state         ConnState
	heartbeatOK   bool
	simRunning    bool
	last          Frame
	lastAt        time.Time
	haveFrame     bool
	lastHandshake time.Time
	loadPending   bool

	listeners []func(from, to ConnState)
}

// NewConnectionMachine starts in StateWaitingHeartbeat.
func NewConnectionMachine(p Prober, s Source, cfg ConnectionConfig) *ConnectionMachine {
	if cfg.HandshakeInterval <= 0 {
		cfg.HandshakeInterval = time.Second
	}
	if cfg.DataTimeout <= 0 {
		cfg.DataTimeout = 250 * time.Millisecond
	}
	return &ConnectionMachine{prober: p, source: s, cfg: cfg, state: StateWaitingHeartbeat}
}

// OnStateChange registers a listener for connection state changes.
func (m *ConnectionMachine) OnStateChange(fn func(from, to ConnState)) {
	m.listeners = append(m.listeners, fn)
}

// State returns the current connection state.
func (m *ConnectionMachine) State() ConnState { return m.state }

// Handle advances the machine by one step and returns the latest frame.
// trusted is true only in StateReceivingData with a supported aircraft;
// callers must hold a safe output otherwise.
func (m *ConnectionMachine) Handle(now time.Time) (f Frame, trusted bool) {
	m.heartbeatOK, m.simRunning = m.prober.Query(now)

	if fr, ok := m.source.Poll(); ok {
		m.last = fr
		m.lastAt = fr.At
		if m.lastAt.IsZero() {
			m.lastAt = now
		}
		m.haveFrame = true
	}
	live := m.haveFrame && now.Sub(m.lastAt) <= m.cfg.DataTimeout

	switch m.state {
	case StateWaitingHeartbeat:
		if m.heartbeatOK {
			m.transition(StateWaitingSim)
		}
	case StateWaitingSim:
		switch {
		case !m.heartbeatOK:
			m.transition(StateWaitingHeartbeat)
		case m.simRunning:
			m.transition(StateWaitingData)
		}
	case StateWaitingData:
		m.sendHandshakeIfDue(now)
		switch {
		case !m.heartbeatOK:
			m.transition(StateWaitingHeartbeat)
		case !m.simRunning:
			m.transition(StateWaitingSim)
		case live:
			m.transition(StateReceivingData)
			if m.loadPending {
				slog.Info("Flight mode load completed, pausing sim")
				m.loadPending = false
				m.send(CmdPause)
			}
		}
	case StateReceivingData:
		switch {
		case !m.heartbeatOK:
			m.transition(StateWaitingHeartbeat)
		case !m.simRunning:
			m.transition(StateWaitingSim)
		case !live:
			m.transition(StateWaitingData)
		}
	}

	if m.state != StateReceivingData {
		return m.last, false
	}
	return m.last, AircraftSupported(m.last.ICAO, m.cfg.SupportedAircraft)
}

func (m *ConnectionMachine) transition(to ConnState) {
	from := m.state
	m.state = to
	slog.Info("Simulator connection changed", "from", from, "to", to)
	for _, fn := range m.listeners {
		fn(from, to)
	}
}

func (m *ConnectionMachine) sendHandshakeIfDue(now time.Time) {
	if !m.lastHandshake.IsZero() && now.Sub(m.lastHandshake) <= m.cfg.HandshakeInterval {
		return
	}
	m.lastHandshake = now
	if err := m.source.Send(CmdInitComs); err != nil {
		slog.Warn("InitComs send failed", "error", err)
		return
	}
	slog.Debug("Sent InitComs")
}

// Status reports traffic-light levels for the UI.
func (m *ConnectionMachine) Status() Status {
	st := Status{State: m.state, Connection: LevelOK, Data: LevelNoGo}
	switch {
	case !m.heartbeatOK:
		st.Connection = LevelNoGo
	case !m.simRunning:
		st.Connection = LevelWarning
	}
	switch m.state {
	case StateReceivingData:
		st.Data = LevelOK
	case StateWaitingData:
		st.Data = LevelWarning
	}

	st.Aircraft = Aircraft{Name: DefaultAircraftName, Status: LevelNoGo}
	if m.state == StateReceivingData {
		if m.last.ICAO != "" {
			st.Aircraft.Name = m.last.ICAO
		}
		if AircraftSupported(m.last.ICAO, m.cfg.SupportedAircraft) {
			st.Aircraft.Status = LevelOK
		}
	}
	return st
}

// Send forwards cmd to the simulator when data is flowing.
func (m *ConnectionMachine) Send(cmd string) error {
	if m.state != StateReceivingData {
		slog.Warn("Simulator not connected, command dropped", "cmd", cmd)
		return fmt.Errorf("%w: %s", ErrNotConnected, cmd)
	}
	return m.send(cmd)
}

func (m *ConnectionMachine) send(cmd string) error {
	if err := m.source.Send(cmd); err != nil {
		slog.Warn("Simulator command failed", "cmd", cmd, "error", err)
		return err
	}
	return nil
}

// Run resumes the simulation.
func (m *ConnectionMachine) Run() error { return m.Send(CmdRun) }

// Pause pauses the simulation.
func (m *ConnectionMachine) Pause() error { return m.Send(CmdPause) }

// SetFlightMode pauses the sim and loads the given flight situation. The sim
// is paused again once telemetry resumes after the load.
func (m *ConnectionMachine) SetFlightMode(mode int) error {
	if err := m.Pause(); err != nil {
		return err
	}
	m.loadPending = true
	return m.Send(fmt.Sprintf("%s,%d", CmdFlightMode, mode))
}

// SetAssistLevel selects the pilot assist level.
func (m *ConnectionMachine) SetAssistLevel(level int) error {
	return m.Send(fmt.Sprintf("%s,%d", CmdAssistLevel, level))
}
