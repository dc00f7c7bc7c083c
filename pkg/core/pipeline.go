package core

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"simmotion/pkg/activation"
	"simmotion/pkg/dynamics"
	"simmotion/pkg/geometry"
	"simmotion/pkg/kinematics"
	"simmotion/pkg/logging"
	"simmotion/pkg/model"
	"simmotion/pkg/sim"
)

// Publish kinds.
const (
	KindUpdate     = "update"
	KindTransition = "transition"
	KindState      = "state"
)

// DefaultCommandDepth is the command queue capacity.
const DefaultCommandDepth = 32

var neutral model.Transform

// SimUpdate is the per-tick snapshot published to operator clients.
type SimUpdate struct {
	At                time.Time                   `json:"at"`
	Request           model.Transform             `json:"request"`
	Transform         model.Transform             `json:"transform"`
	Lengths           model.Lengths               `json:"lengths"`
	Percents          [model.NumActuators]float64 `json:"percents"`
	Pressures         [model.NumActuators]int     `json:"pressures"`
	PlatformState     activation.State            `json:"platform_state"`
	Transition        *activation.Event           `json:"transition,omitempty"`
	Connection        sim.Status                  `json:"connection"`
	Trusted           bool                        `json:"trusted"`
	Gains             [6]float64                  `json:"gains"`
	MasterGain        float64                     `json:"master_gain"`
	Intensity         int                         `json:"intensity"`
	LoadLevel         int                         `json:"load_level"`
	ProcessingPercent float64                     `json:"processing_percent"`
	JitterPercent     float64                     `json:"jitter_percent"`
}

// Options carries the pipeline's collaborators and startup settings.
type Options struct {
	Geometry   *geometry.Geometry
	Connection Connection
	Actuators  Actuators
	Echo       Echoer
	Publisher  Publisher
	Settings   Settings
	Metrics    *Metrics

	Tick           time.Duration
	TransitionRate float64
	WashoutTimes   [6]float64
	Gains          [6]float64
	MasterGain     float64
	Intensity      int
	LoadLevel      int
}

// Pipeline runs the motion cueing chain once per tick. Everything below the
// command queue is owned by the tick goroutine.
type Pipeline struct {
	geom     *geometry.Geometry
	conn     Connection
	act      Actuators
	echo     Echoer
	pub      Publisher
	settings Settings
	metrics  *Metrics

	solver  kinematics.Solver
	washout *dynamics.Washout
	wstate  dynamics.WashoutState
	reg     *dynamics.Regulator
	ctrl    *activation.Controller

	tick      time.Duration
	intensity int
	loadLevel int
	lastTick  time.Time
	sinkFault bool
	lastEvent *activation.Event

	// frame is this tick's telemetry; lastRequest is held while it is untrusted.
	frame       sim.Frame
	trusted     bool
	lastRequest model.Transform

	commands chan Command
	jobs     []Job

	mu       sync.RWMutex
	snapshot SimUpdate
}

// NewPipeline wires the chain for one geometry.
func NewPipeline(opts Options) (*Pipeline, error) {
	solver, err := kinematics.New(opts.Geometry)
	if err != nil {
		return nil, err
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	if opts.Settings == nil {
		opts.Settings = noSettings{}
	}
	if opts.Publisher == nil {
		opts.Publisher = noPublisher{}
	}

	p := &Pipeline{
		geom:      opts.Geometry,
		conn:      opts.Connection,
		act:       opts.Actuators,
		echo:      opts.Echo,
		pub:       opts.Publisher,
		settings:  opts.Settings,
		metrics:   opts.Metrics,
		solver:    solver,
		washout:   dynamics.NewWashout(tick.Seconds(), opts.WashoutTimes),
		reg:       dynamics.NewRegulator(opts.Geometry.Limits1DOF),
		ctrl:      activation.NewController(opts.Geometry.ParkedLengths, tick, opts.TransitionRate),
		tick:      tick,
		intensity: opts.Intensity,
		loadLevel: opts.LoadLevel,
		commands:  make(chan Command, DefaultCommandDepth),
	}
	p.reg.SetGains(opts.Gains)
	p.reg.SetMasterGain(opts.MasterGain)
	p.act.SetLoad(opts.Geometry.PayloadPerMuscle(opts.LoadLevel))

	p.ctrl.OnEvent(p.onTransition)
	p.ctrl.OnStateChange(p.onPlatformState)
	return p, nil
}

// Controller exposes the activation controller for listener registration
// before Run starts.
func (p *Pipeline) Controller() *activation.Controller { return p.ctrl }

// Start leaves initialized for deactivated so operators can enable the platform.
func (p *Pipeline) Start() error {
	return p.ctrl.Request(activation.StateDeactivated, p.geom.ParkedLengths)
}

// Run drives the tick loop until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	slog.Info("Pipeline started", "tick", p.tick, "geometry", p.geom.Name, "kind", p.geom.Kind)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Pipeline stopped", "state", p.ctrl.State())
			return nil
		case now := <-ticker.C:
			p.Tick(ctx, now)
		}
	}
}

// Tick runs one pass of the chain at time now.
func (p *Pipeline) Tick(ctx context.Context, now time.Time) {
	start := time.Now()
	p.lastEvent = nil

	p.frame, p.trusted = p.conn.Handle(now)
	p.drainCommands()

	request := p.request()
	t := p.cue(request, &p.wstate)

	pose, live := p.solver.Solve(t, p.intensityFactor())
	lengths := p.ctrl.Lengths(live).Clamp(p.geom.MinLength, p.geom.MaxLength)

	pressures, err := p.act.SetLengths(lengths)
	p.noteSink(err)

	if p.echo != nil {
		if err := p.echo.Send(t, lengths, pose); err != nil {
			logging.TraceDefault("Echo send failed", "error", err)
		}
	}

	update := SimUpdate{
		At:            now,
		Request:       request,
		Transform:     t,
		Lengths:       lengths,
		Percents:      kinematics.Percents(p.geom, lengths),
		Pressures:     pressures,
		PlatformState: p.ctrl.State(),
		Transition:    p.lastEvent,
		Connection:    p.conn.Status(),
		Trusted:       p.trusted,
		Gains:         p.reg.Gains(),
		MasterGain:    p.reg.MasterGain(),
		Intensity:     p.intensity,
		LoadLevel:     p.loadLevel,
	}
	p.measure(&update, start, now)

	p.mu.Lock()
	p.snapshot = update
	p.mu.Unlock()

	p.pub.Publish(KindUpdate, update)
	p.runJobs(ctx, update)
}

// Snapshot returns the last published update.
func (p *Pipeline) Snapshot() SimUpdate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// request picks the transform for this tick. Enabled, running and paused
// follow the simulator; untrusted frames repeat the last trusted request.
func (p *Pipeline) request() model.Transform {
	switch p.ctrl.State() {
	case activation.StateEnabled, activation.StateRunning, activation.StatePaused:
		if p.trusted {
			p.lastRequest = p.frame.Transform.Sanitized()
		}
		return p.lastRequest
	}
	return neutral
}

// cue shapes a request through washout, inversion, regulation and axis swap.
func (p *Pipeline) cue(request model.Transform, st *dynamics.WashoutState) model.Transform {
	t := p.washout.Apply(request, st)
	t = t.Inverted(p.geom.InvertAxis)
	t = p.reg.Regulate(t)
	if p.geom.SwapRollPitch {
		t = t.SwapRollPitch()
	}
	return t
}

// targetLengths solves the current frame without advancing washout state.
// Untrusted frames target neutral.
func (p *Pipeline) targetLengths() model.Lengths {
	request := neutral
	if p.trusted {
		request = p.frame.Transform.Sanitized()
	}
	st := p.wstate
	_, target := p.solver.Solve(p.cue(request, &st), p.intensityFactor())
	return target.Clamp(p.geom.MinLength, p.geom.MaxLength)
}

func (p *Pipeline) intensityFactor() float64 {
	return float64(p.intensity) / 100
}

func (p *Pipeline) noteSink(err error) {
	switch {
	case err != nil && !p.sinkFault:
		slog.Warn("Pressure send failed", "error", err)
		p.sinkFault = true
	case err == nil && p.sinkFault:
		slog.Info("Pressure sends recovered")
		p.sinkFault = false
	}
	if err != nil && p.metrics != nil {
		p.metrics.SinkErrors.Inc()
	}
}

func (p *Pipeline) measure(u *SimUpdate, start, now time.Time) {
	elapsed := time.Since(start)
	var jitter time.Duration
	if !p.lastTick.IsZero() {
		jitter = now.Sub(p.lastTick) - p.tick
		if jitter < 0 {
			jitter = -jitter
		}
	}
	p.lastTick = now

	u.ProcessingPercent = math.Round(1000*elapsed.Seconds()/p.tick.Seconds()) / 10
	u.JitterPercent = math.Round(1000*jitter.Seconds()/p.tick.Seconds()) / 10

	if p.metrics != nil {
		p.metrics.TickDuration.Observe(elapsed.Seconds())
		p.metrics.TickJitter.Observe(jitter.Seconds())
		p.metrics.PlatformState.Set(float64(p.ctrl.State().Index()))
		p.metrics.ConnectionState.Set(float64(p.conn.State().Index()))
	}
}

func (p *Pipeline) onTransition(ev activation.Event) {
	p.lastEvent = &ev
	p.pub.Publish(KindTransition, ev)
	if ev.Done && ev.Mode == activation.ModeDeactivating {
		p.act.ResetHysteresis()
		p.wstate.Reset()
		p.lastRequest = neutral
	}
}

func (p *Pipeline) onPlatformState(from, to activation.State) {
	if p.metrics != nil {
		p.metrics.Transitions.WithLabelValues(string(to)).Inc()
	}
	p.pub.Publish(KindState, map[string]activation.State{"from": from, "to": to})

	var err error
	switch {
	case to == activation.StateRunning:
		err = p.conn.Run()
	case to == activation.StatePaused, from == activation.StateRunning:
		err = p.conn.Pause()
	}
	if err != nil {
		slog.Debug("Simulator run state not forwarded", "state", to, "error", err)
	}
}

type noSettings struct{}

func (noSettings) SaveAxisGains([6]float64) {}
func (noSettings) SaveMasterGain(float64) {}
func (noSettings) SaveIntensity(int) {}
func (noSettings) SaveLoadLevel(int) {}
func (noSettings) SaveFlightMode(int) {}
func (noSettings) SaveAssistLevel(int) {}

type noPublisher struct{}

func (noPublisher) Publish(string, any) {}
