package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"simmotion/internal/api"
	"simmotion/pkg/activation"
	"simmotion/pkg/config"
	"simmotion/pkg/core"
	"simmotion/pkg/d2p"
	"simmotion/pkg/db"
	"simmotion/pkg/db/maintenance"
	"simmotion/pkg/geometry"
	"simmotion/pkg/logging"
	"simmotion/pkg/model"
	"simmotion/pkg/output"
	"simmotion/pkg/probe"
	"simmotion/pkg/sim"
	"simmotion/pkg/store"
	"simmotion/pkg/switches"
	"simmotion/pkg/version"
)

const defaultConfigPath = "configs/simmotion.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Ignoring unreadable .env: %v\n", err)
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("SimMotion Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, appCfg.Platform.LoadTable); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	geom, err := initGeometry(appCfg)
	if err != nil {
		return err
	}

	// Startup Probes
	results := probe.Run(ctx, startupProbes(appCfg, geom, dbConn))
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	act, closeActuators, err := initActuators(appCfg, geom)
	if err != nil {
		return err
	}
	defer closeActuators()

	conn, closeSim, err := initSim(ctx, appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize sim connection: %w", err)
	}
	defer closeSim()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// Session and settings persistence outlive the pipeline so its final
	// transitions are flushed.
	settings := config.NewProvider(appCfg, st)
	sess, err := st.StartSession(ctx, geom.Name, settings.SimProvider(ctx))
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	persistCtx, stopPersist := context.WithCancel(context.Background())
	persist := core.NewPersistenceJob(st, settings, sess.ID)
	persist.Start(persistCtx)
	defer func() {
		stopPersist()
		persist.Wait()
	}()

	hub := api.NewHub()
	go hub.Run(ctx)

	opts := core.Options{
		Geometry:       geom,
		Connection:     conn,
		Actuators:      act,
		Publisher:      hub,
		Settings:       persist,
		Metrics:        metrics,
		Tick:           time.Duration(appCfg.Pipeline.Tick),
		TransitionRate: appCfg.Pipeline.TransitionRate,
		WashoutTimes:   appCfg.Sim.WashoutTimes,
		Gains:          settings.AxisGains(ctx),
		MasterGain:     settings.MasterGain(ctx),
		Intensity:      settings.Intensity(ctx),
		LoadLevel:      settings.LoadLevel(ctx),
	}
	if appCfg.Output.EchoAddress != "" {
		echo, err := output.NewEcho(appCfg.Output.EchoAddress)
		if err != nil {
			slog.Warn("Visualizer echo disabled", "error", err)
		} else {
			defer echo.Close()
			opts.Echo = echo
		}
	}

	pipeline, err := core.NewPipeline(opts)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	pipeline.Controller().OnStateChange(persist.PlatformChanged)
	conn.OnStateChange(persist.ConnectionChanged)
	restoreSimSettings(pipeline, conn, settings.FlightMode(ctx), settings.AssistLevel(ctx))
	addJobs(pipeline, act)

	if appCfg.Switches.Port != "" {
		panel, err := switches.Open(ctx, appCfg.Switches.Port, appCfg.Switches.Baud)
		if err != nil {
			slog.Warn("Switch panel unavailable, continuing without it", "error", err)
		} else {
			defer panel.Close()
			go pipeline.RunPanel(ctx, panel, opts.Tick)
		}
	}

	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start platform: %w", err)
	}
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := pipeline.Run(ctx); err != nil {
			slog.Error("Pipeline failed", "error", err)
		}
	}()
	defer func() { <-pipelineDone }()

	srv := api.NewServer(appCfg.Server.Address,
		api.NewPlatformHandler(pipeline),
		hub,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		cancel,
	)
	err = runServerLifecycle(ctx, srv)
	cancel()
	return err
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initGeometry loads the preset or file and applies config overrides.
func initGeometry(appCfg *config.Config) (*geometry.Geometry, error) {
	pc := appCfg.Platform
	geom, err := geometry.Load(pc.Preset, pc.GeometryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load geometry: %w", err)
	}
	if len(pc.ParkedLengths) == model.NumActuators {
		copy(geom.ParkedLengths[:], pc.ParkedLengths)
	}
	if len(pc.PayloadWeights) > 0 {
		geom.PayloadWeights = pc.PayloadWeights
	}
	if pc.UnloadedWeight > 0 {
		geom.UnloadedWeight = pc.UnloadedWeight
	}
	slog.Info("Platform geometry loaded", "name", geom.Name, "kind", geom.Kind, "min", geom.MinLength, "max", geom.MaxLength)
	return geom, nil
}

func usesPressureTable(appCfg *config.Config, geom *geometry.Geometry) bool {
	return geom.Kind == geometry.Rigid && appCfg.Platform.LoadTable != ""
}

func startupProbes(appCfg *config.Config, geom *geometry.Geometry, dbConn *db.DB) []probe.Probe {
	probes := []probe.Probe{
		probe.GeometryProbe(geom),
		probe.DatabaseProbe(dbConn),
		probe.DeviceProbe(appCfg.Switches.Port),
	}
	if usesPressureTable(appCfg, geom) {
		probes = append(probes, probe.LoadTableProbe(appCfg.Platform.LoadTable, geom.Range()+1))
	}
	if appCfg.Sim.Provider == "xplane" {
		probes = append(probes, probe.UDPPortProbe("Telemetry Port", fmt.Sprintf(":%d", appCfg.Sim.TelemetryPort)))
	}
	return probes
}

// initActuators builds the output chain: pressure table, converter and sink
// for rigid platforms; a passive recorder otherwise.
func initActuators(appCfg *config.Config, geom *geometry.Geometry) (core.Actuators, func() error, error) {
	if !usesPressureTable(appCfg, geom) {
		slog.Info("No pressure table in use, actuator lengths are recorded only", "kind", geom.Kind)
		return &output.Passive{}, func() error { return nil }, nil
	}

	tbl, err := d2p.LoadTableFile(appCfg.Platform.LoadTable, geom.Range()+1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load pressure table: %w", err)
	}
	slog.Info("Pressure table loaded", "path", appCfg.Platform.LoadTable, "loads", tbl.Loads)

	var sink output.Sink
	if appCfg.Output.Virtual {
		slog.Info("Virtual output, pressures are not sent to hardware")
		sink = output.NewVirtualSink()
	} else {
		festo, err := output.NewFestoSink(appCfg.Output.FestoAddress)
		if err != nil {
			return nil, nil, err
		}
		sink = festo
	}

	m := output.NewMuscles(d2p.NewConverter(tbl, geom.MaxLength), sink, 0)
	return m, m.Close, nil
}

func addJobs(p *core.Pipeline, act core.Actuators) {
	p.AddJob(core.NewTimeJob("StatusLog", 30*time.Second, func(_ context.Context, u core.SimUpdate) {
		slog.Info("Platform status",
			"state", u.PlatformState,
			"connection", u.Connection.State,
			"aircraft", u.Connection.Aircraft.Name,
			"processing_pct", u.ProcessingPercent,
			"jitter_pct", u.JitterPercent)
	}))
	p.AddJob(core.NewStateJob("ParkedLog", func(_ context.Context, u core.SimUpdate) {
		slog.Info("Platform parked", "lengths", u.Lengths, "load", act.Load())
	}, activation.StateDeactivated))
}

type commandQueue interface {
	Enqueue(cmd core.Command) error
}

type connWatcher interface {
	OnStateChange(fn func(from, to sim.ConnState))
}

// restoreSimSettings replays the saved flight mode and assist level the
// first time the simulator starts sending data.
func restoreSimSettings(q commandQueue, conn connWatcher, mode, assist int) {
	restored := false
	conn.OnStateChange(func(_, to sim.ConnState) {
		if restored || to != sim.StateReceivingData {
			return
		}
		restored = true
		for _, cmd := range []core.Command{core.SetFlightMode(mode), core.SetAssistLevel(assist)} {
			if err := q.Enqueue(cmd); err != nil {
				slog.Warn("Simulator setting not restored", "command", cmd.Kind, "error", err)
			}
		}
	})
}

func runServerLifecycle(ctx context.Context, srv *http.Server) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
