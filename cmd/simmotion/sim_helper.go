package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"simmotion/pkg/config"
	"simmotion/pkg/sim"
	"simmotion/pkg/sim/mocksim"
	"simmotion/pkg/sim/xplane"
)

const localHost = "127.0.0.1"

// initSim starts the configured simulator side (the mock, or nothing for a
// real X-Plane), binds telemetry and heartbeat sockets and returns the
// connection machine that owns them.
func initSim(ctx context.Context, appCfg *config.Config) (*sim.ConnectionMachine, func(), error) {
	sc := appCfg.Sim
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Debug("Sim cleanup", "error", err)
			}
		}
	}

	host := sc.Address
	switch sc.Provider {
	case "mock":
		slog.Info("Using Mock Simulator")
		host = localHost
		mock, err := mocksim.New(ctx, mocksim.Config{
			TelemetryAddr:   net.JoinHostPort(localHost, strconv.Itoa(sc.TelemetryPort)),
			CommandAddr:     ":" + strconv.Itoa(sc.CommandPort),
			HeartbeatAddr:   ":" + strconv.Itoa(sc.HeartbeatPort),
			ICAO:            sc.Mock.ICAO,
			DurationParked:  time.Duration(sc.Mock.DurationParked),
			DurationTaxi:    time.Duration(sc.Mock.DurationTaxi),
			DurationTakeoff: time.Duration(sc.Mock.DurationTakeoff),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start mock simulator: %w", err)
		}
		closers = append(closers, mock.Close)
	case "xplane":
		if host == "" {
			host = discoverHost(ctx, time.Duration(sc.Discover))
		}
		slog.Info("Using X-Plane", "host", host)
	}

	telemetry, err := xplane.Listen(ctx, xplane.Config{
		Host:          host,
		TelemetryPort: sc.TelemetryPort,
		CommandPort:   sc.CommandPort,
		Factors:       sc.NormFactors,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to bind telemetry port: %w", err)
	}
	closers = append(closers, telemetry.Close)

	hb, err := sim.NewHeartbeat(ctx, net.JoinHostPort(host, strconv.Itoa(sc.HeartbeatPort)), sc.Marker, time.Duration(sc.HeartbeatInterval))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to start heartbeat: %w", err)
	}
	closers = append(closers, hb.Close)

	conn := sim.NewConnectionMachine(hb, telemetry, sim.ConnectionConfig{
		HandshakeInterval: time.Duration(sc.HandshakeInterval),
		DataTimeout:       time.Duration(sc.DataTimeout),
		SupportedAircraft: sc.SupportedAircraft,
	})
	conn.OnStateChange(func(from, to sim.ConnState) {
		slog.Info("Sim connection changed", "from", from, "to", to)
	})
	return conn, cleanup, nil
}

// discoverHost waits for an X-Plane beacon and falls back to localhost.
func discoverHost(ctx context.Context, timeout time.Duration) string {
	if timeout <= 0 {
		return localHost
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, err := xplane.Discover(dctx)
	if err != nil {
		slog.Warn("No X-Plane beacon, assuming local simulator", "error", err)
		return localHost
	}
	slog.Info("X-Plane discovered", "ip", b.IP, "version", b.Version)
	return b.IP.String()
}
