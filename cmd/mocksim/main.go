// Command mocksim stands in for X-Plane and its plugin: it answers
// heartbeat pings, accepts plugin commands and streams scripted telemetry
// to a simmotion instance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simmotion/pkg/sim/mocksim"
)

func main() {
	cfg := mocksim.DefaultConfig()
	flag.StringVar(&cfg.TelemetryAddr, "telemetry", cfg.TelemetryAddr, "Where telemetry is sent (simmotion host:port)")
	flag.StringVar(&cfg.CommandAddr, "command", cfg.CommandAddr, "Local address for plugin commands")
	flag.StringVar(&cfg.HeartbeatAddr, "heartbeat", cfg.HeartbeatAddr, "Local address for heartbeat pings")
	flag.StringVar(&cfg.ICAO, "icao", cfg.ICAO, "Aircraft ICAO reported in telemetry")
	flag.DurationVar(&cfg.Rate, "rate", cfg.Rate, "Telemetry period")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "mocksim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg mocksim.Config, every time.Duration) error {
	m, err := mocksim.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Printf("Mock Simulator Started (telemetry to %s). Press Ctrl+C to exit.\n", cfg.TelemetryAddr)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return nil
		case <-ticker.C:
			fmt.Println(statusLine(time.Now(), m))
		}
	}
}

type statusSource interface {
	Phase() string
	Streaming() bool
	Paused() bool
	Commands() []string
}

func statusLine(now time.Time, s statusSource) string {
	cmds := s.Commands()
	last := "-"
	if len(cmds) > 0 {
		last = cmds[len(cmds)-1]
	}
	return fmt.Sprintf("[%s] Phase=%s | Streaming=%v | Paused=%v | Commands=%d (last %s)",
		now.Format(time.TimeOnly), s.Phase(), s.Streaming(), s.Paused(), len(cmds), last)
}
