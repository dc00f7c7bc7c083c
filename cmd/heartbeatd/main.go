// Command heartbeatd runs on the simulator PC and answers heartbeat pings
// from simmotion, reporting whether the simulator process is running.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"simmotion/pkg/logging"
	"simmotion/pkg/sim"
	"simmotion/pkg/udp"
)

var (
	port     = flag.Int("port", 10030, "UDP port to answer pings on")
	marker   = flag.String("marker", sim.DefaultMarker, "Reply prefix sent while the simulator runs")
	process  = flag.String("process", "X-Plane", "Simulator process name to look for")
	interval = flag.Duration("interval", 2*time.Second, "How often the process list is checked")
	level    = flag.String("log-level", "INFO", "Log level")
)

func main() {
	flag.Parse()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(*level)})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "heartbeatd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rx, err := udp.Listen(ctx, ":"+strconv.Itoa(*port), udp.DefaultQueueDepth)
	if err != nil {
		return err
	}
	defer rx.Close()

	host, _ := os.Hostname()
	watch := &processWatch{name: *process, ttl: *interval, lookup: processRunning}
	r := sim.NewResponder(rx, *marker, host, watch.Running)

	slog.Info("Heartbeat responder listening", "port", *port, "process", *process)
	return r.Serve(ctx)
}

// processWatch caches the result of a process lookup for ttl.
type processWatch struct {
	name   string
	ttl    time.Duration
	lookup func(name string) bool

	mu      sync.Mutex
	checked time.Time
	running bool
}

func (w *processWatch) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if time.Since(w.checked) >= w.ttl {
		was := w.running
		w.running = w.lookup(w.name)
		w.checked = time.Now()
		if was != w.running {
			slog.Info("Simulator process", "name", w.name, "running", w.running)
		}
	}
	return w.running
}

func processRunning(name string) bool {
	if runtime.GOOS == "windows" {
		out, err := exec.Command("tasklist", "/FO", "CSV", "/NH").Output()
		if err != nil {
			slog.Warn("tasklist failed", "error", err)
			return false
		}
		return strings.Contains(strings.ToLower(string(out)), strings.ToLower(name))
	}
	// pgrep exits 1 when nothing matches.
	return exec.Command("pgrep", "-i", "-f", name).Run() == nil
}
