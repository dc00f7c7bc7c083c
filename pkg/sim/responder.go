package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"simmotion/pkg/udp"
)

// Responder answers heartbeat pings on the simulator PC.
type Responder struct {
	rx      *udp.Listener
	marker  string
	host    string
	running func() bool
}

// NewResponder answers pings received on rx. running reports whether the
// simulator process is up.
func NewResponder(rx *udp.Listener, marker, host string, running func() bool) *Responder {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Responder{rx: rx, marker: marker, host: host, running: running}
}

// Reply formats the answer to a ping.
func (r *Responder) Reply(now time.Time) string {
	if r.running() {
		return fmt.Sprintf("%s at %s", r.marker, now.Format(time.TimeOnly))
	}
	return fmt.Sprintf("%s not running", r.host)
}

// HandlePending answers every queued ping without blocking.
func (r *Responder) HandlePending(now time.Time) int {
	n := 0
	for {
		d, ok := r.rx.Poll()
		if !ok {
			return n
		}
		if r.answer(d, now) {
			n++
		}
	}
}

// Serve answers pings until ctx is done.
func (r *Responder) Serve(ctx context.Context) error {
	for {
		d, err := r.rx.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		r.answer(d, time.Now())
	}
}

func (r *Responder) answer(d udp.Datagram, now time.Time) bool {
	if !strings.EqualFold(strings.TrimSpace(string(d.Data)), PingToken) {
		slog.Debug("Ignoring heartbeat datagram", "from", d.From, "data", string(d.Data))
		return false
	}
	reply := r.Reply(now)
	if err := r.rx.SendTo([]byte(reply), d.From); err != nil {
		slog.Warn("Heartbeat reply failed", "to", d.From, "error", err)
		return false
	}
	slog.Debug("Heartbeat reply", "to", d.From, "reply", reply)
	return true
}
