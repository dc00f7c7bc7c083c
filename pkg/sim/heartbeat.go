package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"simmotion/pkg/udp"
)

// DefaultMarker is the reply substring meaning the simulator process is up.
const DefaultMarker = "xplane_running"

// PingToken is the heartbeat request payload.
const PingToken = "ping"

// Heartbeat pings a heartbeat server and tracks its replies. Replies are
// received on the server port + 1.
type Heartbeat struct {
	server   *net.UDPAddr
	marker   string
	interval time.Duration
	rx       *udp.Listener

	lastPing time.Time
	lastRecv time.Time
	ok       bool
	running  bool
	reply    string
}

// NewHeartbeat binds the reply port and returns a client for server
// ("host:port").
func NewHeartbeat(ctx context.Context, server, marker string, interval time.Duration) (*Heartbeat, error) {
	addr, err := net.ResolveUDPAddr("udp4", server)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve heartbeat server %s: %w", server, err)
	}
	rx, err := udp.Listen(ctx, ":"+strconv.Itoa(addr.Port+1), udp.DefaultQueueDepth)
	if err != nil {
		return nil, err
	}
	return NewHeartbeatWith(addr, rx, marker, interval), nil
}

// NewHeartbeatWith uses rx, already bound, for pings and replies.
func NewHeartbeatWith(addr *net.UDPAddr, rx *udp.Listener, marker string, interval time.Duration) *Heartbeat {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Heartbeat{server: addr, marker: marker, interval: interval, rx: rx}
}

// Query drains replies, pings when an interval has elapsed, and reports
// ok if a reply arrived within two intervals. running is set when that
// reply carried the marker.
func (h *Heartbeat) Query(now time.Time) (ok, running bool) {
	for {
		d, more := h.rx.Poll()
		if !more {
			break
		}
		h.reply = strings.TrimSpace(string(d.Data))
		h.running = strings.Contains(h.reply, h.marker)
		h.lastRecv = now
		h.ok = true
	}

	if h.lastPing.IsZero() || now.Sub(h.lastPing) > h.interval {
		if err := h.rx.SendTo([]byte(PingToken), h.server); err != nil {
			slog.Warn("Heartbeat ping failed", "server", h.server, "error", err)
		}
		h.lastPing = now
	}

	if h.lastRecv.IsZero() || now.Sub(h.lastRecv) > 2*h.interval {
		h.ok = false
		h.running = false
	}
	return h.ok, h.running
}

// LastReply returns the most recent reply text.
func (h *Heartbeat) LastReply() string { return h.reply }

// Close releases the reply socket.
func (h *Heartbeat) Close() error { return h.rx.Close() }
