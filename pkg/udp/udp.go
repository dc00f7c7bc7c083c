// Package udp runs background UDP receivers that hand datagrams to the
// tick loop through a bounded, non-blocking queue.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"
)

// DefaultQueueDepth bounds the number of unread datagrams.
const DefaultQueueDepth = 64

const maxDatagram = 64 * 1024

// Datagram is one received packet.
type Datagram struct {
	From *net.UDPAddr
	Data []byte
	At   time.Time
}

// Listener owns a UDP socket and a goroutine that reads from it.
type Listener struct {
	conn    *net.UDPConn
	queue   chan Datagram
	dropped atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Listen binds addr (e.g. ":10022") and starts reading.
func Listen(ctx context.Context, addr string, depth int) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return start(ctx, conn, depth), nil
}

// ListenMulticast joins group on every multicast-capable interface and
// starts reading datagrams sent to it.
func ListenMulticast(ctx context.Context, group string, port int, depth int) (*Listener, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	pc := ipv4.NewPacketConn(conn)
	gaddr := &net.UDPAddr{IP: net.ParseIP(group)}
	ifaces, err := net.Interfaces()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	joined := 0
	for i := range ifaces {
		ifi := &ifaces[i]
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := pc.JoinGroup(ifi, gaddr); err != nil {
			slog.Debug("Multicast join failed", "iface", ifi.Name, "error", err)
			continue
		}
		joined++
	}
	if joined == 0 {
		if err := pc.JoinGroup(nil, gaddr); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to join %s: %w", group, err)
		}
	}
	return start(ctx, conn, depth), nil
}

func start(ctx context.Context, conn *net.UDPConn, depth int) *Listener {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Listener{
		conn:   conn,
		queue:  make(chan Datagram, depth),
		cancel: cancel,
	}
	l.wg.Add(1)
	go l.readLoop(ctx)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	return l
}

func (l *Listener) readLoop(ctx context.Context) {
	defer l.wg.Done()
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("UDP read failed", "addr", l.conn.LocalAddr(), "error", err)
			continue
		}
		d := Datagram{From: from, Data: append([]byte(nil), buf[:n]...), At: time.Now()}
		select {
		case l.queue <- d:
		default:
			l.dropped.Add(1)
		}
	}
}

// Poll returns the next queued datagram without blocking.
func (l *Listener) Poll() (Datagram, bool) {
	select {
	case d := <-l.queue:
		return d, true
	default:
		return Datagram{}, false
	}
}

// Next blocks until a datagram arrives or ctx is done.
func (l *Listener) Next(ctx context.Context) (Datagram, error) {
	select {
	case d := <-l.queue:
		return d, nil
	case <-ctx.Done():
		return Datagram{}, ctx.Err()
	}
}

// Latest drains the queue and returns only the newest datagram.
func (l *Listener) Latest() (Datagram, bool) {
	var (
		last Datagram
		ok   bool
	)
	for {
		d, more := l.Poll()
		if !more {
			return last, ok
		}
		last, ok = d, true
	}
}

// Available returns the number of queued datagrams.
func (l *Listener) Available() int { return len(l.queue) }

// Dropped returns how many datagrams were discarded because the queue was full.
func (l *Listener) Dropped() uint64 { return l.dropped.Load() }

// LocalAddr returns the bound address.
func (l *Listener) LocalAddr() *net.UDPAddr {
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// SendTo writes b to addr from the listener's socket.
func (l *Listener) SendTo(b []byte, addr *net.UDPAddr) error {
	if _, err := l.conn.WriteToUDP(b, addr); err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}
	return nil
}

// Close stops the reader and closes the socket.
func (l *Listener) Close() error {
	l.cancel()
	l.wg.Wait()
	return nil
}
