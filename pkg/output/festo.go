package output

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"simmotion/pkg/model"
)

// MaxPressure is the valve limit in mbar.
const MaxPressure = 6000

// FestoSink sends pressures to a Festo controller over EasyIP.
type FestoSink struct {
	conn    *net.UDPConn
	counter atomic.Uint32
	sent    atomic.Uint64
}

// NewFestoSink dials host on the EasyIP port. host may carry an explicit port.
func NewFestoSink(host string) (*FestoSink, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, strconv.Itoa(EasyIPPort))
	}
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve festo %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to open festo socket: %w", err)
	}
	slog.Info("Using Festo controller", "addr", raddr)
	return &FestoSink{conn: conn}, nil
}

// ClampPressures limits each pressure to [0, MaxPressure].
func ClampPressures(p [model.NumActuators]int) [model.NumActuators]uint16 {
	var out [model.NumActuators]uint16
	for i, v := range p {
		out[i] = uint16(min(max(v, 0), MaxPressure))
	}
	return out
}

// Send writes six flag words at offset 0.
func (f *FestoSink) Send(p [model.NumActuators]int) error {
	words := ClampPressures(p)
	counter := uint16(f.counter.Add(1))
	data, err := SendFlagwords(counter, 0, words[:]).MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := f.conn.Write(data); err != nil {
		return fmt.Errorf("festo send failed: %w", err)
	}
	f.sent.Add(1)
	return nil
}

// Sent returns the number of packets written.
func (f *FestoSink) Sent() uint64 { return f.sent.Load() }

// Close releases the socket.
func (f *FestoSink) Close() error { return f.conn.Close() }
