package output

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"

	"simmotion/pkg/model"
)

// EchoPort is the visualiser broadcast port.
const EchoPort = 10020

// Echo broadcasts the request, actuator lengths and pose each tick.
type Echo struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

// NewEcho sends to addr, normally the broadcast address on EchoPort.
func NewEcho(addr string) (*Echo, error) {
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve echo address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to open echo socket: %w", err)
	}
	return &Echo{conn: conn, addr: raddr}, nil
}

// FormatEcho renders the echo line. Translations are rounded mm with heave
// inverted, rotations are degrees to one decimal.
func FormatEcho(t model.Transform, lengths model.Lengths, pose model.Pose) string {
	var b strings.Builder
	b.WriteString("request")
	for i, v := range t {
		b.WriteByte(',')
		switch {
		case i == model.Heave:
			b.WriteString(strconv.Itoa(int(math.Round(-v))))
		case i < model.Roll:
			b.WriteString(strconv.Itoa(int(math.Round(v))))
		default:
			b.WriteString(strconv.FormatFloat(v*180/math.Pi, 'f', 1, 64))
		}
	}
	b.WriteString(",distances")
	for _, l := range lengths {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(l))
	}
	b.WriteString(",pose")
	for _, p := range pose {
		fmt.Fprintf(&b, ",%.1f;%.1f;%.1f", p.X, p.Y, p.Z)
	}
	b.WriteByte('\n')
	return b.String()
}

// Send broadcasts one echo line.
func (e *Echo) Send(t model.Transform, lengths model.Lengths, pose model.Pose) error {
	if _, err := e.conn.WriteToUDP([]byte(FormatEcho(t, lengths, pose)), e.addr); err != nil {
		return fmt.Errorf("echo send failed: %w", err)
	}
	return nil
}

// Close releases the socket.
func (e *Echo) Close() error { return e.conn.Close() }
