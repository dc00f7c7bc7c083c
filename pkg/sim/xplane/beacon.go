package xplane

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"simmotion/pkg/udp"
)

// Beacon multicast group and port.
const (
	BeaconGroup = "239.255.1.1"
	BeaconPort  = 49707
)

var beaconPrologue = []byte("BECN\x00")

// ErrBadBeacon is returned for datagrams that are not X-Plane beacons.
var ErrBadBeacon = errors.New("invalid beacon")

// Beacon is an X-Plane BECN announcement.
type Beacon struct {
	MajorVersion uint8
	MinorVersion uint8
	HostID       int32
	Version      int32
	Role         uint32
	Port         uint16
	IP           net.IP
}

type beaconWire struct {
	MajorVersion uint8
	MinorVersion uint8
	HostID       int32
	Version      int32
	Role         uint32
	Port         uint16
}

// ParseBeacon decodes a BECN datagram received from ip.
func ParseBeacon(data []byte, ip net.IP) (Beacon, error) {
	if !bytes.HasPrefix(data, beaconPrologue) {
		return Beacon{}, fmt.Errorf("%w: missing prologue", ErrBadBeacon)
	}
	var w beaconWire
	if err := binary.Read(bytes.NewReader(data[len(beaconPrologue):]), binary.LittleEndian, &w); err != nil {
		return Beacon{}, fmt.Errorf("%w: %v", ErrBadBeacon, err)
	}
	return Beacon{
		MajorVersion: w.MajorVersion,
		MinorVersion: w.MinorVersion,
		HostID:       w.HostID,
		Version:      w.Version,
		Role:         w.Role,
		Port:         w.Port,
		IP:           ip,
	}, nil
}

// Discover waits for the first valid beacon on the multicast group.
func Discover(ctx context.Context) (Beacon, error) {
	l, err := udp.ListenMulticast(ctx, BeaconGroup, BeaconPort, 8)
	if err != nil {
		return Beacon{}, err
	}
	defer l.Close()
	return awaitBeacon(ctx, l)
}

func awaitBeacon(ctx context.Context, l *udp.Listener) (Beacon, error) {
	for {
		if d, ok := l.Poll(); ok {
			var ip net.IP
			if d.From != nil {
				ip = d.From.IP
			}
			b, err := ParseBeacon(d.Data, ip)
			if err == nil {
				slog.Info("X-Plane beacon received", "ip", b.IP, "port", b.Port, "version", b.Version)
				return b, nil
			}
			slog.Warn("Ignoring beacon", "error", err)
			continue
		}
		select {
		case <-ctx.Done():
			return Beacon{}, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
