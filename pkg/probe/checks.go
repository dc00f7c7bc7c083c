package probe

import (
	"context"
	"fmt"
	"net"
	"os"

	"simmotion/pkg/d2p"
	"simmotion/pkg/geometry"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// GeometryProbe validates the platform geometry.
func GeometryProbe(g *geometry.Geometry) Probe {
	return Probe{
		Name:     "Geometry",
		Critical: true,
		Check: func(ctx context.Context) error {
			if g == nil {
				return fmt.Errorf("no geometry loaded")
			}
			return g.Validate()
		},
	}
}

// LoadTableProbe parses the pressure table with one column per mm of travel.
func LoadTableProbe(path string, columns int) Probe {
	return Probe{
		Name:     "Load Table",
		Critical: true,
		Check: func(ctx context.Context) error {
			_, err := d2p.LoadTableFile(path, columns)
			return err
		},
	}
}

// DatabaseProbe pings the settings database. Settings fall back to the
// config file without it, so it is not critical.
func DatabaseProbe(p Pinger) Probe {
	return Probe{
		Name: "Database",
		Check: func(ctx context.Context) error {
			return p.PingContext(ctx)
		},
	}
}

// UDPPortProbe checks that a local UDP address can be bound.
func UDPPortProbe(name, addr string) Probe {
	return Probe{
		Name:     name,
		Critical: true,
		Check: func(ctx context.Context) error {
			var lc net.ListenConfig
			conn, err := lc.ListenPacket(ctx, "udp", addr)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}
}

// DeviceProbe checks that a serial device node exists. An empty path passes.
func DeviceProbe(path string) Probe {
	return Probe{
		Name: "Switch Panel",
		Check: func(ctx context.Context) error {
			if path == "" {
				return nil
			}
			_, err := os.Stat(path)
			return err
		},
	}
}
