package mocksim

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simmotion/pkg/sim"
	"simmotion/pkg/sim/xplane"
	"simmotion/pkg/udp"
)

type link struct {
	mock *MockSim
	conn *sim.ConnectionMachine
}

func newLink(t *testing.T) *link {
	t.Helper()
	ctx := context.Background()

	telRx, err := udp.Listen(ctx, "127.0.0.1:0", 16)
	require.NoError(t, err)
	hbRx, err := udp.Listen(ctx, "127.0.0.1:0", 16)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.TelemetryAddr = telRx.LocalAddr().String()
	cfg.CommandAddr = "127.0.0.1:0"
	cfg.HeartbeatAddr = "127.0.0.1:0"
	cfg.Rate = 10 * time.Millisecond
	cfg.DurationParked = 50 * time.Millisecond
	cfg.DurationTaxi = 50 * time.Millisecond
	cfg.DurationTakeoff = 50 * time.Millisecond

	mock, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	xcfg := xplane.DefaultConfig()
	xcfg.Host = "127.0.0.1"
	xcfg.CommandPort = mock.CommandAddr().Port
	tel, err := xplane.NewTelemetry(xcfg, telRx)
	require.NoError(t, err)
	t.Cleanup(func() { tel.Close() })

	hb := sim.NewHeartbeatWith(mock.HeartbeatAddr(), hbRx, sim.DefaultMarker, 50*time.Millisecond)
	t.Cleanup(func() { hb.Close() })

	ccfg := sim.DefaultConnectionConfig()
	ccfg.HandshakeInterval = 50 * time.Millisecond
	return &link{mock: mock, conn: sim.NewConnectionMachine(hb, tel, ccfg)}
}

func (l *link) waitFor(t *testing.T, want sim.ConnState) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.conn.Handle(time.Now())
		return l.conn.State() == want
	}, 3*time.Second, 10*time.Millisecond, "waiting for %s", want)
}

func TestMockSim_ConnectsThroughHandshake(t *testing.T) {
	l := newLink(t)
	l.waitFor(t, sim.StateReceivingData)

	assert.True(t, l.mock.Streaming())
	assert.Contains(t, l.mock.Commands(), sim.CmdInitComs)
	f, trusted := l.conn.Handle(time.Now())
	assert.True(t, trusted)
	assert.Equal(t, "C172", f.ICAO)
}

func TestMockSim_StopRegresses(t *testing.T) {
	l := newLink(t)
	l.waitFor(t, sim.StateReceivingData)

	l.mock.SetRunning(false)
	l.waitFor(t, sim.StateWaitingSim)

	l.mock.SetRunning(true)
	l.waitFor(t, sim.StateReceivingData)
}

func TestMockSim_Commands(t *testing.T) {
	l := newLink(t)
	l.waitFor(t, sim.StateReceivingData)

	require.NoError(t, l.conn.Pause())
	require.Eventually(t, l.mock.Paused, time.Second, 10*time.Millisecond)
	require.NoError(t, l.conn.Run())
	require.Eventually(t, func() bool { return !l.mock.Paused() }, time.Second, 10*time.Millisecond)
	require.NoError(t, l.conn.SetAssistLevel(2))
	require.Eventually(t, func() bool {
		for _, c := range l.mock.Commands() {
			if c == sim.CmdAssistLevel+","+strconv.Itoa(2) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestMockSim_ScenarioAdvances(t *testing.T) {
	l := newLink(t)
	assert.Equal(t, PhaseParked, l.mock.Phase())
	l.waitFor(t, sim.StateReceivingData)
	require.Eventually(t, func() bool { return l.mock.Phase() == PhaseCruise }, 2*time.Second, 10*time.Millisecond)
}
