package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponder_Reply(t *testing.T) {
	up := true
	r := NewResponder(nil, "", "simpc", func() bool { return up })
	now := time.Date(2026, 1, 2, 13, 4, 5, 0, time.Local)

	assert.Equal(t, "xplane_running at 13:04:05", r.Reply(now))
	up = false
	assert.Equal(t, "simpc not running", r.Reply(now))
}

func TestResponder_WithHeartbeat(t *testing.T) {
	server := loopback(t)
	r := NewResponder(server, DefaultMarker, "simpc", func() bool { return true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	h := NewHeartbeatWith(server.LocalAddr(), loopback(t), DefaultMarker, 50*time.Millisecond)
	require.Eventually(t, func() bool {
		ok, running := h.Query(time.Now())
		return ok && running
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestResponder_IgnoresOtherPayloads(t *testing.T) {
	server := loopback(t)
	client := loopback(t)
	r := NewResponder(server, "", "simpc", func() bool { return false })

	require.NoError(t, client.SendTo([]byte("hello"), server.LocalAddr()))
	require.NoError(t, client.SendTo([]byte("PING\n"), server.LocalAddr()))
	require.Eventually(t, func() bool { return server.Available() == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, r.HandlePending(time.Now()))
	require.Eventually(t, func() bool { return client.Available() == 1 }, time.Second, 5*time.Millisecond)
	d, _ := client.Poll()
	assert.Equal(t, "simpc not running", string(d.Data))
}
