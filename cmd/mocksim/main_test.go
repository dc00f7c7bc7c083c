package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simmotion/pkg/sim/mocksim"
)

type fakeStatus struct {
	cmds []string
}

func (f fakeStatus) Phase() string      { return mocksim.PhaseTaxi }
func (f fakeStatus) Streaming() bool    { return true }
func (f fakeStatus) Paused() bool       { return false }
func (f fakeStatus) Commands() []string { return f.cmds }

func TestStatusLine(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		cmds []string
		want string
	}{
		{"No commands", nil, "[12:00:00] Phase=TAXI | Streaming=true | Paused=false | Commands=0 (last -)"},
		{"Last command shown", []string{"InitComs", "Run"}, "[12:00:00] Phase=TAXI | Streaming=true | Paused=false | Commands=2 (last Run)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusLine(at, fakeStatus{cmds: tt.cmds}))
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := mocksim.DefaultConfig()
	cfg.TelemetryAddr = "127.0.0.1:21022"
	cfg.CommandAddr = "127.0.0.1:21023"
	cfg.HeartbeatAddr = "127.0.0.1:21030"

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, run(ctx, cfg, 20*time.Millisecond))
}
