package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simmotion/pkg/activation"
	"simmotion/pkg/switches"
)

func TestPanelBridge_Commands(t *testing.T) {
	tests := []struct {
		name   string
		events []switches.Event
		want   []Command
	}{
		{
			name:   "Activate up at startup is ignored",
			events: []switches.Event{{Switch: switches.Activate, Value: 1}},
		},
		{
			name: "Arm then activate",
			events: []switches.Event{
				{Switch: switches.Activate, Value: 0},
				{Switch: switches.Activate, Value: 1},
				{Switch: switches.Activate, Value: 0},
			},
			want: []Command{RequestState(activation.StateEnabled), RequestState(activation.StateDeactivated)},
		},
		{
			name: "Fly and pause on press only",
			events: []switches.Event{
				{Switch: switches.Fly, Value: 1},
				{Switch: switches.Fly, Value: 0},
				{Switch: switches.Pause, Value: 1},
			},
			want: []Command{RequestState(activation.StateRunning), RequestState(activation.StatePaused)},
		},
		{
			name: "Intensity positions",
			events: []switches.Event{
				{Switch: switches.Intensity, Value: 0},
				{Switch: switches.Intensity, Value: 1},
				{Switch: switches.Intensity, Value: 2},
				{Switch: switches.Intensity, Value: 3},
			},
			want: []Command{SetIntensity(0), SetIntensity(30), SetIntensity(100)},
		},
		{
			name: "Sim and load selectors",
			events: []switches.Event{
				{Switch: switches.Mode, Value: 2},
				{Switch: switches.Assist, Value: 1},
				{Switch: switches.Load, Value: 0},
			},
			want: []Command{SetFlightMode(2), SetAssistLevel(1), SetLoadLevel(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b PanelBridge
			var got []Command
			for _, ev := range tt.events {
				got = append(got, b.Commands(ev)...)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

type queuedEvents struct {
	ch chan switches.Event
}

func (q *queuedEvents) Poll() (switches.Event, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
		return switches.Event{}, false
	}
}

func TestPipeline_RunPanel(t *testing.T) {
	h := newHarness(t)
	src := &queuedEvents{ch: make(chan switches.Event, 4)}
	src.ch <- switches.Event{Switch: switches.Intensity, Value: 1}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.p.RunPanel(ctx, src, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(h.p.commands) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 30, h.tick().Intensity)
}
