package core

import (
	"context"
	"log/slog"
	"time"

	"simmotion/pkg/activation"
	"simmotion/pkg/switches"
)

// Intensity percentages selected by the panel's three-position switch.
var panelIntensity = [3]int{0, 30, 100}

// EventSource yields switch changes without blocking.
type EventSource interface {
	Poll() (switches.Event, bool)
}

// PanelBridge turns switch panel events into pipeline commands. The
// activate switch is ignored until it has been seen down once, so a panel
// left in the up position cannot enable the platform at startup.
type PanelBridge struct {
	armed bool
}

// Commands maps one event to the commands it requests.
func (b *PanelBridge) Commands(ev switches.Event) []Command {
	switch ev.Switch {
	case switches.Activate:
		if ev.Value == 0 {
			wasArmed := b.armed
			b.armed = true
			if !wasArmed {
				slog.Info("Activate switch is down, panel armed")
				return nil
			}
			return []Command{RequestState(activation.StateDeactivated)}
		}
		if !b.armed {
			slog.Warn("Activate switch is up; flip it down before the platform can be enabled")
			return nil
		}
		return []Command{RequestState(activation.StateEnabled)}
	case switches.Fly:
		if ev.Value != 0 {
			return []Command{RequestState(activation.StateRunning)}
		}
	case switches.Pause:
		if ev.Value != 0 {
			return []Command{RequestState(activation.StatePaused)}
		}
	case switches.Assist:
		return []Command{SetAssistLevel(ev.Value)}
	case switches.Mode:
		return []Command{SetFlightMode(ev.Value)}
	case switches.Load:
		return []Command{SetLoadLevel(ev.Value)}
	case switches.Intensity:
		if ev.Value < 0 || ev.Value >= len(panelIntensity) {
			slog.Warn("Intensity switch position out of range", "value", ev.Value)
			return nil
		}
		return []Command{SetIntensity(panelIntensity[ev.Value])}
	}
	return nil
}

// RunPanel polls src every interval and enqueues the resulting commands
// until ctx is cancelled.
func (p *Pipeline) RunPanel(ctx context.Context, src EventSource, interval time.Duration) {
	var bridge PanelBridge
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				ev, ok := src.Poll()
				if !ok {
					break
				}
				slog.Debug("Switch changed", "switch", ev.Switch, "value", ev.Value)
				for _, cmd := range bridge.Commands(ev) {
					if err := p.Enqueue(cmd); err != nil {
						slog.Warn("Switch command dropped", "switch", ev.Switch, "error", err)
					}
				}
			}
		}
	}
}
