// Package switches reads the operator switch panel: a microcontroller that
// prints one JSON object per line with the full or changed switch state.
package switches

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Switch identifies one panel control.
type Switch int

const (
	Fly Switch = iota
	Pause
	Activate
	Assist
	Mode
	Load
	Intensity
	numSwitches
)

var keys = map[string]Switch{
	"fly":       Fly,
	"pause":     Pause,
	"activate":  Activate,
	"assist":    Assist,
	"mode":      Mode,
	"load":      Load,
	"intensity": Intensity,
}

var names = [numSwitches]string{"fly", "pause", "activate", "assist", "mode", "load", "intensity"}

func (s Switch) String() string {
	if s < 0 || s >= numSwitches {
		return fmt.Sprintf("switch(%d)", int(s))
	}
	return names[s]
}

// maxDiscards is the number of consecutive malformed lines tolerated
// before each further one is logged.
const maxDiscards = 3

// Event is a switch whose value changed.
type Event struct {
	Switch Switch `json:"switch"`
	Value  int    `json:"value"`
}

// Panel decodes panel lines and queues change events for the tick.
type Panel struct {
	name     string
	events   chan Event
	last     [numSwitches]*int
	discards int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open opens a serial device and starts reading it.
func Open(ctx context.Context, device string, baud int) (*Panel, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	slog.Info("Switch panel opened", "port", device, "baud", baud)
	p := NewPanel(device)
	p.Start(ctx, port)
	return p, nil
}

// NewPanel returns a panel with no reader attached.
func NewPanel(name string) *Panel {
	return &Panel{name: name, events: make(chan Event, 32)}
}

// Start reads newline-terminated JSON from r until ctx is done or r fails.
func (p *Panel) Start(ctx context.Context, r io.ReadCloser) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.readLoop(ctx, r)
	}()
	go func() {
		<-ctx.Done()
		r.Close()
	}()
}

func (p *Panel) readLoop(ctx context.Context, r io.Reader) {
	br := bufio.NewReader(r)
	var pending strings.Builder
	for ctx.Err() == nil {
		chunk, err := br.ReadString('\n')
		pending.WriteString(chunk)
		switch {
		case err == nil:
			p.dispatch(strings.TrimSpace(pending.String()))
			pending.Reset()
		case errors.Is(err, io.EOF):
			// tarm/serial surfaces a read timeout as EOF; keep any partial line.
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		default:
			if ctx.Err() == nil {
				slog.Error("Switch panel read failed", "port", p.name, "error", err)
			}
			return
		}
	}
}

func (p *Panel) dispatch(line string) {
	if line == "" {
		return
	}
	for _, ev := range p.ProcessLine(line) {
		select {
		case p.events <- ev:
		default:
			slog.Warn("Switch event dropped", "switch", ev.Switch, "value", ev.Value)
		}
	}
}

// ProcessLine decodes one line and returns the switches whose value changed.
func (p *Panel) ProcessLine(line string) []Event {
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		p.discards++
		if p.discards > maxDiscards {
			slog.Warn("Malformed switch panel line", "port", p.name, "line", line, "count", p.discards)
		}
		return nil
	}
	p.discards = 0

	var out []Event
	for key, raw := range obj {
		sw, ok := keys[key]
		if !ok {
			slog.Error("Unknown switch panel key", "port", p.name, "key", key)
			continue
		}
		v, ok := toInt(raw)
		if !ok {
			slog.Warn("Bad switch panel value", "port", p.name, "key", key, "value", raw)
			continue
		}
		if prev := p.last[sw]; prev != nil && *prev == v {
			continue
		}
		p.last[sw] = &v
		out = append(out, Event{Switch: sw, Value: v})
	}
	slices.SortFunc(out, func(a, b Event) int { return int(a.Switch) - int(b.Switch) })
	return out
}

// Poll returns the next queued event without blocking.
func (p *Panel) Poll() (Event, bool) {
	select {
	case ev := <-p.events:
		return ev, true
	default:
		return Event{}, false
	}
}

// Close stops the reader.
func (p *Panel) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
