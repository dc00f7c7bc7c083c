package core

import (
	"context"
	"errors"
	"fmt"

	"simmotion/pkg/activation"
)

// CommandKind names an operator request.
type CommandKind string

const (
	CmdRequestState   CommandKind = "request_state"
	CmdSetGains       CommandKind = "set_gains"
	CmdSetMasterGain  CommandKind = "set_master_gain"
	CmdSetIntensity   CommandKind = "set_intensity"
	CmdSetLoadLevel   CommandKind = "set_load_level"
	CmdSetFlightMode  CommandKind = "set_flight_mode"
	CmdSetAssistLevel CommandKind = "set_assist_level"
)

// MaxIntensity is the highest intensity percentage accepted.
const MaxIntensity = 150

var (
	// ErrQueueFull is returned when the command queue cannot take more work.
	ErrQueueFull = errors.New("command queue full")
	// ErrOutOfRange is returned for values outside their accepted range.
	ErrOutOfRange = errors.New("value out of range")
)

// Command is applied at the start of the next tick. Only the fields the
// kind needs are read.
type Command struct {
	Kind  CommandKind
	State activation.State
	Gains [6]float64
	Value float64
	Int   int

	reply chan error
}

// RequestState asks for a platform state change.
func RequestState(s activation.State) Command { return Command{Kind: CmdRequestState, State: s} }

// SetGains replaces the six axis gains.
func SetGains(g [6]float64) Command { return Command{Kind: CmdSetGains, Gains: g} }

// SetMasterGain sets the gain applied on top of the axis gains.
func SetMasterGain(g float64) Command { return Command{Kind: CmdSetMasterGain, Value: g} }

// SetIntensity sets the solver intensity in percent.
func SetIntensity(percent int) Command { return Command{Kind: CmdSetIntensity, Int: percent} }

// SetLoadLevel selects one of the configured payload weights.
func SetLoadLevel(level int) Command { return Command{Kind: CmdSetLoadLevel, Int: level} }

// SetFlightMode loads a flight situation in the simulator.
func SetFlightMode(mode int) Command { return Command{Kind: CmdSetFlightMode, Int: mode} }

// SetAssistLevel selects the simulator's pilot assist level.
func SetAssistLevel(level int) Command { return Command{Kind: CmdSetAssistLevel, Int: level} }

// Enqueue queues cmd without waiting for it to be applied.
func (p *Pipeline) Enqueue(cmd Command) error {
	select {
	case p.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, cmd.Kind)
	}
}

// Submit queues cmd and waits until the tick has applied it.
func (p *Pipeline) Submit(ctx context.Context, cmd Command) error {
	cmd.reply = make(chan error, 1)
	select {
	case p.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) drainCommands() {
	for {
		select {
		case cmd := <-p.commands:
			err := p.apply(cmd)
			if cmd.reply != nil {
				cmd.reply <- err
			}
		default:
			return
		}
	}
}

func (p *Pipeline) apply(cmd Command) error {
	switch cmd.Kind {
	case CmdRequestState:
		return p.ctrl.Request(cmd.State, p.targetLengths())
	case CmdSetGains:
		p.reg.SetGains(cmd.Gains)
		p.settings.SaveAxisGains(cmd.Gains)
	case CmdSetMasterGain:
		if cmd.Value < 0 {
			return fmt.Errorf("%w: master gain %v", ErrOutOfRange, cmd.Value)
		}
		p.reg.SetMasterGain(cmd.Value)
		p.settings.SaveMasterGain(cmd.Value)
	case CmdSetIntensity:
		if cmd.Int < 0 || cmd.Int > MaxIntensity {
			return fmt.Errorf("%w: intensity %d", ErrOutOfRange, cmd.Int)
		}
		p.intensity = cmd.Int
		p.settings.SaveIntensity(cmd.Int)
	case CmdSetLoadLevel:
		if n := len(p.geom.PayloadWeights); n > 0 && (cmd.Int < 0 || cmd.Int >= n) {
			return fmt.Errorf("%w: load level %d", ErrOutOfRange, cmd.Int)
		}
		p.loadLevel = cmd.Int
		p.act.SetLoad(p.geom.PayloadPerMuscle(cmd.Int))
		p.settings.SaveLoadLevel(cmd.Int)
	case CmdSetFlightMode:
		if err := p.conn.SetFlightMode(cmd.Int); err != nil {
			return err
		}
		p.settings.SaveFlightMode(cmd.Int)
	case CmdSetAssistLevel:
		if err := p.conn.SetAssistLevel(cmd.Int); err != nil {
			return err
		}
		p.settings.SaveAssistLevel(cmd.Int)
	default:
		return fmt.Errorf("unknown command %q", cmd.Kind)
	}
	return nil
}
