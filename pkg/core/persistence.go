package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"simmotion/pkg/activation"
	"simmotion/pkg/config"
	"simmotion/pkg/logging"
	"simmotion/pkg/sim"
	"simmotion/pkg/store"
)

// DefaultPersistenceDepth is the write queue capacity.
const DefaultPersistenceDepth = 64

type write struct {
	name string
	fn   func(ctx context.Context) error
}

// PersistenceJob moves database and event-log writes off the tick. It
// records platform transitions against the current session and saves
// operator settings through the config provider.
type PersistenceJob struct {
	sessions  store.SessionStore
	settings  config.Provider
	sessionID string

	queue   chan write
	dropped atomic.Uint64
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewPersistenceJob creates a new persistence job for sessionID.
func NewPersistenceJob(ss store.SessionStore, settings config.Provider, sessionID string) *PersistenceJob {
	return &PersistenceJob{
		sessions:  ss,
		settings:  settings,
		sessionID: sessionID,
		queue:     make(chan write, DefaultPersistenceDepth),
		now:       time.Now,
	}
}

// Start begins the persistence loop. Pending writes are flushed and the
// session is ended when ctx is cancelled; Wait blocks until that is done.
func (j *PersistenceJob) Start(ctx context.Context) {
	slog.Info("Persistence: loop started", "session", j.sessionID)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for {
			select {
			case <-ctx.Done():
				j.flush()
				return
			case w := <-j.queue:
				j.exec(ctx, w)
			}
		}
	}()
}

// Wait blocks until the loop has flushed after cancellation.
func (j *PersistenceJob) Wait() { j.wg.Wait() }

// Dropped reports writes discarded because the queue was full.
func (j *PersistenceJob) Dropped() uint64 { return j.dropped.Load() }

func (j *PersistenceJob) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case w := <-j.queue:
			j.exec(ctx, w)
		default:
			if j.sessions != nil && j.sessionID != "" {
				if err := j.sessions.EndSession(ctx, j.sessionID); err != nil {
					slog.Error("Persistence: failed to end session", "error", err)
				}
			}
			return
		}
	}
}

func (j *PersistenceJob) exec(ctx context.Context, w write) {
	if err := w.fn(ctx); err != nil {
		slog.Error("Persistence: write failed", "write", w.name, "error", err)
		return
	}
	slog.Debug("Persistence: saved", "write", w.name)
}

func (j *PersistenceJob) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case j.queue <- write{name: name, fn: fn}:
	default:
		j.dropped.Add(1)
		slog.Warn("Persistence: queue full, write dropped", "write", name)
	}
}

// PlatformChanged records a platform state change. It matches
// activation.StateListener.
func (j *PersistenceJob) PlatformChanged(from, to activation.State) {
	at := j.now()
	j.enqueue("transition", func(ctx context.Context) error {
		logging.LogEvent("platform", string(from), string(to), at)
		if j.sessions == nil || j.sessionID == "" {
			return nil
		}
		return j.sessions.RecordTransition(ctx, store.Transition{
			SessionID: j.sessionID,
			From:      string(from),
			To:        string(to),
			At:        at,
		})
	})
}

// ConnectionChanged writes simulator link changes to the event log.
func (j *PersistenceJob) ConnectionChanged(from, to sim.ConnState) {
	at := j.now()
	j.enqueue("connection", func(context.Context) error {
		logging.LogEvent("connection", string(from), string(to), at)
		return nil
	})
}

// SaveAxisGains implements Settings.
func (j *PersistenceJob) SaveAxisGains(g [6]float64) {
	j.enqueue(config.KeyAxisGains, func(ctx context.Context) error { return j.settings.SaveAxisGains(ctx, g) })
}

// SaveMasterGain implements Settings.
func (j *PersistenceJob) SaveMasterGain(g float64) {
	j.enqueue(config.KeyMasterGain, func(ctx context.Context) error { return j.settings.SaveMasterGain(ctx, g) })
}

// SaveIntensity implements Settings.
func (j *PersistenceJob) SaveIntensity(v int) {
	j.enqueue(config.KeyIntensity, func(ctx context.Context) error { return j.settings.SaveIntensity(ctx, v) })
}

// SaveLoadLevel implements Settings.
func (j *PersistenceJob) SaveLoadLevel(v int) {
	j.enqueue(config.KeyLoadLevel, func(ctx context.Context) error { return j.settings.SaveLoadLevel(ctx, v) })
}

// SaveFlightMode implements Settings.
func (j *PersistenceJob) SaveFlightMode(v int) {
	j.enqueue(config.KeyFlightMode, func(ctx context.Context) error { return j.settings.SaveFlightMode(ctx, v) })
}

// SaveAssistLevel implements Settings.
func (j *PersistenceJob) SaveAssistLevel(v int) {
	j.enqueue(config.KeyAssist, func(ctx context.Context) error { return j.settings.SaveAssistLevel(ctx, v) })
}
