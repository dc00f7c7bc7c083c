package core

import (
	"context"
	"sync/atomic"
	"time"

	"simmotion/pkg/activation"
)

// Job is a side task evaluated after every tick. Run is fired on its own
// goroutine and must not touch pipeline state.
type Job interface {
	Name() string
	ShouldFire(u *SimUpdate) bool
	Run(ctx context.Context, u SimUpdate)
}

// AddJob registers a job. Call before Run.
func (p *Pipeline) AddJob(j Job) {
	p.jobs = append(p.jobs, j)
}

func (p *Pipeline) runJobs(ctx context.Context, u SimUpdate) {
	for _, job := range p.jobs {
		if job.ShouldFire(&u) {
			go job.Run(ctx, u)
		}
	}
}

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

func (b *BaseJob) busy() bool {
	return atomic.LoadInt32(&b.running) == 1
}

// TimeJob fires when time elapsed exceeds threshold.
type TimeJob struct {
	BaseJob
	lastTime  atomic.Int64
	threshold time.Duration
	action    func(context.Context, SimUpdate)
}

func NewTimeJob(name string, threshold time.Duration, action func(context.Context, SimUpdate)) *TimeJob {
	return &TimeJob{
		BaseJob:   NewBaseJob(name),
		threshold: threshold,
		action:    action,
	}
}

func (j *TimeJob) ShouldFire(u *SimUpdate) bool {
	if j.busy() {
		return false
	}
	last := j.lastTime.Load()
	if last == 0 {
		return true
	}
	return u.At.Sub(time.Unix(0, last)) >= j.threshold
}

func (j *TimeJob) Run(ctx context.Context, u SimUpdate) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.lastTime.Store(u.At.UnixNano())
	j.action(ctx, u)
}

// StateJob fires once each time the platform enters one of the given states.
type StateJob struct {
	BaseJob
	states []activation.State
	last   atomic.Value // activation.State
	action func(context.Context, SimUpdate)
}

func NewStateJob(name string, action func(context.Context, SimUpdate), states ...activation.State) *StateJob {
	j := &StateJob{BaseJob: NewBaseJob(name), states: states, action: action}
	j.last.Store(activation.State(""))
	return j
}

func (j *StateJob) ShouldFire(u *SimUpdate) bool {
	prev := j.last.Swap(u.PlatformState).(activation.State)
	if prev == u.PlatformState || j.busy() {
		return false
	}
	for _, s := range j.states {
		if s == u.PlatformState {
			return true
		}
	}
	return false
}

func (j *StateJob) Run(ctx context.Context, u SimUpdate) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()
	j.action(ctx, u)
}
