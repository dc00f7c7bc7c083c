package store

import (
	"context"
	"time"
)

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Session is one run of the service against a platform.
type Session struct {
	ID          string     `json:"id"`
	Geometry    string     `json:"geometry"`
	SimProvider string     `json:"sim_provider"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	LastState   string     `json:"last_state"`
}

// Transition is one recorded platform state change.
type Transition struct {
	SessionID string    `json:"session_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	At        time.Time `json:"at"`
}

// SessionStore handles session bookkeeping.
type SessionStore interface {
	StartSession(ctx context.Context, geometry, simProvider string) (*Session, error)
	UpdateSessionState(ctx context.Context, id, state string) error
	RecordTransition(ctx context.Context, tr Transition) error
	EndSession(ctx context.Context, id string) error
	GetSession(ctx context.Context, id string) (*Session, error)
	RecentSessions(ctx context.Context, limit int) ([]*Session, error)
	Transitions(ctx context.Context, id string) ([]Transition, error)
	CloseDanglingSessions(ctx context.Context) (int64, error)
}
