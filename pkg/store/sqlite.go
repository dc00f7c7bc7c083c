package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"simmotion/pkg/db"
)

// Store defines the repository interface.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	StateStore
	SessionStore

	// Close closes the store connection.
	Close() error
}

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// SQLiteStore implements Store.
type SQLiteStore struct {
	db  *db.DB
	now func() time.Time
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, s.now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}

// --- Sessions ---

func (s *SQLiteStore) StartSession(ctx context.Context, geometry, simProvider string) (*Session, error) {
	sess := &Session{
		ID:          uuid.New().String(),
		Geometry:    geometry,
		SimProvider: simProvider,
		StartedAt:   s.now(),
		LastState:   "initialized",
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, geometry, sim_provider, started_at, last_state) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Geometry, sess.SimProvider, sess.StartedAt, sess.LastState)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) UpdateSessionState(ctx context.Context, id, state string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET last_state = ? WHERE id = ?", state, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) RecordTransition(ctx context.Context, tr Transition) error {
	if tr.At.IsZero() {
		tr.At = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (session_id, from_state, to_state, at) VALUES (?, ?, ?, ?)`,
		tr.SessionID, tr.From, tr.To, tr.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return s.UpdateSessionState(ctx, tr.SessionID, tr.To)
}

func (s *SQLiteStore) EndSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL", s.now(), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, geometry, sim_provider, started_at, ended_at, last_state FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

func (s *SQLiteStore) RecentSessions(ctx context.Context, limit int) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, geometry, sim_provider, started_at, ended_at, last_state FROM sessions
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Transitions(ctx context.Context, id string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, from_state, to_state, at FROM transitions WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.SessionID, &tr.From, &tr.To, &tr.At); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// CloseDanglingSessions ends sessions left open by a crash, stamping them
// with their start time.
func (s *SQLiteStore) CloseDanglingSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET ended_at = started_at WHERE ended_at IS NULL")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	var sess Session
	var provider sql.NullString
	var ended sql.NullTime
	if err := r.Scan(&sess.ID, &sess.Geometry, &provider, &sess.StartedAt, &ended, &sess.LastState); err != nil {
		return nil, err
	}
	sess.SimProvider = provider.String
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}
