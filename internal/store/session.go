package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Session is one authoring session.
type Session struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Symbols    int        `json:"symbols"`
	Utterances int        `json:"utterances"`
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, mode, started_at_ms) VALUES (?, ?, ?)`,
		sess.ID, sess.Mode, toMillis(sess.StartedAt),
	)
	return err
}

// End marks a session as finished.
func (r *SessionRepository) End(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at_ms = ? WHERE id = ? AND ended_at_ms IS NULL`,
		toMillis(at), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `s.id, s.mode, s.started_at_ms, s.ended_at_ms,
	(SELECT COUNT(*) FROM symbols WHERE session_id = s.id AND removed_at_ms IS NULL),
	(SELECT COUNT(*) FROM utterances WHERE session_id = s.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var started int64
	var ended sql.NullInt64
	if err := row.Scan(&sess.ID, &sess.Mode, &started, &ended, &sess.Symbols, &sess.Utterances); err != nil {
		return nil, err
	}
	sess.StartedAt = fromMillis(started)
	sess.EndedAt = fromNullMillis(ended)
	return sess, nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns up to limit sessions, newest first.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s ORDER BY s.started_at_ms DESC, s.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
