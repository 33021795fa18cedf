package store

import (
	"context"
	"database/sql"
	"time"
)

// Utterance is a word handed to the speech output.
type Utterance struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Trigger   string    `json:"trigger"`
	Success   bool      `json:"success"`
	SpokenAt  time.Time `json:"spoken_at"`
}

// UtteranceRepository records spoken words.
type UtteranceRepository struct {
	db *sql.DB
}

// Utterances returns the utterance repository for this store.
func (s *Store) Utterances() *UtteranceRepository {
	return &UtteranceRepository{db: s.db}
}

// Record inserts an utterance.
func (r *UtteranceRepository) Record(ctx context.Context, u *Utterance) error {
	if u.SpokenAt.IsZero() {
		u.SpokenAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO utterances (session_id, text, trigger_type, success, spoken_at_ms) VALUES (?, ?, ?, ?, ?)`,
		u.SessionID, u.Text, u.Trigger, u.Success, toMillis(u.SpokenAt),
	)
	if err != nil {
		return err
	}
	u.ID, err = result.LastInsertId()
	return err
}

// List returns a session's utterances in order.
func (r *UtteranceRepository) List(ctx context.Context, sessionID string) ([]*Utterance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, text, trigger_type, success, spoken_at_ms
		 FROM utterances WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Utterance
	for rows.Next() {
		u := &Utterance{}
		var spoken int64
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Text, &u.Trigger, &u.Success, &spoken); err != nil {
			return nil, err
		}
		u.SpokenAt = fromMillis(spoken)
		out = append(out, u)
	}
	return out, rows.Err()
}
