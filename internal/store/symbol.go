package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Symbol is one confirmed symbol in a session.
type Symbol struct {
	ID          int64      `json:"id"`
	SessionID   string     `json:"session_id"`
	Position    int        `json:"position"`
	Symbol      string     `json:"symbol"`
	Confidence  float64    `json:"confidence"`
	ConfirmedAt time.Time  `json:"confirmed_at"`
	RemovedAt   *time.Time `json:"removed_at,omitempty"`
}

// SymbolRepository records confirmed symbols.
type SymbolRepository struct {
	db *sql.DB
}

// Symbols returns the symbol repository for this store.
func (s *Store) Symbols() *SymbolRepository {
	return &SymbolRepository{db: s.db}
}

// Append records a symbol at the end of the session's active sequence.
func (r *SymbolRepository) Append(ctx context.Context, sym *Symbol) error {
	if sym.ConfirmedAt.IsZero() {
		sym.ConfirmedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM symbols WHERE session_id = ? AND removed_at_ms IS NULL`,
		sym.SessionID,
	).Scan(&sym.Position); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO symbols (session_id, position, symbol, confidence, confirmed_at_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		sym.SessionID, sym.Position, sym.Symbol, sym.Confidence, toMillis(sym.ConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("insert symbol: %w", err)
	}
	if sym.ID, err = result.LastInsertId(); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveLast marks the last active symbol of a session as removed.
// Returns ErrNotFound when the session has no active symbols.
func (r *SymbolRepository) RemoveLast(ctx context.Context, sessionID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE symbols SET removed_at_ms = ?
		 WHERE id = (SELECT id FROM symbols WHERE session_id = ? AND removed_at_ms IS NULL
		             ORDER BY position DESC LIMIT 1)`,
		toMillis(at), sessionID,
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

// Clear marks every active symbol of a session as removed and returns how
// many were affected.
func (r *SymbolRepository) Clear(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE symbols SET removed_at_ms = ? WHERE session_id = ? AND removed_at_ms IS NULL`,
		toMillis(at), sessionID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// List returns every symbol recorded for a session, including removed ones,
// in confirmation order.
func (r *SymbolRepository) List(ctx context.Context, sessionID string) ([]*Symbol, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, position, symbol, confidence, confirmed_at_ms, removed_at_ms
		 FROM symbols WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []*Symbol
	for rows.Next() {
		sym := &Symbol{}
		var confirmed int64
		var removed sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.SessionID, &sym.Position, &sym.Symbol, &sym.Confidence, &confirmed, &removed); err != nil {
			return nil, err
		}
		sym.ConfirmedAt = fromMillis(confirmed)
		sym.RemovedAt = fromNullMillis(removed)
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Active returns the session's current sequence.
func (r *SymbolRepository) Active(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT symbol FROM symbols WHERE session_id = ? AND removed_at_ms IS NULL ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
