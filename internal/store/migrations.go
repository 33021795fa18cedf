package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per authoring session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL CHECK(mode IN ('word', 'letter')),
			started_at_ms INTEGER NOT NULL,
			ended_at_ms INTEGER
		)`,

		// Symbols table - confirmed symbols in sign order, marked on undo/clear
		`CREATE TABLE IF NOT EXISTS symbols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			confidence REAL NOT NULL,
			confirmed_at_ms INTEGER NOT NULL,
			removed_at_ms INTEGER
		)`,

		// Utterances table - words handed to the speech output
		`CREATE TABLE IF NOT EXISTS utterances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			trigger_type TEXT NOT NULL,
			success INTEGER NOT NULL DEFAULT 1,
			spoken_at_ms INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_symbols_session_id ON symbols(session_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_utterances_session_id ON utterances(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
