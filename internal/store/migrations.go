package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Recordings table - one row per finished session, frames kept as JSON
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			start_time INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL CHECK(duration_ms >= 0),
			frame_count INTEGER NOT NULL DEFAULT 0,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Recording hands table - which hands appear in each recording
		`CREATE TABLE IF NOT EXISTS recording_hands (
			recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			handedness TEXT NOT NULL,
			frames INTEGER NOT NULL,
			PRIMARY KEY (recording_id, handedness)
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_recordings_start_time ON recordings(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_label ON recordings(label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
