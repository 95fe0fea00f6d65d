package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS memorized (
			chapter INTEGER NOT NULL,
			verse INTEGER NOT NULL,
			memorized_at INTEGER NOT NULL,
			PRIMARY KEY (chapter, verse)
		);

		CREATE TABLE IF NOT EXISTS notes (
			chapter INTEGER NOT NULL,
			verse INTEGER NOT NULL,
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (chapter, verse)
		);

		CREATE TABLE IF NOT EXISTS positions (
			chapter INTEGER PRIMARY KEY,
			verse INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reader_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_chapter INTEGER
		);

		CREATE TABLE IF NOT EXISTS playback_prefs (
			chapter INTEGER PRIMARY KEY,
			mode TEXT NOT NULL,
			range_start INTEGER,
			range_end INTEGER,
			loop_target INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memorized_chapter ON memorized(chapter);
		CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at DESC);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
