package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/hifz/internal/db"
)

// SavePosition records the focused verse of a chapter. Writes are
// debounced: rapid scrolling costs one write.
func (m *Manager) SavePosition(chapter, verse int) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending[chapter] = verse
	m.lastCh = chapter

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending, last := m.takePendingLocked()
		m.saveMu.Unlock()

		_ = savePositions(m.db, pending, last) //nolint:errcheck // position is advisory
	})
}

// Position returns the saved verse of a chapter, 0 if none.
func (m *Manager) Position(chapter int) (int, error) {
	m.saveMu.Lock()
	verse, ok := m.pending[chapter]
	m.saveMu.Unlock()
	if ok {
		return verse, nil
	}

	err := m.db.QueryRow(`SELECT verse FROM positions WHERE chapter = ?`, chapter).Scan(&verse)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return verse, err
}

// LastChapter returns the chapter most recently positioned, 0 if none.
func (m *Manager) LastChapter() (int, error) {
	m.saveMu.Lock()
	last := m.lastCh
	pending := len(m.pending) > 0
	m.saveMu.Unlock()
	if pending {
		return last, nil
	}

	var ch sql.NullInt64
	err := m.db.QueryRow(`SELECT last_chapter FROM reader_state WHERE id = 1`).Scan(&ch)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return dbutil.IntOrZero(ch), err
}

func savePositions(db *sql.DB, positions map[int]int, last int) error {
	if len(positions) == 0 {
		return nil
	}
	now := time.Now().Unix()
	return dbutil.WithTx(context.Background(), db, func(tx *sql.Tx) error {
		for ch, verse := range positions {
			if _, err := tx.Exec(`
				INSERT INTO positions (chapter, verse, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(chapter) DO UPDATE SET
					verse = excluded.verse,
					updated_at = excluded.updated_at
			`, ch, verse, now); err != nil {
				return err
			}
		}
		_, err := tx.Exec(`
			INSERT INTO reader_state (id, last_chapter) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET last_chapter = excluded.last_chapter
		`, last)
		return err
	})
}
