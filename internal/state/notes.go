package state

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	dbutil "github.com/llehouerou/hifz/internal/db"
)

// Note is free text attached to a verse.
type Note struct {
	Chapter   int
	Verse     int
	Body      string
	UpdatedAt time.Time
}

// SaveNote stores body for a verse. A blank body deletes the note.
func (m *Manager) SaveNote(chapter, verse int, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return m.DeleteNote(chapter, verse)
	}
	_, err := m.db.Exec(`
		INSERT INTO notes (chapter, verse, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(chapter, verse) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, chapter, verse, body, time.Now().Unix())
	return err
}

// Note returns the note of a verse, or nil if there is none.
func (m *Manager) Note(chapter, verse int) (*Note, error) {
	n := Note{Chapter: chapter, Verse: verse}
	var at int64
	err := m.db.QueryRow(`SELECT body, updated_at FROM notes WHERE chapter = ? AND verse = ?`,
		chapter, verse).Scan(&n.Body, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no note is not an error
	}
	if err != nil {
		return nil, err
	}
	n.UpdatedAt = dbutil.UnixTime(at)
	return &n, nil
}

func (m *Manager) DeleteNote(chapter, verse int) error {
	_, err := m.db.Exec(`DELETE FROM notes WHERE chapter = ? AND verse = ?`, chapter, verse)
	return err
}

// Notes returns a chapter's notes ordered by verse.
func (m *Manager) Notes(chapter int) ([]Note, error) {
	rows, err := m.db.Query(`
		SELECT verse, body, updated_at FROM notes
		WHERE chapter = ?
		ORDER BY verse
	`, chapter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n := Note{Chapter: chapter}
		var at int64
		if err := rows.Scan(&n.Verse, &n.Body, &at); err != nil {
			return nil, err
		}
		n.UpdatedAt = dbutil.UnixTime(at)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
