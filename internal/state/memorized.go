package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/hifz/internal/db"
)

// SetMemorized marks or unmarks one verse.
func (m *Manager) SetMemorized(chapter, verse int, memorized bool) error {
	if !memorized {
		_, err := m.db.Exec(`DELETE FROM memorized WHERE chapter = ? AND verse = ?`, chapter, verse)
		return err
	}
	_, err := m.db.Exec(`
		INSERT INTO memorized (chapter, verse, memorized_at) VALUES (?, ?, ?)
		ON CONFLICT(chapter, verse) DO NOTHING
	`, chapter, verse, time.Now().Unix())
	return err
}

// ToggleMemorized flips a verse and returns its new state.
func (m *Manager) ToggleMemorized(chapter, verse int) (bool, error) {
	on, err := m.IsMemorized(chapter, verse)
	if err != nil {
		return false, err
	}
	if err := m.SetMemorized(chapter, verse, !on); err != nil {
		return on, err
	}
	return !on, nil
}

// SetMemorizedRange marks verses start..end in one transaction.
func (m *Manager) SetMemorizedRange(ctx context.Context, chapter, start, end int) error {
	now := time.Now().Unix()
	return dbutil.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO memorized (chapter, verse, memorized_at) VALUES (?, ?, ?)
			ON CONFLICT(chapter, verse) DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for v := start; v <= end; v++ {
			if _, err := stmt.ExecContext(ctx, chapter, v, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *Manager) IsMemorized(chapter, verse int) (bool, error) {
	var one int
	err := m.db.QueryRow(`SELECT 1 FROM memorized WHERE chapter = ? AND verse = ?`, chapter, verse).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Memorized returns the memorized verses of a chapter with the time they
// were marked.
func (m *Manager) Memorized(chapter int) (map[int]time.Time, error) {
	rows, err := m.db.Query(`SELECT verse, memorized_at FROM memorized WHERE chapter = ?`, chapter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var verse int
		var at int64
		if err := rows.Scan(&verse, &at); err != nil {
			return nil, err
		}
		out[verse] = dbutil.UnixTime(at)
	}
	return out, rows.Err()
}

// MemorizedCounts returns how many verses are memorized per chapter.
func (m *Manager) MemorizedCounts() (map[int]int, error) {
	rows, err := m.db.Query(`SELECT chapter, COUNT(*) FROM memorized GROUP BY chapter`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var ch, n int
		if err := rows.Scan(&ch, &n); err != nil {
			return nil, err
		}
		out[ch] = n
	}
	return out, rows.Err()
}
