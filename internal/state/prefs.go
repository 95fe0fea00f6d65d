package state

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/hifz/internal/db"
)

// PlaybackPrefs is the last playback setup used on a chapter, restored when
// the chapter is reopened.
type PlaybackPrefs struct {
	Mode       string // playback.Mode name
	RangeStart int
	RangeEnd   int
	LoopTarget int
}

func (m *Manager) SavePlaybackPrefs(chapter int, p PlaybackPrefs) error {
	_, err := m.db.Exec(`
		INSERT INTO playback_prefs (chapter, mode, range_start, range_end, loop_target, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chapter) DO UPDATE SET
			mode = excluded.mode,
			range_start = excluded.range_start,
			range_end = excluded.range_end,
			loop_target = excluded.loop_target,
			updated_at = excluded.updated_at
	`, chapter, p.Mode, dbutil.PositiveInt(p.RangeStart), dbutil.PositiveInt(p.RangeEnd), p.LoopTarget, time.Now().Unix())
	return err
}

// PlaybackPrefs returns the saved preferences of a chapter, or nil.
func (m *Manager) PlaybackPrefs(chapter int) (*PlaybackPrefs, error) {
	var p PlaybackPrefs
	var start, end sql.NullInt64
	err := m.db.QueryRow(`
		SELECT mode, range_start, range_end, loop_target
		FROM playback_prefs WHERE chapter = ?
	`, chapter).Scan(&p.Mode, &start, &end, &p.LoopTarget)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nothing saved yet
	}
	if err != nil {
		return nil, err
	}
	p.RangeStart = dbutil.IntOrZero(start)
	p.RangeEnd = dbutil.IntOrZero(end)
	return &p, nil
}
