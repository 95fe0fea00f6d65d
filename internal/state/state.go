// Package state persists the reader's progress: memorized verses, notes,
// reading positions and playback preferences.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "hifz"
	dbFileName   = "hifz.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   map[int]int // chapter -> verse, not yet written
	lastCh    int         // most recent chapter passed to SavePosition
}

// Open opens the database under the XDG data directory.
func Open() (*Manager, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	return OpenPath(dbPath)
}

// OpenPath opens the database at path (":memory:" for a throwaway store).
func OpenPath(path string) (*Manager, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serialises writers anyway, and ":memory:"
	// databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db, pending: make(map[int]int)}, nil
}

func (m *Manager) Close() error {
	m.Flush()
	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// Flush writes debounced positions now.
func (m *Manager) Flush() {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	pending, last := m.takePendingLocked()
	m.saveMu.Unlock()

	_ = savePositions(m.db, pending, last) //nolint:errcheck // best-effort like the timer path
}

func (m *Manager) takePendingLocked() (map[int]int, int) {
	if len(m.pending) == 0 {
		return nil, 0
	}
	pending := m.pending
	m.pending = make(map[int]int)
	return pending, m.lastCh
}

func getDBPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
