// internal/state/mock.go
package state

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

type verseKey struct{ chapter, verse int }

// Mock is an in-memory test double for Manager.
type Mock struct {
	mu        sync.Mutex
	memorized map[verseKey]time.Time
	notes     map[verseKey]Note
	positions map[int]int
	lastCh    int
	prefs     map[int]PlaybackPrefs
	closed    bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{
		memorized: make(map[verseKey]time.Time),
		notes:     make(map[verseKey]Note),
		positions: make(map[int]int),
		prefs:     make(map[int]PlaybackPrefs),
	}
}

func (m *Mock) SetMemorized(chapter, verse int, memorized bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := verseKey{chapter, verse}
	if memorized {
		m.memorized[k] = time.Now()
	} else {
		delete(m.memorized, k)
	}
	return nil
}

func (m *Mock) ToggleMemorized(chapter, verse int) (bool, error) {
	on, _ := m.IsMemorized(chapter, verse)
	return !on, m.SetMemorized(chapter, verse, !on)
}

func (m *Mock) SetMemorizedRange(_ context.Context, chapter, start, end int) error {
	for v := start; v <= end; v++ {
		_ = m.SetMemorized(chapter, v, true)
	}
	return nil
}

func (m *Mock) IsMemorized(chapter, verse int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.memorized[verseKey{chapter, verse}]
	return ok, nil
}

func (m *Mock) Memorized(chapter int) (map[int]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]time.Time)
	for k, at := range m.memorized {
		if k.chapter == chapter {
			out[k.verse] = at
		}
	}
	return out, nil
}

func (m *Mock) MemorizedCounts() (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]int)
	for k := range m.memorized {
		out[k.chapter]++
	}
	return out, nil
}

func (m *Mock) SaveNote(chapter, verse int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := verseKey{chapter, verse}
	body = strings.TrimSpace(body)
	if body == "" {
		delete(m.notes, k)
		return nil
	}
	m.notes[k] = Note{Chapter: chapter, Verse: verse, Body: body, UpdatedAt: time.Now()}
	return nil
}

func (m *Mock) Note(chapter, verse int) (*Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[verseKey{chapter, verse}]
	if !ok {
		return nil, nil //nolint:nilnil // matches Manager
	}
	return &n, nil
}

func (m *Mock) Notes(chapter int) ([]Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Note
	for k, n := range m.notes {
		if k.chapter == chapter {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b Note) int { return cmp.Compare(a.Verse, b.Verse) })
	return out, nil
}

func (m *Mock) DeleteNote(chapter, verse int) error {
	return m.SaveNote(chapter, verse, "")
}

func (m *Mock) SavePosition(chapter, verse int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[chapter] = verse
	m.lastCh = chapter
}

func (m *Mock) Position(chapter int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[chapter], nil
}

func (m *Mock) LastChapter() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCh, nil
}

func (m *Mock) SavePlaybackPrefs(chapter int, p PlaybackPrefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[chapter] = p
	return nil
}

func (m *Mock) PlaybackPrefs(chapter int) (*PlaybackPrefs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[chapter]
	if !ok {
		return nil, nil //nolint:nilnil // matches Manager
	}
	return &p, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
