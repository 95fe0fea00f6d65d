// internal/state/interface.go
package state

import (
	"context"
	"time"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	SetMemorized(chapter, verse int, memorized bool) error
	ToggleMemorized(chapter, verse int) (bool, error)
	SetMemorizedRange(ctx context.Context, chapter, start, end int) error
	IsMemorized(chapter, verse int) (bool, error)
	Memorized(chapter int) (map[int]time.Time, error)
	MemorizedCounts() (map[int]int, error)

	SaveNote(chapter, verse int, body string) error
	Note(chapter, verse int) (*Note, error)
	Notes(chapter int) ([]Note, error)
	DeleteNote(chapter, verse int) error

	SavePosition(chapter, verse int)
	Position(chapter int) (int, error)
	LastChapter() (int, error)

	SavePlaybackPrefs(chapter int, p PlaybackPrefs) error
	PlaybackPrefs(chapter int) (*PlaybackPrefs, error)

	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
