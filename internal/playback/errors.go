package playback

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChapter    = errors.New("invalid chapter")
	ErrInvalidVerse      = errors.New("invalid verse")
	ErrInvalidRange      = errors.New("invalid range")
	ErrInvalidLoopTarget = errors.New("invalid loop target")
	ErrNothingToRestart  = errors.New("nothing to restart")
	ErrClosed            = errors.New("playback controller closed")
)

// RangeError describes rejected range bounds. It matches ErrInvalidRange.
type RangeError struct {
	Start  int
	End    int
	Length int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range %d-%d for chapter of %d verses", e.Start, e.End, e.Length)
}

func (e *RangeError) Unwrap() error {
	return ErrInvalidRange
}

func validateChapter(ch Chapter) error {
	if ch.Number < 1 || ch.VerseCount < 1 {
		return fmt.Errorf("%w: number %d with %d verses", ErrInvalidChapter, ch.Number, ch.VerseCount)
	}
	return nil
}
