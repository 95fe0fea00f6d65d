// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"
)

// Op represents an operation that can fail.
type Op string

// Operations, grouped by the component that runs them.
const (
	// Verse text
	OpChapterLoad  Op = "load chapter"
	OpChaptersList Op = "list chapters"

	// Playback
	OpPlaybackStart   Op = "start playback"
	OpPlaybackRange   Op = "play range"
	OpPlaybackRestart Op = "restart playback"
	OpClipLoad        Op = "load recitation clip"

	// Clip cache
	OpCacheDownload Op = "download chapter audio"
	OpCacheClear    Op = "clear audio cache"
	OpCachePrune    Op = "prune audio cache"

	// User state
	OpMemorizedToggle Op = "update memorization"
	OpMemorizedRange  Op = "mark verses memorized"
	OpProgressLoad    Op = "load memorization progress"
	OpNoteSave        Op = "save note"
	OpNoteDelete      Op = "delete note"
	OpPositionLoad    Op = "load reading position"
	OpPrefsSave       Op = "save playback preferences"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Error pairs a failed operation with its subject and cause. It unwraps
// to the cause, so errors.Is keeps working on wrapped sentinels.
type Error struct {
	Op      Op
	Subject string // chapter, verse reference or path; may be empty
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", e.Op, e.Subject, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err.
func Wrap(op Op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Subject: subject, Err: err}
}

// Format renders err for the status line. An *Error already carrying an
// operation is shown as is.
func Format(op Op, err error) string {
	return FormatWith(op, "", err)
}

func FormatWith(op Op, subject string, err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return (&Error{Op: op, Subject: subject, Err: err}).Error()
}
