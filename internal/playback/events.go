package playback

import "github.com/llehouerou/hifz/internal/clip"

// StateChange is emitted on every status transition, including the
// implicit stop of a session replaced by a new play call.
type StateChange struct {
	Previous Snapshot
	Current  Snapshot
}

// VerseChange is emitted when a session moves to a verse: once when it
// starts and again on every advance.
//
// It is emitted before the verse's clip loads, so consumers can highlight
// the verse while it is still Loading.
type VerseChange struct {
	SessionID string
	Chapter   int
	Previous  int // 0 when the session just started
	Verse     int
	LoopCount int
}

// LoopComplete is emitted when Sequential or Range playback passes the
// last verse. Finished is set when that pass reached the loop target and
// the session stopped.
type LoopComplete struct {
	SessionID  string
	Chapter    int
	LoopCount  int
	LoopTarget int
	Finished   bool
}

// ErrorEvent is emitted when a clip fails in Single mode.
type ErrorEvent struct {
	Operation string // "load" or "play"
	Ref       clip.Ref
	Err       error
}
