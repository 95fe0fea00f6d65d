// Package player sounds recitation clips. Engines play one clip at a time
// and report its end through a callback.
package player

import "github.com/llehouerou/hifz/internal/clip"

// Interface defines the audio engine contract for dependency injection and testing.
//
// Play starts the clip and returns once sound has started, or an error if
// the engine refuses it. done is invoked exactly once, from another
// goroutine, when the clip finishes (nil) or fails mid-stream. It is never
// invoked for a clip that was interrupted by Stop or a later Play.
type Interface interface {
	Play(c *clip.Clip, done func(error)) error
	Stop()
	State() State
	Close() error
}

// State is what the output is doing. A Play while Playing replaces the
// clip; Stop and the end of a clip return to Stopped.
type State int

const (
	Stopped State = iota
	Playing
)

var stateNames = [...]string{Stopped: "Stopped", Playing: "Playing"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

var (
	_ Interface = (*Speaker)(nil)
	_ Interface = (*MPD)(nil)
	_ Interface = (*Mock)(nil)
)
