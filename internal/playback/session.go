package playback

import (
	"context"

	"github.com/llehouerou/hifz/internal/clip"
)

// Chapter is what the controller needs to know about a surah.
type Chapter struct {
	Number     int
	VerseCount int
}

// request is a session definition, kept for Restart.
type request struct {
	mode       Mode
	chapter    Chapter
	start      int
	end        int
	loopTarget int
}

// session is the active playback context. All fields are guarded by the
// controller mutex.
type session struct {
	id  string
	req request

	index     int
	loopCount int
	status    Status
	clipSeq   uint64
	reciter   string // artist tag of the last clip that had one

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) ref() clip.Ref {
	return clip.Ref{Chapter: s.req.chapter.Number, Verse: s.index}
}

// bounds returns the first and last verse a pass covers.
func (s *session) bounds() (first, last int) {
	switch s.req.mode {
	case ModeRange:
		return s.req.start, s.req.end
	case ModeSequential:
		return 1, s.req.chapter.VerseCount
	default:
		return s.index, s.index
	}
}

func (s *session) snapshot() Snapshot {
	first, last := s.bounds()
	return Snapshot{
		SessionID:     s.id,
		Status:        s.status,
		Mode:          s.req.mode,
		Chapter:       s.req.chapter.Number,
		ChapterLength: s.req.chapter.VerseCount,
		Verse:         s.index,
		RangeStart:    first,
		RangeEnd:      last,
		LoopTarget:    s.req.loopTarget,
		LoopCount:     s.loopCount,
		Reciter:       s.reciter,
	}
}

// Snapshot is a copy of the session state. The zero value is Idle.
type Snapshot struct {
	SessionID     string `json:"sessionId,omitempty"`
	Status        Status `json:"status"`
	Mode          Mode   `json:"mode"`
	Chapter       int    `json:"chapter,omitempty"`
	ChapterLength int    `json:"chapterLength,omitempty"`
	Verse         int    `json:"verse,omitempty"`
	RangeStart    int    `json:"rangeStart,omitempty"`
	RangeEnd      int    `json:"rangeEnd,omitempty"`
	LoopTarget    int    `json:"loopTarget"`
	LoopCount     int    `json:"loopCount"`
	Reciter       string `json:"reciter,omitempty"`
}

// Active reports whether the snapshot describes a live session.
func (s Snapshot) Active() bool {
	return s.Status.IsActive()
}

// Ref returns the clip the session is on.
func (s Snapshot) Ref() clip.Ref {
	return clip.Ref{Chapter: s.Chapter, Verse: s.Verse}
}

// Looping reports whether the session repeats without bound.
func (s Snapshot) Looping() bool {
	return s.Active() && s.Mode != ModeSingle && s.LoopTarget == 0
}
