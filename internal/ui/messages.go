package ui

import (
	"time"

	"github.com/llehouerou/hifz/internal/errmsg"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/quran"
	"github.com/llehouerou/hifz/internal/state"
)

// chapterLoadedMsg carries a chapter together with its saved user state.
type chapterLoadedMsg struct {
	chapter   *quran.Chapter
	memorized map[int]time.Time
	position  int
	prefs     *state.PlaybackPrefs
	notes     []state.Note
}

type chaptersListedMsg struct {
	chapters []quran.ChapterInfo
}

// errMsg reports a failed background operation.
type errMsg struct {
	op  errmsg.Op
	err error
}

// Playback subscription events.
type (
	stateChangedMsg  playback.StateChange
	verseChangedMsg  playback.VerseChange
	loopCompletedMsg playback.LoopComplete
	playbackErrMsg   playback.ErrorEvent
	serviceClosedMsg struct{}
)
