package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/hifz/internal/errmsg"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/state"
)

const fetchTimeout = 20 * time.Second

// watchPlayback waits for the next controller event.
func watchPlayback(sub *playback.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return stateChangedMsg(e)
		case e := <-sub.VerseChanged:
			return verseChangedMsg(e)
		case e := <-sub.LoopCompleted:
			return loopCompletedMsg(e)
		case e := <-sub.Error:
			return playbackErrMsg(e)
		case <-sub.Done:
			return serviceClosedMsg{}
		}
	}
}

func loadChapter(src ChapterSource, store state.Interface, number int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		ch, err := src.Chapter(ctx, number)
		if err != nil {
			return errMsg{op: errmsg.OpChapterLoad, err: err}
		}

		msg := chapterLoadedMsg{chapter: ch}
		if store == nil {
			return msg
		}
		if msg.memorized, err = store.Memorized(number); err != nil {
			return errMsg{op: errmsg.OpPositionLoad, err: err}
		}
		if msg.position, err = store.Position(number); err != nil {
			return errMsg{op: errmsg.OpPositionLoad, err: err}
		}
		if msg.prefs, err = store.PlaybackPrefs(number); err != nil {
			return errMsg{op: errmsg.OpPositionLoad, err: err}
		}
		if msg.notes, err = store.Notes(number); err != nil {
			return errMsg{op: errmsg.OpPositionLoad, err: err}
		}
		return msg
	}
}

func listChapters(src ChapterSource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		infos, err := src.Chapters(ctx)
		if err != nil {
			return errMsg{op: errmsg.OpChaptersList, err: err}
		}
		return chaptersListedMsg{chapters: infos}
	}
}
