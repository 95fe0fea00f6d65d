package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/hifz/internal/errmsg"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/quran"
	"github.com/llehouerou/hifz/internal/state"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case chapterLoadedMsg:
		return m.handleChapterLoaded(msg), nil

	case chaptersListedMsg:
		m.index = msg.chapters
		return m, nil

	case errMsg:
		m.loading = false
		m.err = errmsg.Format(msg.op, msg.err)
		m.logger.Warn("operation failed", "op", string(msg.op), "err", msg.err)
		return m, nil

	case stateChangedMsg:
		prevLoading := m.snap.Status == playback.StatusLoading
		m.snap = msg.Current
		cmds := []tea.Cmd{watchPlayback(m.sub)}
		if m.snap.Status == playback.StatusLoading && !prevLoading {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case verseChangedMsg:
		if msg.SessionID == m.snap.SessionID {
			m.snap.Verse = msg.Verse
			m.snap.LoopCount = msg.LoopCount
		}
		if m.chapter != nil && msg.Chapter == m.chapter.Number {
			m.cursor = msg.Verse - 1
			m.ensureVisible()
		}
		return m, watchPlayback(m.sub)

	case loopCompletedMsg:
		if msg.Finished {
			m.status = fmt.Sprintf("Finished %d repeats", msg.LoopCount)
		} else {
			m.status = loopLabel(msg.LoopCount, msg.LoopTarget)
		}
		return m, watchPlayback(m.sub)

	case playbackErrMsg:
		m.err = errmsg.FormatWith(errmsg.OpClipLoad, msg.Ref.String(), msg.Err)
		return m, watchPlayback(m.sub)

	case serviceClosedMsg:
		m.sub = nil
		return m, nil

	case spinner.TickMsg:
		if m.snap.Status != playback.StatusLoading && !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleChapterLoaded(msg chapterLoadedMsg) Model {
	if msg.chapter.Number != m.number {
		return m // superseded by a later chapter change
	}

	m.loading = false
	m.err = ""
	m.chapter = msg.chapter
	m.memorized = make(map[int]bool, len(msg.memorized))
	for v := range msg.memorized {
		m.memorized[v] = true
	}
	m.notes = make(map[int]string, len(msg.notes))
	for _, n := range msg.notes {
		m.notes[n.Verse] = n.Body
	}
	m.editing = 0
	m.editor.Blur()

	m.mark = 0
	m.loopTarget = m.defaultLoopTarget
	if p := msg.prefs; p != nil {
		m.loopTarget = p.LoopTarget
		mode, err := playback.ParseMode(p.Mode)
		if err == nil && mode == playback.ModeRange && p.RangeStart > 0 && p.RangeStart <= m.verseCount() {
			m.mark = p.RangeStart
		}
	}

	m.offset = 0
	m.cursor = 0
	if msg.position > 0 {
		m.cursor = min(msg.position, m.verseCount()) - 1
	}
	m.ensureVisible()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing != 0 {
		return m.handleEditorKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.ensureVisible()
		return m, nil
	case key.Matches(msg, m.keys.NextChap):
		return m.changeChapter(m.number + 1)
	case key.Matches(msg, m.keys.PrevChap):
		return m.changeChapter(m.number - 1)
	case key.Matches(msg, m.keys.Stop):
		m.playback.Stop()
		return m, nil
	}

	if m.chapter == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, m.keys.Top):
		m.jumpTo(0)
	case key.Matches(msg, m.keys.Bottom):
		m.jumpTo(m.verseCount() - 1)

	case key.Matches(msg, m.keys.Play):
		m.clearMessages()
		m.report(errmsg.OpPlaybackStart, m.playback.PlaySingle(m.playbackChapter(), m.cursor+1))

	case key.Matches(msg, m.keys.PlayAll):
		m.clearMessages()
		if m.report(errmsg.OpPlaybackStart, m.playback.PlaySequential(m.playbackChapter(), m.loopTarget)) {
			m.savePrefs(playback.ModeSequential)
		}

	case key.Matches(msg, m.keys.Mark):
		if m.mark == m.cursor+1 {
			m.mark = 0
		} else {
			m.mark = m.cursor + 1
		}

	case key.Matches(msg, m.keys.PlayRange):
		m.clearMessages()
		lo, hi := m.rangeBounds()
		if m.report(errmsg.OpPlaybackRange, m.playback.PlayRange(m.playbackChapter(), lo, hi, m.loopTarget)) {
			m.savePrefs(playback.ModeRange)
		}

	case key.Matches(msg, m.keys.LoopMore):
		m.loopTarget = min(m.loopTarget+1, maxLoopTarget)
	case key.Matches(msg, m.keys.LoopLess):
		m.loopTarget = max(m.loopTarget-1, 0)

	case key.Matches(msg, m.keys.Memorized):
		m.toggleMemorized()

	case key.Matches(msg, m.keys.MemoRange):
		m.memorizeRange()

	case key.Matches(msg, m.keys.Note):
		m.editing = m.cursor + 1
		m.editor.SetValue(m.notes[m.editing])
		m.editor.CursorEnd()
		m.editor.Width = max(m.width-4, 10)
		return m, m.editor.Focus()
	}

	return m, nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		m.saveNote(m.editing, m.editor.Value())
		fallthrough
	case key.Matches(msg, m.keys.Cancel):
		m.editing = 0
		m.editor.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// saveNote stores body for verse; a blank body deletes the note.
func (m *Model) saveNote(verse int, body string) {
	body = strings.TrimSpace(body)
	if m.store != nil && m.chapter != nil {
		var err error
		op := errmsg.OpNoteSave
		if body == "" {
			op = errmsg.OpNoteDelete
			err = m.store.DeleteNote(m.chapter.Number, verse)
		} else {
			err = m.store.SaveNote(m.chapter.Number, verse, body)
		}
		if err != nil {
			m.err = errmsg.Format(op, err)
			return
		}
	}
	if body == "" {
		delete(m.notes, verse)
	} else {
		m.notes[verse] = body
	}
}

// changeChapter silences every player before switching chapters.
func (m Model) changeChapter(n int) (tea.Model, tea.Cmd) {
	if n < 1 || n > quran.ChapterCount || n == m.number {
		return m, nil
	}
	if m.bus != nil {
		m.bus.StopAll("tui", "chapter change")
	} else {
		m.playback.Stop()
	}

	m.number = n
	m.loading = true
	m.clearMessages()
	return m, tea.Batch(loadChapter(m.source, m.store, n), m.spinner.Tick)
}

func (m *Model) toggleMemorized() {
	v := m.cursor + 1
	if m.store == nil {
		m.memorized[v] = !m.memorized[v]
		return
	}
	on, err := m.store.ToggleMemorized(m.chapter.Number, v)
	if err != nil {
		m.err = errmsg.Format(errmsg.OpMemorizedToggle, err)
		return
	}
	m.memorized[v] = on
}

// memorizeRange marks every verse from the range mark to the cursor and
// clears the mark.
func (m *Model) memorizeRange() {
	if m.chapter == nil {
		return
	}
	lo, hi := m.rangeBounds()
	if m.store != nil {
		if err := m.store.SetMemorizedRange(context.Background(), m.chapter.Number, lo, hi); err != nil {
			m.err = errmsg.Format(errmsg.OpMemorizedRange, err)
			return
		}
	}
	for v := lo; v <= hi; v++ {
		m.memorized[v] = true
	}
	m.mark = 0
}

func (m *Model) savePrefs(mode playback.Mode) {
	if m.store == nil {
		return
	}
	p := state.PlaybackPrefs{Mode: mode.String(), LoopTarget: m.loopTarget}
	if mode == playback.ModeRange {
		p.RangeStart, p.RangeEnd = m.rangeBounds()
	}
	if err := m.store.SavePlaybackPrefs(m.chapter.Number, p); err != nil {
		m.logger.Warn("save playback prefs", "err", err)
	}
}

// report shows err, if any, and returns true when there was none.
func (m *Model) report(op errmsg.Op, err error) bool {
	if err == nil {
		return true
	}
	var rangeErr *playback.RangeError
	if errors.As(err, &rangeErr) {
		m.err = fmt.Sprintf("Invalid range %d-%d (chapter has %d verses)", rangeErr.Start, rangeErr.End, rangeErr.Length)
		return false
	}
	m.err = errmsg.Format(op, err)
	return false
}

func (m *Model) clearMessages() {
	m.err = ""
	m.status = ""
}

func loopLabel(count, target int) string {
	if target == 0 {
		return fmt.Sprintf("Repeat %d", count)
	}
	return fmt.Sprintf("Repeat %d/%d", count, target)
}
