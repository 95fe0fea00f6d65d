// Package ui is the terminal chapter view: verse text, per-verse playback
// and memorization markers, driven by the playback controller's events.
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/llehouerou/hifz/internal/broadcast"
	"github.com/llehouerou/hifz/internal/logging"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/quran"
	"github.com/llehouerou/hifz/internal/state"
)

// scrollMargin is the number of verses kept visible above and below the
// cursor.
const scrollMargin = 3

// maxLoopTarget caps the repeat count reachable with +.
const maxLoopTarget = 99

const noteCharLimit = 500

// ChapterSource provides verse text.
type ChapterSource interface {
	Chapters(ctx context.Context) ([]quran.ChapterInfo, error)
	Chapter(ctx context.Context, number int) (*quran.Chapter, error)
}

// Options configures the chapter view.
type Options struct {
	Playback playback.Service
	Bus      *broadcast.Bus // optional; chapter changes raise stop all audio
	Chapters ChapterSource
	State    state.Interface // optional
	Logger   *log.Logger

	Chapter    int // chapter to open, 0 = last opened (or 1)
	LoopTarget int // default repeat count for Sequential and Range
}

// Model is the bubbletea model for the chapter view.
type Model struct {
	playback playback.Service
	bus      *broadcast.Bus
	source   ChapterSource
	store    state.Interface
	logger   *log.Logger
	sub      *playback.Subscription

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	width, height int

	number    int // chapter being shown or loaded
	chapter   *quran.Chapter
	index     []quran.ChapterInfo
	memorized map[int]bool
	notes     map[int]string

	cursor int // 0-based verse index
	offset int // first visible verse
	mark   int // range start verse, 0 = none

	editor  textinput.Model
	editing int // verse whose note is being edited, 0 = none

	loopTarget        int
	defaultLoopTarget int

	// snap mirrors the controller, updated only from subscription events.
	snap playback.Snapshot

	status  string
	err     string
	loading bool
}

// New creates the chapter view and subscribes to the controller.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	number := opts.Chapter
	if number == 0 && opts.State != nil {
		if last, err := opts.State.LastChapter(); err == nil {
			number = last
		}
	}
	if number < 1 || number > quran.ChapterCount {
		number = 1
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = statusStyle

	editor := textinput.New()
	editor.Prompt = iconNote + " "
	editor.Placeholder = "note for this verse"
	editor.CharLimit = noteCharLimit

	return Model{
		playback:          opts.Playback,
		bus:               opts.Bus,
		source:            opts.Chapters,
		store:             opts.State,
		logger:            logger.With("component", "ui"),
		sub:               opts.Playback.Subscribe(),
		keys:              defaultKeyMap(),
		help:              help.New(),
		spinner:           sp,
		editor:            editor,
		number:            number,
		memorized:         map[int]bool{},
		notes:             map[int]string{},
		loopTarget:        opts.LoopTarget,
		defaultLoopTarget: opts.LoopTarget,
		snap:              opts.Playback.Snapshot(),
		loading:           true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadChapter(m.source, m.store, m.number),
		listChapters(m.source),
		watchPlayback(m.sub),
		m.spinner.Tick,
	)
}

// verseCount returns the number of verses of the loaded chapter.
func (m Model) verseCount() int {
	if m.chapter == nil {
		return 0
	}
	return len(m.chapter.Verses)
}

func (m Model) playbackChapter() playback.Chapter {
	return playback.Chapter{Number: m.chapter.Number, VerseCount: m.verseCount()}
}

// chapterName returns the transliterated name of chapter n, if known.
func (m Model) chapterName(n int) string {
	if m.chapter != nil && m.chapter.Number == n {
		return m.chapter.EnglishName
	}
	for _, c := range m.index {
		if c.Number == n {
			return c.EnglishName
		}
	}
	return ""
}

// playingVerse reports whether the controller is on verse v of the
// chapter on screen.
func (m Model) playingVerse(v int) bool {
	return m.snap.Active() && m.chapter != nil &&
		m.snap.Chapter == m.chapter.Number && m.snap.Verse == v
}

// inRange reports whether v lies between the mark and the cursor.
func (m Model) inRange(v int) bool {
	if m.mark == 0 {
		return false
	}
	lo, hi := m.rangeBounds()
	return v >= lo && v <= hi
}

func (m Model) rangeBounds() (lo, hi int) {
	cur := m.cursor + 1
	if m.mark == 0 {
		return cur, cur
	}
	return min(m.mark, cur), max(m.mark, cur)
}

// listHeight is the number of verse rows that fit on screen.
func (m Model) listHeight() int {
	return max(m.height-m.chromeHeight(), 1) / m.linesPerVerse()
}

func (m Model) linesPerVerse() int {
	if m.hasTranslation() {
		return 2
	}
	return 1
}

func (m Model) hasTranslation() bool {
	if m.chapter == nil {
		return false
	}
	for _, v := range m.chapter.Verses {
		if v.Translation != "" {
			return true
		}
	}
	return false
}

// moveCursor moves by delta verses, keeping the cursor in view.
func (m *Model) moveCursor(delta int) {
	m.jumpTo(m.cursor + delta)
}

func (m *Model) jumpTo(pos int) {
	n := m.verseCount()
	if n == 0 {
		return
	}
	m.cursor = min(max(pos, 0), n-1)
	m.ensureVisible()
	if m.store != nil {
		m.store.SavePosition(m.chapter.Number, m.cursor+1)
	}
}

func (m *Model) ensureVisible() {
	height := m.listHeight()
	n := m.verseCount()
	margin := min(scrollMargin, (height-1)/2)

	if m.cursor < m.offset+margin {
		m.offset = max(m.cursor-margin, 0)
	}
	if m.cursor >= m.offset+height-margin {
		m.offset = m.cursor - height + margin + 1
	}
	m.offset = min(max(m.offset, 0), max(n-height, 0))
}
