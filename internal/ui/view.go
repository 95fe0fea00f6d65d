package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/hifz/internal/playback"
)

// headerHeight covers the title line and its bottom border.
const headerHeight = 2

func (m Model) chromeHeight() int {
	return headerHeight + 2 + lipgloss.Height(m.help.View(m.keys))
}

func (m Model) View() string {
	if m.width == 0 {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderVerses())
	b.WriteString(m.renderNote())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderHeader() string {
	var title string
	switch {
	case m.chapter == nil:
		title = titleStyle.Render(fmt.Sprintf("Chapter %d", m.number))
	default:
		c := m.chapter
		name := fmt.Sprintf("%d. %s", c.Number, c.EnglishName)
		if total := m.verseCount(); total > 0 && m.memorizedCount() == total {
			title = applyGradient(name, progressFrom, progressTo)
		} else {
			title = titleStyle.Render(name)
		}
		title += dimStyle.Render(fmt.Sprintf("  %s · %d verses · %s", c.EnglishMeaning, len(c.Verses), c.RevelationType))
	}
	right := m.chapterArabicName()
	if progress := m.renderProgress(); progress != "" {
		right = progress + "  " + right
	}
	return headerStyle.Width(m.width).Render(row(title, right, m.width))
}

const progressWidth = 12

func (m Model) memorizedCount() int {
	n := 0
	for v, ok := range m.memorized {
		if ok && v <= m.verseCount() {
			n++
		}
	}
	return n
}

// renderProgress shows how much of the chapter is memorized.
func (m Model) renderProgress() string {
	total := m.verseCount()
	if total == 0 {
		return ""
	}
	done := m.memorizedCount()
	return progressBar(done, total, progressWidth) + dimStyle.Render(fmt.Sprintf(" %d/%d", done, total))
}

func (m Model) chapterArabicName() string {
	if m.chapter == nil {
		return ""
	}
	return arabicStyle.Render(m.chapter.Name)
}

func (m Model) renderVerses() string {
	listHeight := m.listHeight()
	lines := listHeight * m.linesPerVerse()

	var b strings.Builder
	written := 0
	if m.chapter == nil {
		if m.loading {
			b.WriteString(m.spinner.View() + " Loading chapter...")
		}
		b.WriteString("\n")
		written++
	} else {
		end := min(m.offset+listHeight, m.verseCount())
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderVerse(i))
			written += m.linesPerVerse()
		}
	}
	for ; written < lines; written++ {
		b.WriteString("\n")
	}
	return b.String()
}

// renderVerse renders verse index i (0-based), one or two lines.
func (m Model) renderVerse(i int) string {
	v := m.chapter.Verses[i]
	n := i + 1

	// Gutter: play icon, range marker, memorized check, verse number.
	icon := " "
	if m.playingVerse(n) {
		icon = statusStyle.Render(iconPlaying)
		if m.snap.Status == playback.StatusLoading {
			icon = m.spinner.View()
		}
	}
	marker := " "
	if m.inRange(n) {
		marker = markStyle.Render(iconMark)
	}
	check := " "
	if m.memorized[n] {
		check = checkStyle.Render(iconMemorized)
	}
	if _, ok := m.notes[n]; ok {
		check += dimStyle.Render(iconNote)
	} else {
		check += " "
	}
	num := dimStyle.Render(fmt.Sprintf("%4s", strconv.Itoa(n)))
	gutter := icon + marker + check + num + " "
	textWidth := max(m.width-lipgloss.Width(gutter), 1)

	line := gutter + arabicStyle.Render(fit(v.Text, textWidth))
	if i == m.cursor {
		line = cursorStyle.Render(line)
	}

	out := line + "\n"
	if m.linesPerVerse() == 2 {
		out += strings.Repeat(" ", lipgloss.Width(gutter)) + dimStyle.Render(truncate(v.Translation, textWidth)) + "\n"
	}
	return out
}

// renderNote shows the editor, or the note of the verse under the cursor.
func (m Model) renderNote() string {
	if m.editing != 0 {
		return m.editor.View()
	}
	note, ok := m.notes[m.cursor+1]
	if !ok || m.chapter == nil {
		return ""
	}
	return dimStyle.Render(truncate(iconNote+" "+note, m.width))
}

func (m Model) renderStatus() string {
	if m.err != "" {
		return errorStyle.Render(truncate(m.err, m.width))
	}

	left := m.sessionLabel()
	if m.status != "" {
		left += dimStyle.Render("  " + m.status)
	}
	right := dimStyle.Render("repeat: " + loopTargetLabel(m.loopTarget))
	if m.mark != 0 {
		lo, hi := m.rangeBounds()
		right = markStyle.Render(fmt.Sprintf("range %d-%d", lo, hi)) + "  " + right
	}
	return row(left, right, m.width)
}

func (m Model) sessionLabel() string {
	s := m.snap
	if !s.Active() {
		return dimStyle.Render("■ stopped")
	}

	icon := iconPlaying
	if s.Status == playback.StatusLoading {
		icon = m.spinner.View()
	}

	where := fmt.Sprintf("%d:%d", s.Chapter, s.Verse)
	if name := m.chapterName(s.Chapter); name != "" {
		where = fmt.Sprintf("%s %d:%d", name, s.Chapter, s.Verse)
	}

	label := fmt.Sprintf("%s %s  %s", icon, s.Mode, where)
	switch s.Mode {
	case playback.ModeRange:
		label += fmt.Sprintf(" (%d-%d)", s.RangeStart, s.RangeEnd)
		label += "  " + loopLabel(s.LoopCount+1, s.LoopTarget)
	case playback.ModeSequential:
		label += "  " + loopLabel(s.LoopCount+1, s.LoopTarget)
	}
	if s.Reciter != "" {
		label += "  · " + s.Reciter
	}
	return statusStyle.Render(label)
}

func loopTargetLabel(n int) string {
	if n == 0 {
		return "∞"
	}
	return strconv.Itoa(n)
}
