package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/llehouerou/hifz/internal/errmsg"
)

// ErrNoState is returned by operations that need the user state store
// when the App was built without WithState.
var ErrNoState = errors.New("user state not opened")

// ChapterProgress is the memorization progress of one chapter.
type ChapterProgress struct {
	Number    int
	Name      string
	Memorized int
	Verses    int
}

// Progress lists the chapters with at least one memorized verse, in
// chapter order.
func (a *App) Progress(ctx context.Context) ([]ChapterProgress, error) {
	if a.State == nil {
		return nil, ErrNoState
	}
	counts, err := a.State.MemorizedCounts()
	if err != nil {
		return nil, errmsg.Wrap(errmsg.OpProgressLoad, "", err)
	}
	if len(counts) == 0 {
		return nil, nil
	}

	infos, err := a.Quran.Chapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("chapter list: %w", err)
	}

	var out []ChapterProgress
	for _, c := range infos {
		n := counts[c.Number]
		if n == 0 {
			continue
		}
		out = append(out, ChapterProgress{
			Number:    c.Number,
			Name:      c.EnglishName,
			Memorized: min(n, c.VerseCount),
			Verses:    c.VerseCount,
		})
	}
	return out, nil
}
