package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/hifz/internal/clip"
	"github.com/llehouerou/hifz/internal/errmsg"
	"github.com/llehouerou/hifz/internal/mpris"
	"github.com/llehouerou/hifz/internal/notify"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/server"
	"github.com/llehouerou/hifz/internal/ui"
)

// RunTUI opens the chapter view and blocks until the user quits.
func (a *App) RunTUI(ctx context.Context, chapter int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.startDesktop(ctx)

	m := ui.New(ui.Options{
		Playback:   a.Controller,
		Bus:        a.Bus,
		Chapters:   a.Quran,
		State:      a.State,
		Logger:     a.Logger,
		Chapter:    chapter,
		LoopTarget: a.Config.Audio.LoopTarget,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	a.Controller.Stop()
	return err
}

// startDesktop wires media keys and repeat notifications. Both degrade to
// no-ops without a session bus.
func (a *App) startDesktop(ctx context.Context) {
	adapter, err := mpris.New(a.Controller, a.ChapterName)
	if err != nil {
		a.Logger.Warn("mpris unavailable", "err", err)
	} else {
		a.closers = append(a.closers, adapter.Close)
	}

	go notify.WatchLoops(ctx, a.Controller.Subscribe(), notify.New(), a.ChapterName, a.Logger)
}

// Serve runs the Socket.IO and HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := server.New(server.Options{
		Service:        a.Controller,
		Bus:            a.Bus,
		Chapters:       a.Quran,
		Logger:         a.Logger,
		RequestTimeout: a.Config.API.Timeout,
	})
	defer srv.Close()
	return srv.ListenAndServe(ctx, a.Config.Server.Addr)
}

// PlayRequest describes a headless playback session.
type PlayRequest struct {
	Mode       playback.Mode
	Chapter    int
	Verse      int // Single
	Start, End int // Range
	LoopTarget int
}

// Play starts a session and blocks until it ends or ctx is cancelled.
// Unbounded sessions only end through ctx.
func (a *App) Play(ctx context.Context, req PlayRequest) error {
	ch, err := a.Chapter(ctx, req.Chapter)
	if err != nil {
		return err
	}

	sub := a.Controller.Subscribe()
	defer func() {
		if n := sub.Dropped(); n > 0 {
			a.Logger.Debug("progress events dropped", "count", n)
		}
		a.Controller.Unsubscribe(sub)
	}()

	switch req.Mode {
	case playback.ModeSingle:
		err = a.Controller.PlaySingle(ch, req.Verse)
	case playback.ModeSequential:
		err = a.Controller.PlaySequential(ch, req.LoopTarget)
	case playback.ModeRange:
		err = a.Controller.PlayRange(ch, req.Start, req.End, req.LoopTarget)
	default:
		err = fmt.Errorf("unknown mode %v", req.Mode)
	}
	if err != nil {
		return err
	}

	return a.waitIdle(ctx, sub)
}

// waitIdle logs progress until the session on sub goes Idle.
func (a *App) waitIdle(ctx context.Context, sub *playback.Subscription) error {
	var failure error
	for {
		select {
		case <-ctx.Done():
			a.Controller.Stop()
			return nil
		case <-sub.Done:
			return failure
		case e := <-sub.VerseChanged:
			a.Logger.Info("verse", "ref", clip.Ref{Chapter: e.Chapter, Verse: e.Verse}, "loop", e.LoopCount+1)
		case e := <-sub.LoopCompleted:
			a.Logger.Info("loop complete", "count", e.LoopCount, "target", e.LoopTarget)
		case e := <-sub.Error:
			failure = sessionError(e)
		case e := <-sub.StateChanged:
			if e.Previous.Active() && !e.Current.Active() {
				select {
				case e := <-sub.Error:
					failure = sessionError(e)
				default:
				}
				return failure
			}
		}
	}
}

// Download prefetches every clip of the given chapters into the disk tier.
func (a *App) Download(ctx context.Context, chapters []int, progress func(chapter, done, total int)) error {
	for _, n := range chapters {
		ch, err := a.Chapter(ctx, n)
		if err != nil {
			return err
		}
		refs := make([]clip.Ref, 0, ch.VerseCount)
		for v := 1; v <= ch.VerseCount; v++ {
			refs = append(refs, clip.Ref{Chapter: n, Verse: v})
		}
		err = a.Cache.Prefetch(ctx, refs, func(done, total int) {
			if progress != nil {
				progress(n, done, total)
			}
		})
		if err != nil {
			return fmt.Errorf("chapter %d: %w", n, err)
		}
	}
	return nil
}

func sessionError(e playback.ErrorEvent) error {
	op := errmsg.OpClipLoad
	if e.Operation == "play" {
		op = errmsg.OpPlaybackStart
	}
	return errmsg.Wrap(op, e.Ref.String(), e.Err)
}
