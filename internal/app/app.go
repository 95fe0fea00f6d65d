// Package app builds the component graph shared by every command: clip
// cache, audio engine, broadcast bus and playback controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"

	"github.com/llehouerou/hifz/internal/broadcast"
	"github.com/llehouerou/hifz/internal/clip"
	"github.com/llehouerou/hifz/internal/config"
	"github.com/llehouerou/hifz/internal/logging"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/player"
	"github.com/llehouerou/hifz/internal/quran"
	"github.com/llehouerou/hifz/internal/state"
)

// Options configures New.
type Options struct {
	Config *config.Config
	Logger *log.Logger

	// Engine overrides the engine selected by audio.output.
	Engine player.Interface
	// State overrides the sqlite store. Ignored unless WithState is set.
	State state.Interface
	// WithState opens the user state store.
	WithState bool
	// WithoutEngine skips audio output entirely (download, cache).
	WithoutEngine bool
}

// App holds the long-lived components.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Bus        *broadcast.Bus
	Cache      *clip.Cache
	Quran      *quran.Client
	Engine     player.Interface
	Controller *playback.Controller
	State      state.Interface

	namesMu       sync.Mutex
	names         map[int]string
	namesFailedAt time.Time

	closers []func() error
}

// New builds the components described by opts.Config.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Bus:    broadcast.New(),
		Quran: quran.New(quran.Options{
			BaseURL:     cfg.API.BaseURL,
			Edition:     cfg.API.Edition,
			Translation: cfg.API.Translation,
			Timeout:     cfg.API.Timeout,
		}),
	}

	var err error
	a.Cache, err = clip.New(clip.Options{
		Source: clip.Source{
			Base:     cfg.Audio.BaseURL,
			Template: cfg.Audio.URLTemplate,
			Ext:      cfg.Audio.Ext,
		},
		MemoryClips: cfg.Cache.MemoryClips,
		Dir:         clipDir(cfg),
		MaxAge:      time.Duration(cfg.Cache.MaxAgeDays) * 24 * time.Hour,
		RateLimit:   cfg.Audio.RateLimit,
		TagDisk:     true,
		Logger:      logger.With("component", "cache"),
	})
	if err != nil {
		return nil, fmt.Errorf("clip cache: %w", err)
	}

	if opts.WithState {
		a.State = opts.State
		if a.State == nil {
			mgr, err := state.Open()
			if err != nil {
				return nil, fmt.Errorf("open state: %w", err)
			}
			a.State = mgr
		}
		a.closers = append(a.closers, a.State.Close)
	}

	if opts.WithoutEngine {
		return a, nil
	}

	a.Engine = opts.Engine
	if a.Engine == nil {
		a.Engine = newEngine(cfg, logger)
	}
	a.closers = append(a.closers, a.Engine.Close)

	ctrlLogger := logger.With("component", "playback")
	a.Controller = playback.New(playback.Options{
		Loader: loaderFor(cfg, a.Cache),
		Engine: a.Engine,
		Bus:    a.Bus,
		Delay:  cfg.Audio.InterClipDelay,
		Logger: ctrlLogger,
		Callbacks: playback.Callbacks{
			OnPlaying: func(ref clip.Ref) { ctrlLogger.Debug("playing", "ref", ref) },
			OnEnded:   func(ref clip.Ref) { ctrlLogger.Debug("ended", "ref", ref) },
			OnError: func(ref clip.Ref, err error) {
				ctrlLogger.Error("clip failed", "ref", ref, "err", err)
			},
		},
	})
	// Closed before the engine it drives.
	a.closers = append(a.closers, a.Controller.Close)

	return a, nil
}

func newEngine(cfg *config.Config, logger *log.Logger) player.Interface {
	if cfg.Audio.Output == config.OutputMPD {
		return player.NewMPD(player.MPDOptions{
			Addr:     cfg.MPD.Addr,
			Password: cfg.MPD.Password,
			Logger:   logger,
		})
	}
	return player.NewSpeaker(player.SpeakerOptions{
		Volume: cfg.Audio.Volume,
		Logger: logger,
	})
}

// loaderFor returns the clip cache, except for MPD output: the server
// fetches clip URLs itself, so clips carry only their location.
func loaderFor(cfg *config.Config, cache *clip.Cache) playback.Loader {
	if cfg.Audio.Output != config.OutputMPD {
		return cache
	}
	src := cache.Source()
	return playback.LoaderFunc(func(_ context.Context, ref clip.Ref) (*clip.Clip, error) {
		return &clip.Clip{Ref: ref, URL: src.URL(ref), Format: src.Format()}, nil
	})
}

// clipDir resolves the disk tier location, "" when disabled.
func clipDir(cfg *config.Config) string {
	switch cfg.Cache.Dir {
	case "-":
		return ""
	case "":
		return filepath.Join(xdg.CacheHome, "hifz", "clips")
	default:
		return cfg.Cache.Dir
	}
}

// Chapter resolves a chapter number to the controller's view of it.
func (a *App) Chapter(ctx context.Context, number int) (playback.Chapter, error) {
	c, err := a.Quran.Chapter(ctx, number)
	if err != nil {
		return playback.Chapter{}, err
	}
	return playback.Chapter{Number: c.Number, VerseCount: len(c.Verses)}, nil
}

// namesRetryAfter spaces out chapter list fetches after a failure.
var namesRetryAfter = 30 * time.Second

// ChapterName returns the transliterated name of a chapter, "" while the
// chapter list cannot be fetched. A failed fetch is retried on a later
// call once namesRetryAfter has passed.
func (a *App) ChapterName(number int) string {
	a.namesMu.Lock()
	defer a.namesMu.Unlock()

	if a.names == nil && time.Since(a.namesFailedAt) >= namesRetryAfter {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.API.Timeout)
		defer cancel()
		infos, err := a.Quran.Chapters(ctx)
		if err != nil {
			a.Logger.Warn("chapter names unavailable", "err", err)
			a.namesFailedAt = time.Now()
			return ""
		}
		a.names = make(map[int]string, len(infos))
		for _, c := range infos {
			a.names[c.Number] = c.EnglishName
		}
	}
	return a.names[number]
}

// Close releases components in reverse creation order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
