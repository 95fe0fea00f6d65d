package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/llehouerou/hifz/internal/app"
	"github.com/llehouerou/hifz/internal/config"
	"github.com/llehouerou/hifz/internal/logging"
	"github.com/llehouerou/hifz/internal/playback"
	"github.com/llehouerou/hifz/internal/quran"
	"github.com/llehouerou/hifz/internal/stderr"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (default: ~/.config/hifz/config.toml, ./config.toml)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Audio output: speaker or mpd",
		},
		&cli.DurationFlag{
			Name:  "delay",
			Usage: "Pause between consecutive verses",
			Value: -1,
		},
		&cli.StringFlag{
			Name:  "reciter",
			Usage: "Base URL of the recitation clips",
		},
	}
}

// loadConfig reads the config files and applies global flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, fmt.Errorf("config file: %w", statErr)
		}
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	overrides := config.Config{
		Audio: config.AudioConfig{
			Output:  cmd.String("output"),
			BaseURL: cmd.String("reciter"),
		},
		Log: config.LogConfig{Level: cmd.String("log-level")},
	}
	if err := cfg.Merge(overrides); err != nil {
		return nil, err
	}
	// Zero is a meaningful delay, so it cannot go through Merge.
	if d := cmd.Duration("delay"); d >= 0 {
		cfg.Audio.InterClipDelay = d
	}
	return cfg, cfg.Validate()
}

// newApp builds the component graph with a logger writing to w.
func newApp(cmd *cli.Command, w io.Writer, opts app.Options) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts.Config = cfg
	opts.Logger = logging.New(w, cfg.Log.Level)
	return app.New(opts)
}

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse a chapter and play verses interactively",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "chapter",
				Usage: "Chapter to open (default: the last one opened)",
			},
		},
		Action: runTUI,
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	f, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	logger := logging.New(f, cfg.Log.Level)

	// Audio libraries print warnings straight to fd 2.
	capture, err := stderr.Start(logger)
	if err != nil {
		logger.Warn("stderr capture unavailable", "err", err)
	}
	defer capture.Stop()

	a, err := app.New(app.Options{Config: cfg, Logger: logger, WithState: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.RunTUI(ctx, int(cmd.Int("chapter")))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playback controller to browser tabs over Socket.IO",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd, os.Stderr, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if addr := cmd.String("addr"); addr != "" {
				a.Config.Server.Addr = addr
			}
			return a.Serve(ctx)
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play a verse, a chapter or a repeated range, then exit",
		ArgsUsage: "CHAPTER",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "chapter"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "verse",
				Aliases: []string{"v"},
				Usage:   "Play this single verse",
			},
			&cli.IntFlag{
				Name:  "start",
				Usage: "First verse of a repeated range",
			},
			&cli.IntFlag{
				Name:  "end",
				Usage: "Last verse of a repeated range",
			},
			&cli.IntFlag{
				Name:    "loop",
				Aliases: []string{"l"},
				Usage:   "Number of repetitions, 0 repeats until interrupted (default: audio.loop_target)",
				Value:   -1,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			chapter, err := parseChapter(cmd.StringArg("chapter"))
			if err != nil {
				return err
			}

			a, err := newApp(cmd, os.Stderr, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := playRequest(chapter, cmd, a.Config.Audio.LoopTarget)
			if err != nil {
				return err
			}
			return a.Play(ctx, req)
		},
	}
}

// playRequest picks the mode from the verse flags: --verse plays one verse,
// --start/--end a range and neither the whole chapter.
func playRequest(chapter int, cmd *cli.Command, defaultLoop int) (app.PlayRequest, error) {
	req := app.PlayRequest{Chapter: chapter, LoopTarget: defaultLoop}
	if loop := int(cmd.Int("loop")); loop >= 0 {
		req.LoopTarget = loop
	}

	verse := int(cmd.Int("verse"))
	start, end := int(cmd.Int("start")), int(cmd.Int("end"))
	switch {
	case verse != 0 && (start != 0 || end != 0):
		return req, errors.New("--verse cannot be combined with --start/--end")
	case verse != 0:
		req.Mode = playback.ModeSingle
		req.Verse = verse
	case start != 0 || end != 0:
		if start == 0 {
			start = 1
		}
		if end == 0 {
			end = start
		}
		req.Mode = playback.ModeRange
		req.Start, req.End = start, end
	default:
		req.Mode = playback.ModeSequential
	}
	return req, nil
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Fetch every clip of the given chapters into the disk cache",
		ArgsUsage: "CHAPTER...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Download the whole Qur'an",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			chapters, err := parseChapters(cmd.Args().Slice(), cmd.Bool("all"))
			if err != nil {
				return err
			}

			a, err := newApp(cmd, os.Stderr, app.Options{WithoutEngine: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.Config.HasDiskCache() {
				return errors.New("disk cache is disabled (cache.dir = \"-\")")
			}

			started := time.Now()
			err = a.Download(ctx, chapters, func(chapter, done, total int) {
				if done == total {
					fmt.Printf("✓ chapter %d: %d clips\n", chapter, total)
				}
			})
			if err != nil {
				return err
			}
			stats, err := a.Cache.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("%d clips (%s) cached in %s\n",
				stats.DiskFiles, humanize.Bytes(uint64(stats.DiskBytes)), time.Since(started).Round(time.Second))
			return nil
		},
	}
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clean the clip cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache occupancy",
				Action: withCache(func(_ context.Context, a *app.App) error {
					stats, err := a.Cache.Stats()
					if err != nil {
						return err
					}
					fmt.Println(stats)
					return nil
				}),
			},
			{
				Name:  "clear",
				Usage: "Delete every cached clip",
				Action: withCache(func(_ context.Context, a *app.App) error {
					if err := a.Cache.Clear(); err != nil {
						return err
					}
					fmt.Println("cache cleared")
					return nil
				}),
			},
			{
				Name:  "prune",
				Usage: "Delete clips older than cache.max_age_days",
				Action: withCache(func(_ context.Context, a *app.App) error {
					n, err := a.Cache.Prune()
					if err != nil {
						return err
					}
					fmt.Printf("removed %s\n", plural(n, "clip"))
					return nil
				}),
			},
		},
	}
}

func withCache(fn func(context.Context, *app.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newApp(cmd, os.Stderr, app.Options{WithoutEngine: true})
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a)
	}
}

func progressCommand() *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Show memorized verses per chapter",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd, os.Stderr, app.Options{WithoutEngine: true, WithState: true})
			if err != nil {
				return err
			}
			defer a.Close()

			chapters, err := a.Progress(ctx)
			if err != nil {
				return err
			}
			if len(chapters) == 0 {
				fmt.Println("nothing memorized yet")
				return nil
			}
			total := 0
			for _, p := range chapters {
				fmt.Println(progressLine(p))
				total += p.Memorized
			}
			fmt.Printf("%s memorized in %s\n", plural(total, "verse"), plural(len(chapters), "chapter"))
			return nil
		},
	}
}

func progressLine(p app.ChapterProgress) string {
	pct := 100 * p.Memorized / max(p.Verses, 1)
	return fmt.Sprintf("%3d %-24s %4d/%-4d %3d%%", p.Number, p.Name, p.Memorized, p.Verses, pct)
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination file",
						Value: config.UserConfigPath(),
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.String("path")
					if err := config.WriteDefault(path); err != nil {
						return err
					}
					log.Info("wrote default configuration", "path", path)
					return nil
				},
			},
		},
	}
}

func parseChapter(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > quran.ChapterCount {
		return 0, fmt.Errorf("chapter must be a number in 1..%d, got %q", quran.ChapterCount, s)
	}
	return n, nil
}

func parseChapters(args []string, all bool) ([]int, error) {
	if all {
		chapters := make([]int, quran.ChapterCount)
		for i := range chapters {
			chapters[i] = i + 1
		}
		return chapters, nil
	}
	if len(args) == 0 {
		return nil, errors.New("no chapters given (or use --all)")
	}
	chapters := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := parseChapter(arg)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, n)
	}
	return chapters, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}
