package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/llehouerou/hifz/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:    "hifz",
		Usage:   "Listen to Qur'an recitations verse by verse while memorizing",
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			tuiCommand(),
			serveCommand(),
			playCommand(),
			downloadCommand(),
			cacheCommand(),
			progressCommand(),
			configCommand(),
		},
		Action: runTUI,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logging.New(os.Stderr, "error").Error("hifz", "err", err)
		os.Exit(1)
	}
}
