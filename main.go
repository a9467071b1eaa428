package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sadopc/medlog/internal/cli"
	"github.com/sadopc/medlog/internal/config"
	"github.com/sadopc/medlog/internal/logging"
	"github.com/sadopc/medlog/internal/store"
	"github.com/sadopc/medlog/internal/tracker"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			cli.Usage(os.Stdout)
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, "run 'medlog help' for usage")
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, rest, err := config.Load(args)
	if err != nil {
		return err
	}

	var log logging.Logger = logging.Discard()
	if cfg.LogFile != "" {
		l, closer, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer closer.Close()
		log = l
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(cfg.Backend, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	defer closeLogged(ctx, log, backend)
	log.Info(ctx, "store opened", "backend", cfg.Backend, "path", cfg.DBPath)

	engine, err := tracker.Open(backend,
		tracker.WithLogger(log),
		tracker.WithDefaultRetention(cfg.RetentionDefault),
	)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	return cli.New(engine, backend, cfg, log).Run(ctx, rest)
}

func closeLogged(ctx context.Context, log logging.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Error(ctx, "close store", "error", err)
	}
}
