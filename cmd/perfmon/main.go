// Command perfmon samples host resource usage and prints it as a report,
// a JSON feed, or an interactive TUI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/Dicklesworthstone/perfmon/internal/config"
	"github.com/Dicklesworthstone/perfmon/internal/logging"
	"github.com/Dicklesworthstone/perfmon/internal/report"
	"github.com/Dicklesworthstone/perfmon/internal/sampler"
	"github.com/Dicklesworthstone/perfmon/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.FromFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "perfmon:", err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "perfmon:", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := sampler.NewSystem(ctx, sampler.Deps{
		Logger:      logger,
		HistorySize: cfg.History,
		TempTTL:     cfg.TempTTL,
	})
	if err != nil {
		logger.Error("perfmon: starting sampler", "error", err)
		return 1
	}

	if cfg.TUI {
		err = ui.RunTUI(ctx, s, cfg.Interval, cfg.SampleOptions())
	} else {
		err = emit(ctx, s, cfg, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("perfmon: exiting", "error", err)
		return 1
	}
	return 0
}

// emit writes one report, or a report per interval in continuous mode,
// until the duration elapses or ctx is cancelled.
func emit(ctx context.Context, s *sampler.Sampler, cfg config.Config, logger *slog.Logger) error {
	w, closeOut, err := output(cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	format := report.FormatFor(cfg.JSON, cfg.NDJSON)
	text := report.TextOptions{Compact: cfg.Compact, DiskIO: cfg.DiskIO}
	wipe := cfg.Continuous && cfg.Clear && cfg.Out == "" && term.IsTerminal(os.Stdout.Fd())
	e := report.NewEmitter(w, format, text, wipe)

	if !cfg.Continuous {
		snap, err := s.Sample(ctx, time.Now(), cfg.SampleOptions())
		if err != nil {
			return err
		}
		return e.Emit(snap)
	}

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}
	logger.Debug("perfmon: continuous mode", "interval", cfg.Interval, "duration", cfg.Duration, "format", format)

	for snap := range s.Stream(ctx, cfg.Interval, sampler.NewControl(cfg.SampleOptions())) {
		if err := e.Emit(snap); err != nil {
			return err
		}
	}
	return nil
}

// output opens --out, truncating for a single report and appending in
// continuous mode. Without --out it is stdout.
func output(cfg config.Config) (io.Writer, func(), error) {
	if cfg.Out == "" {
		return os.Stdout, func() {}, nil
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if cfg.Continuous {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(cfg.Out, flags, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
