package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/okib/flow/internal/otel"
	"github.com/okib/flow/internal/recorder"
	"github.com/okib/flow/internal/telemetry"
	"github.com/okib/flow/internal/timeutil"
	"github.com/okib/flow/internal/tui"
)

func runWorkCommand(ctx context.Context, out io.Writer, args []string) int {
	fs := flag.NewFlagSet("flow work", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: flow work <name>")
		return 2
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "flow work needs an interactive terminal")
		return 1
	}

	cfg, store, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	// Logs go file-only while the session screen owns the terminal.
	logger, logCloser, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	provider, err := otel.Init(ctx, cfg.Otel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel: %v\n", err)
		return 1
	}
	defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

	task, err := store.GetTaskByName(ctx, fs.Arg(0))
	if err != nil {
		return reportError(err)
	}

	tracker := recorder.NewTracker(store, recorder.Options{
		Logger:          logger,
		Tracer:          provider.Tracer,
		CheckpointEvery: cfg.CheckpointInterval(),
	})
	session, err := tracker.Start(ctx, task, time.Now())
	if err != nil {
		return reportError(err)
	}

	runErr := tui.Run(ctx, session, cfg.TickInterval())

	// An interrupt lands here with the session still open; one final
	// save keeps everything up to the signal durable.
	if !session.Closed() {
		if err := session.Close(context.WithoutCancel(ctx), time.Now(), ""); err != nil {
			logger.Error("final save failed", "error", err)
		}
	}
	if runErr != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "session screen: %v\n", runErr)
		return 1
	}

	work := session.Work()
	fmt.Fprintf(out, "%s of work saved under task %q\n",
		timeutil.FormatSeconds(work.DurationSec), task.Name)
	return 0
}
