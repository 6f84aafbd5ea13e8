package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/okib/flow/internal/report"
)

func runReportCommand(ctx context.Context, out io.Writer, args []string) int {
	fs := flag.NewFlagSet("flow report", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	outPath := fs.String("o", "", "write the report to a file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: flow report [-o file] <name>")
		return 2
	}

	_, store, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	task, err := store.GetTaskByName(ctx, fs.Arg(0))
	if err != nil {
		return reportError(err)
	}

	sink := out
	if *outPath != "" {
		file, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create report file: %v\n", err)
			return 1
		}
		defer file.Close()
		sink = file
	}

	if err := report.NewRenderer(store, nil).Render(ctx, task.ID, sink); err != nil {
		return reportError(err)
	}
	if *outPath != "" {
		fmt.Fprintf(out, "report written to %s\n", *outPath)
	}
	return 0
}
