package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/okib/flow/internal/persistence"
	"github.com/okib/flow/internal/timeutil"
)

func runTaskCommand(ctx context.Context, out io.Writer, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: flow task <new|search|done|abandon|reopen|note> ...")
		return 2
	}
	switch args[0] {
	case "new":
		return runTaskNew(ctx, out, args[1:])
	case "search":
		return runTaskSearch(ctx, out, args[1:])
	case "done":
		return runTaskTransition(ctx, out, args[1:], persistence.StatusComplete, "completed")
	case "abandon":
		return runTaskTransition(ctx, out, args[1:], persistence.StatusAbandoned, "abandoned")
	case "reopen":
		return runTaskTransition(ctx, out, args[1:], persistence.StatusInProgress, "reopened")
	case "note":
		return runTaskNote(ctx, out, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown task action %q\n", args[0])
		return 2
	}
}

func runTaskNew(ctx context.Context, out io.Writer, args []string) int {
	fs := flag.NewFlagSet("flow task new", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	message := fs.String("m", "created", "founding note message")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: flow task new [-m message] <name>")
		return 2
	}

	_, store, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	task, err := store.CreateTask(ctx, persistence.TaskDraft{
		Name:            fs.Arg(0),
		CreatedAt:       time.Now(),
		FoundingMessage: *message,
	})
	if err != nil {
		return reportError(err)
	}
	fmt.Fprintf(out, "created task %q (id %d)\n", task.Name, task.ID)
	return 0
}

func runTaskSearch(ctx context.Context, out io.Writer, args []string) int {
	fs := flag.NewFlagSet("flow task search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	openOnly := fs.Bool("open", false, "only list in-progress tasks")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "usage: flow task search [-open] [fragment]")
		return 2
	}

	_, store, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	tasks, err := store.SearchTasks(ctx, fs.Arg(0), *openOnly)
	if err != nil {
		return reportError(err)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "no matching tasks")
		return 0
	}
	for _, task := range tasks {
		focused, err := focusedSeconds(ctx, store, task.ID)
		if err != nil {
			return reportError(err)
		}
		fmt.Fprintf(out, "%s\t%s\tfocused %s\n", task.Name, task.Status, timeutil.FormatSeconds(focused))
	}
	return 0
}

// focusedSeconds is the stored-aggregate subtraction the report also
// uses: total work minus total breaks, zero when no rows exist.
func focusedSeconds(ctx context.Context, store *persistence.Store, taskID int64) (int64, error) {
	workSec, err := store.SumWorkSeconds(ctx, taskID)
	if err != nil {
		return 0, err
	}
	breakSec, err := store.SumBreakSeconds(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return workSec - breakSec, nil
}

func runTaskTransition(ctx context.Context, out io.Writer, args []string, next persistence.Status, verb string) int {
	fs := flag.NewFlagSet("flow task "+verb, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	message := fs.String("m", verb, "note message for the status change")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: flow task %s [-m message] <name>\n", verb)
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
	if err := store.TransitionTask(ctx, task.ID, next, *message, time.Now()); err != nil {
		return reportError(err)
	}
	fmt.Fprintf(out, "task %q is now %s\n", task.Name, next)
	return 0
}

func runTaskNote(ctx context.Context, out io.Writer, args []string) int {
	fs := flag.NewFlagSet("flow task note", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	at := fs.String("at", "", "note timestamp (default: now)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: flow task note [-at timestamp] <name> <text...>")
		return 2
	}

	var stamp time.Time
	if *at != "" {
		parsed, err := timeutil.Parse(*at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		stamp = parsed
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
	note, err := store.AppendNote(ctx, persistence.NoteDraft{
		TaskID:   task.ID,
		At:       stamp,
		UserText: strings.Join(fs.Args()[1:], " "),
		FlowText: persistence.TagWorkNote,
	})
	if err != nil {
		return reportError(err)
	}
	fmt.Fprintf(out, "note %d added to %q at %s\n", note.ID, task.Name, timeutil.Format(note.CreatedAt))
	return 0
}

// reportError prints a typed failure in user terms and picks the exit
// code: validation problems are the user's to fix, everything else is
// an operational failure.
func reportError(err error) int {
	var verr *persistence.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(os.Stderr, "invalid input: %s\n", verr.Msg)
		return 1
	}
	if errors.Is(err, persistence.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "no such task")
		return 1
	}
	fmt.Fprintf(os.Stderr, "%v\n", err)
	return 1
}
