package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okib/flow/internal/config"
	"github.com/okib/flow/internal/persistence"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.1-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %s:

TASKS:
  %s task new [-m message] <name>       Create a task (name: dotted identifier, e.g. flow.docs)
  %s task search [-open] [fragment]     List tasks whose name contains fragment
  %s task done [-m message] <name>      Mark a task complete
  %s task abandon [-m message] <name>   Mark a task abandoned
  %s task reopen [-m message] <name>    Put a task back in progress
  %s task note [-at timestamp] <name> <text...>
                                        Append a note (timestamp: "2006-01-02 15:04:05")

SESSIONS:
  %s work <name>                        Start an interactive work session (requires a terminal)

REPORTS:
  %s report [-o file] <name>            Render the task's HTML report

ENVIRONMENT VARIABLES:
  FLOW_HOME                Data directory (default: ~/.flow)
  FLOW_DB_PATH             Database file (default: $FLOW_HOME/flow.db)
  FLOW_LOG_LEVEL           Log level (debug|info|warn|error)
  FLOW_CHECKPOINT_SECONDS  Autosave interval for open sessions
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	switch args[0] {
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	case "task":
		os.Exit(runTaskCommand(ctx, os.Stdout, args[1:]))
	case "work":
		os.Exit(runWorkCommand(ctx, os.Stdout, args[1:]))
	case "report":
		os.Exit(runReportCommand(ctx, os.Stdout, args[1:]))
	case "version":
		fmt.Println(Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

// openStore loads configuration and opens the database it points at.
func openStore() (config.Config, *persistence.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config load: %w", err)
	}
	store, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, store, nil
}
