// Package main is the entry point for the prosecore replay tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/prosecore/internal/app"
	"github.com/dshills/prosecore/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, watch := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = application.Logger().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watch {
		err = application.Watch(ctx, os.Stdout)
	} else {
		err = application.Run(ctx, os.Stdout)
	}
	if err != nil {
		if errors.Is(err, app.ErrDiverged) {
			fmt.Fprintln(os.Stderr, "Error: replicas diverged")
			return 2
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() (app.Options, bool) {
	var opts app.Options
	var watch, showVersion, showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (default: user config if present)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.SchemaPath, "schema", "", "Path to a YAML schema (default: basic schema)")
	flag.StringVar(&opts.DocPath, "doc", "", "Starting document, as node or state JSON")
	flag.StringVar(&opts.StepsPath, "steps", "", "Replay log: JSON array of steps and client entries")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.Format, "format", app.FormatText, "Output format (text, json)")
	flag.BoolVar(&watch, "watch", false, "Replay again whenever an input file changes")
	flag.BoolVar(&watch, "w", false, "Replay again whenever an input file changes (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "prosecore - replay collaborative document edits\n\n")
		fmt.Fprintf(os.Stderr, "Usage: prosecore [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  prosecore -doc doc.json -steps log.json          Replay a log\n")
		fmt.Fprintf(os.Stderr, "  prosecore -doc doc.json -steps log.json -w       Replay on every change\n")
		fmt.Fprintf(os.Stderr, "  prosecore -schema wiki.yaml -doc page.json       Check a document\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("prosecore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	if opts.ConfigPath == "" {
		if p := config.DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				opts.ConfigPath = p
			}
		}
	}

	return opts, watch
}
