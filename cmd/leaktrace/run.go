// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/leaktrace/bisect"
	"github.com/bureau-foundation/leaktrace/cmd/leaktrace/cli"
	"github.com/bureau-foundation/leaktrace/lib/config"
	"github.com/bureau-foundation/leaktrace/lib/eventlog"
	"github.com/bureau-foundation/leaktrace/lib/searchui"
	"github.com/bureau-foundation/leaktrace/tracker"
)

// noResultExitCode is returned when the search finishes cleanly with
// an empty suspect population. The NORESULT line is already on stdout.
const noResultExitCode = 2

func runCommand() *cli.Command {
	var (
		configPath    string
		plain         bool
		verbose       bool
		eventLogPath  string
		eventLogCodec string
	)
	return &cli.Command{
		Name:    "run",
		Summary: "execute a leak search",
		Usage:   "leaktrace run --config <file> [flags]",
		Examples: []cli.Example{
			{
				Description: "run a search with a live terminal view",
				Command:     "leaktrace run --config leaktrace.yaml",
			},
			{
				Description: "machine-readable output plus a compressed audit log",
				Command:     "leaktrace run --config leaktrace.yaml --plain --event-log search.ltel",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "path to the search configuration (YAML or JSONC)")
			flags.BoolVar(&plain, "plain", false, "emit PROGRESS/RESULT lines instead of the live view")
			flags.BoolVar(&verbose, "verbose", false, "enable debug logging")
			flags.StringVar(&eventLogPath, "event-log", "", "append progress and verdict records to this file")
			flags.StringVar(&eventLogCodec, "event-log-compression", "zstd", "event log compression: none, lz4, or zstd")
			return flags
		},
		Run: func([]string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			return runSearch(configPath, plain, verbose, eventLogPath, eventLogCodec)
		},
	}
}

func runSearch(configPath string, plain, verbose bool, eventLogPath, eventLogCodec string) error {
	logger := cli.NewCommandLogger(verbose).With("command", "run")

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks tracker.MultiSink
	var logWriter *eventlog.Writer
	if eventLogPath != "" {
		tag, err := eventlog.ParseCompressionTag(eventLogCodec)
		if err != nil {
			return err
		}
		logWriter, err = eventlog.Create(eventLogPath, tag)
		if err != nil {
			return err
		}
		defer logWriter.Close()
		sinks = append(sinks, tracker.NewEventLogSink(logWriter, logger))
	}

	if plain || !cli.StdoutIsTerminal() {
		sinks = append(sinks, tracker.NewLineSink(os.Stdout))
		verdict, err := tracker.New(cfg, sinks, nil, logger).Run(ctx)
		if err != nil {
			return err
		}
		if verdict == nil {
			return &cli.ExitError{Code: noResultExitCode}
		}
		return nil
	}
	return runSearchTUI(ctx, cfg, sinks, logger)
}

// searchOutcome carries the search goroutine's result to the main
// goroutine after the view exits.
type searchOutcome struct {
	verdict *bisect.Verdict
	err     error
}

// runSearchTUI drives the search under a live bubbletea view. The
// search runs in a goroutine; quitting the view cancels it, and the
// engine's restoration still completes before the goroutine exits.
func runSearchTUI(ctx context.Context, cfg *config.Config, sinks tracker.MultiSink, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uiSink := searchui.NewSink()
	sinks = append(sinks, uiSink)

	program := tea.NewProgram(searchui.NewModel(), tea.WithContext(ctx))
	uiSink.SetProgram(program)

	outcome := make(chan searchOutcome, 1)
	go func() {
		verdict, err := tracker.New(cfg, sinks, nil, logger).Run(ctx)
		if err != nil {
			uiSink.Fail(err)
		}
		outcome <- searchOutcome{verdict: verdict, err: err}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-outcome
		return err
	}

	// The view exited: either the search finished (sink sent the
	// verdict or failure) or the user quit. Cancel and collect.
	cancel()
	result := <-outcome
	if result.err != nil {
		if errors.Is(result.err, context.Canceled) {
			return fmt.Errorf("search abandoned")
		}
		return result.err
	}
	if result.verdict == nil {
		return &cli.ExitError{Code: noResultExitCode}
	}
	fmt.Printf("leaker: %s confirmed=%t\n", result.verdict.ID, result.verdict.Confirmed)
	return nil
}
