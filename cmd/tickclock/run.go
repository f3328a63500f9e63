// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tickclock/lib/config"
	"github.com/bureau-foundation/tickclock/lib/gameclock"
	"github.com/bureau-foundation/tickclock/lib/journal"
	"github.com/bureau-foundation/tickclock/lib/process"
	"github.com/bureau-foundation/tickclock/lib/service"
	"github.com/bureau-foundation/tickclock/lib/tickservice"
	"github.com/bureau-foundation/tickclock/lib/version"
)

// daemonClock is what the daemon needs from *gameclock.Clock.
type daemonClock interface {
	tickservice.Controller
	SetLogger(logger *slog.Logger)
	SetOverloadThreshold(threshold int)
	Period() time.Duration
	Wait(ctx context.Context) error
}

// loopExitGrace is added to one period when waiting for the tick loop
// to finish its last sleep at shutdown.
const loopExitGrace = time.Second

func runCommand(args []string) error {
	var flags configFlags
	var rate float64
	var journalPath, compression string
	var noAutostart bool

	flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.addFlags(flagSet)
	flagSet.Float64VarP(&rate, "rate", "r", 0, "tick frequency in hertz (overrides clock.rate_hz)")
	flagSet.StringVar(&journalPath, "journal", "", "tick journal file (overrides journal.path)")
	flagSet.StringVar(&compression, "compression", "", "journal compression: none, zstd, lz4")
	flagSet.BoolVar(&noAutostart, "no-autostart", false, "leave the tick loop stopped until a start request")

	done, err := parseFlags(flagSet, args, `tickclock run - run the clock daemon

USAGE
    tickclock run [flags]

FLAGS
`)
	if done || err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return process.Usagef("run takes no arguments, got %q", flagSet.Args())
	}

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	if flagSet.Changed("rate") {
		cfg.Clock.RateHz = rate
	}
	if flagSet.Changed("journal") {
		cfg.Journal.Path = journalPath
	}
	if flagSet.Changed("compression") {
		cfg.Journal.Compression = compression
	}
	if noAutostart {
		cfg.Clock.AutoStart = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("tickclock starting",
		"version", version.Info(),
		"environment", cfg.Environment,
		"rate_hz", cfg.Clock.RateHz,
		"socket", cfg.Socket.Path,
	)
	return serve(ctx, cfg, gameclock.Get(), logger)
}

// serve configures clock from cfg and runs the control socket until
// ctx is cancelled. The clock is stopped, its loop drained, and the
// journal closed before it returns.
func serve(ctx context.Context, cfg *config.Config, clock daemonClock, logger *slog.Logger) error {
	clock.SetLogger(logger)
	clock.SetOverloadThreshold(cfg.Clock.OverloadThreshold)
	if err := clock.SetRate(cfg.Clock.RateHz); err != nil {
		return err
	}

	if cfg.Journal.Path != "" {
		compression, err := journal.ParseCompression(cfg.Journal.Compression)
		if err != nil {
			return err
		}
		tickJournal, err := journal.Create(cfg.Journal.Path, compression)
		if err != nil {
			return err
		}
		if err := clock.Register(tickJournal); err != nil {
			tickJournal.Close()
			return err
		}
		logger.Info("journaling ticks",
			"path", cfg.Journal.Path,
			"compression", compression,
		)
		defer func() {
			clock.Unregister(tickJournal)
			if err := tickJournal.Close(); err != nil {
				logger.Error("closing tick journal", "error", err)
				return
			}
			logger.Info("tick journal closed", "records", tickJournal.Records())
		}()
	}

	server := service.NewSocketServer(cfg.Socket.Path, logger)
	tickservice.Register(server, clock, logger)

	if cfg.Clock.AutoStart {
		clock.Start()
	}
	defer stopClock(clock, logger)

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serving control socket: %w", err)
	}
	logger.Info("tickclock stopping", "ticks", clock.Stats().Ticks)
	return nil
}

// stopClock stops clock and waits for its loop to exit, so no tick
// starts after the journal is closed.
func stopClock(clock daemonClock, logger *slog.Logger) {
	clock.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), clock.Period()+loopExitGrace)
	defer cancel()
	if err := clock.Wait(ctx); err != nil {
		logger.Warn("tick loop still running at shutdown", "error", err)
	}
}
