// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/tickclock/lib/process"
	"github.com/bureau-foundation/tickclock/lib/service"
	"github.com/bureau-foundation/tickclock/lib/tickservice"
	"github.com/bureau-foundation/tickclock/lib/tickwatch"
)

func watchCommand(args []string) error {
	client, rest, done, err := controlClient("watch", "tickclock watch - live tick view\n\nFLAGS\n", args)
	if done || err != nil {
		return err
	}
	if len(rest) > 0 {
		return process.Usagef("watch takes no arguments")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("watch needs a terminal on stdout; use \"tickclock status\" from scripts")
	}
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subscription, err := client.Subscribe(ctx)
	if err != nil {
		var serviceError *service.ServiceError
		if errors.As(err, &serviceError) {
			return err
		}
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer subscription.Close()

	events := make(chan tickwatch.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	go pumpFrames(subscription, events, quit)

	program := tea.NewProgram(
		tickwatch.NewModel(client.SocketPath(), events),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}

// frameSource is the part of *tickservice.Subscription the pump reads.
type frameSource interface {
	Next() (tickservice.Frame, error)
}

// pumpFrames forwards frames from source until it fails, then sends
// the error and closes events. It returns early once quit is closed,
// since nothing reads events after the viewer exits.
func pumpFrames(source frameSource, events chan<- tickwatch.Event, quit <-chan struct{}) {
	defer close(events)
	for {
		frame, err := source.Next()
		event := tickwatch.Event{Frame: frame}
		if err != nil {
			event = tickwatch.Event{Err: err}
		}
		select {
		case events <- event:
		case <-quit:
			return
		}
		if err != nil {
			return
		}
	}
}
