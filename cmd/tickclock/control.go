// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tickclock/lib/process"
	"github.com/bureau-foundation/tickclock/lib/tickservice"
)

// controlTimeout bounds a single control request.
const controlTimeout = 10 * time.Second

// controlClient parses the shared flags and returns a client for the
// configured socket, plus any positional arguments.
func controlClient(name, usage string, args []string) (*tickservice.Client, []string, bool, error) {
	var flags configFlags
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.addFlags(flagSet)
	done, err := parseFlags(flagSet, args, usage)
	if done || err != nil {
		return nil, nil, done, err
	}
	cfg, err := flags.load()
	if err != nil {
		return nil, nil, false, err
	}
	return tickservice.NewClient(cfg.Socket.Path), flagSet.Args(), false, nil
}

func statusCommand(args []string) error {
	client, rest, done, err := controlClient("status", "tickclock status - show clock status\n\nFLAGS\n", args)
	if done || err != nil {
		return err
	}
	if len(rest) > 0 {
		return process.Usagef("status takes no arguments")
	}
	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()
	status, err := client.Status(ctx)
	if err != nil {
		return err
	}
	return printStatus(os.Stdout, status)
}

func startCommand(args []string) error {
	return simpleControl("start", args, (*tickservice.Client).Start)
}

func stopCommand(args []string) error {
	return simpleControl("stop", args, (*tickservice.Client).Stop)
}

func simpleControl(name string, args []string, call func(*tickservice.Client, context.Context) (tickservice.Status, error)) error {
	client, rest, done, err := controlClient(name, "tickclock "+name+" - "+name+" the tick loop\n\nFLAGS\n", args)
	if done || err != nil {
		return err
	}
	if len(rest) > 0 {
		return process.Usagef("%s takes no arguments", name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()
	status, err := call(client, ctx)
	if err != nil {
		return err
	}
	return printStatus(os.Stdout, status)
}

func setRateCommand(args []string) error {
	client, rest, done, err := controlClient("set-rate", "tickclock set-rate <hz> - change the tick frequency\n\nFLAGS\n", args)
	if done || err != nil {
		return err
	}
	if len(rest) != 1 {
		return process.Usagef("set-rate takes exactly one argument, the rate in hertz")
	}
	hz, err := strconv.ParseFloat(rest[0], 64)
	if err != nil {
		return process.Usagef("invalid rate %q: %v", rest[0], err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()
	status, err := client.SetRate(ctx, hz)
	if err != nil {
		return err
	}
	return printStatus(os.Stdout, status)
}

func printStatus(w io.Writer, status tickservice.Status) error {
	state := "stopped"
	if status.Running {
		state = "running"
	}
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(table, "state\t%s\n", state)
	fmt.Fprintf(table, "rate\t%.6g Hz\n", status.RateHz)
	fmt.Fprintf(table, "period\t%s\n", status.Period())
	fmt.Fprintf(table, "listeners\t%d\n", status.Listeners)
	fmt.Fprintf(table, "ticks\t%d\n", status.Ticks)
	fmt.Fprintf(table, "in flight\t%d\n", status.InFlight)
	fmt.Fprintf(table, "delivered\t%d\n", status.Delivered)
	fmt.Fprintf(table, "failures\t%d\n", status.Failures)
	if status.Version != "" {
		fmt.Fprintf(table, "version\t%s\n", status.Version)
	}
	return table.Flush()
}
