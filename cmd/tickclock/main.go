// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// tickclock runs a process-wide periodic tick clock as a daemon and
// controls it over a Unix socket.
//
// Usage:
//
//	tickclock run [flags]
//	tickclock status|start|stop [flags]
//	tickclock set-rate [flags] <hz>
//	tickclock watch [flags]
//	tickclock journal <path>
//	tickclock version
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/tickclock/lib/process"
	"github.com/bureau-foundation/tickclock/lib/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "run":
		err = runCommand(args)
	case "status":
		err = statusCommand(args)
	case "start":
		err = startCommand(args)
	case "stop":
		err = stopCommand(args)
	case "set-rate":
		err = setRateCommand(args)
	case "watch":
		err = watchCommand(args)
	case "journal":
		err = journalCommand(args)
	case "version", "--version", "-v":
		version.Print("tickclock")
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		process.Fatal(err)
	}
}

func printUsage() {
	fmt.Print(`tickclock - periodic tick clock daemon

USAGE
    tickclock <command> [flags] [args]

COMMANDS
    run        Run the clock daemon
    status     Show the daemon's clock status
    start      Start the tick loop
    stop       Stop the tick loop
    set-rate   Change the tick frequency in hertz
    watch      Live view of ticks, measured rate, and jitter
    journal    Print the records in a tick journal
    version    Show version

EXAMPLES
    # Run at 60 Hz with a zstd journal
    tickclock run --rate 60 --journal /var/lib/tickclock/ticks.journal

    # Slow the running daemon down to 2 Hz
    tickclock set-rate 2

ENVIRONMENT
    TICKCLOCK_CONFIG   Configuration file used when --config is not given
    TICKCLOCK_DEBUG    Enable debug logging
`)
}
