// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tickclock/lib/config"
)

// configFlags are the flags every subcommand that needs configuration
// shares.
type configFlags struct {
	configPath string
	socketPath string
}

func (f *configFlags) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.configPath, "config", "c", "", "configuration file (default: $TICKCLOCK_CONFIG)")
	flagSet.StringVarP(&f.socketPath, "socket", "s", "", "control socket path (overrides socket.path)")
}

// load reads the configuration named by --config, falling back to
// TICKCLOCK_CONFIG and then to built-in defaults, and applies --socket.
func (f *configFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case os.Getenv("TICKCLOCK_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		cfg.ExpandVariables()
	}
	if err != nil {
		return nil, err
	}
	if f.socketPath != "" {
		cfg.Socket.Path = f.socketPath
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration. A non-empty
// TICKCLOCK_DEBUG forces debug level.
func newLogger(logConfig config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logConfig.SlogLevel()
	if err != nil {
		return nil, err
	}
	if os.Getenv("TICKCLOCK_DEBUG") != "" {
		level = slog.LevelDebug
	}

	options := &slog.HandlerOptions{Level: level}
	switch logConfig.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", logConfig.Format)
	}
}

// parseFlags parses args, printing usage on --help. The returned
// bool is true when the caller should return without doing anything.
func parseFlags(flagSet *pflag.FlagSet, args []string, usage string) (bool, error) {
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
