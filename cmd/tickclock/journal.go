// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tickclock/lib/journal"
	"github.com/bureau-foundation/tickclock/lib/process"
)

func journalCommand(args []string) error {
	var summaryOnly bool
	flagSet := pflag.NewFlagSet("journal", pflag.ContinueOnError)
	flagSet.BoolVar(&summaryOnly, "summary", false, "print only the summary line")
	done, err := parseFlags(flagSet, args, "tickclock journal [flags] <path> - print a tick journal\n\nFLAGS\n")
	if done || err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return process.Usagef("journal takes exactly one argument, the journal path")
	}
	return printJournal(os.Stdout, flagSet.Arg(0), summaryOnly)
}

// printJournal prints the records at path in sequence order followed
// by a summary of gaps.
func printJournal(w io.Writer, path string, summaryOnly bool) error {
	var records []journal.Record
	if err := journal.Read(path, func(record journal.Record) error {
		records = append(records, record)
		return nil
	}); err != nil {
		return err
	}
	slices.SortFunc(records, func(a, b journal.Record) int {
		switch {
		case a.Sequence < b.Sequence:
			return -1
		case a.Sequence > b.Sequence:
			return 1
		}
		return 0
	})

	if !summaryOnly {
		table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(table, "SEQUENCE\tAT\tPERIOD")
		for _, record := range records {
			fmt.Fprintf(table, "%d\t%s\t%s\n", record.Sequence, record.At.Format(time.RFC3339Nano), record.Period())
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "0 records")
		return err
	}
	first, last := records[0], records[len(records)-1]
	missing := (last.Sequence - first.Sequence + 1) - uint64(len(records))
	_, err := fmt.Fprintf(w, "%d records, sequences %d-%d, %d missing, spanning %s\n",
		len(records), first.Sequence, last.Sequence, missing, last.At.Sub(first.At))
	return err
}
