// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// stringSliceFlag accumulates a repeatable `-flag value` into a slice, the
// way cc-backend's own cli.go uses flag.StringVar for its simple flags --
// stdlib flag has no native repeatable-string flag, so this is the usual
// minimal shim rather than a CLI framework.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Options bundles the CLI surface described in §6 "Command-line surface".
type Options struct {
	Subcommand     string
	ExperimentFile string
	SubjectFile    string
	ReaderArgs     map[string]string
	TrialFile      string
	GraphFile      string
	SearchPaths    []string
	PlotPositions  string
}

// parseArgs parses the `convert|gui|graph` subcommand and its flags. It
// mirrors cc-backend's cliInit() shape (one flag.FlagSet, flag.Parse())
// but needs a leading subcommand argument, so it is built directly on
// flag.NewFlagSet rather than the package-level flag.CommandLine.
func parseArgs(args []string) (*Options, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: trialzone <convert|gui|graph> [flags]")
	}
	sub := args[0]
	switch sub {
	case "convert", "gui", "graph":
	default:
		return nil, fmt.Errorf("unknown subcommand %q: expected convert, gui, or graph", sub)
	}

	fs := flag.NewFlagSet(sub, flag.ContinueOnError)
	opts := &Options{Subcommand: sub, ReaderArgs: map[string]string{}}

	var readerOverrides stringSliceFlag
	var searchPaths stringSliceFlag

	fs.StringVar(&opts.ExperimentFile, "experiment", "", "path to the experiment config document")
	fs.StringVar(&opts.SubjectFile, "subject", "", "optional subject metadata file, merged into the experiment mapping")
	fs.Var(&readerOverrides, "readers", "override a reader arg: reader_name.arg_name=value (repeatable)")
	fs.StringVar(&opts.TrialFile, "trial-file", "", "output trial file path; extension selects the sink format")
	fs.StringVar(&opts.GraphFile, "graph-file", "", "output path for the `graph` subcommand's DOT description")
	fs.Var(&searchPaths, "search-path", "directory searched for the config/data/code it names (repeatable)")
	fs.StringVar(&opts.PlotPositions, "plot-positions", "", "gui window-position persistence file")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	opts.SearchPaths = searchPaths
	for _, kv := range readerOverrides {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			return nil, fmt.Errorf("--readers override %q must be key=value", kv)
		}
		opts.ReaderArgs[kv[:i]] = kv[i+1:]
	}

	if opts.ExperimentFile == "" && sub != "graph" {
		return nil, fmt.Errorf("--experiment is required for %s", sub)
	}
	if opts.ExperimentFile == "" {
		return nil, fmt.Errorf("--experiment is required")
	}
	if (sub == "convert" || sub == "gui") && opts.TrialFile == "" {
		return nil, fmt.Errorf("--trial-file is required for %s", sub)
	}
	if sub == "graph" && opts.GraphFile == "" {
		return nil, fmt.Errorf("--graph-file is required for graph")
	}

	return opts, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `trialzone <convert|gui|graph> [flags]

  convert   batch-run an experiment to completion, writing a trial file
  gui       interactive run, pacing ingestion to simulate_delay and serving
            a minimal status endpoint
  graph     emit a Graphviz DOT description of the configured reader ->
            buffer -> transformer -> sink dependency graph

flags:
  --experiment FILE      path to config document
  --subject FILE         optional subject metadata, merged into experiment mapping
  --readers k=v ...      override reader args, keyed reader_name.arg_name=value
  --trial-file FILE      output path; extension determines format
  --graph-file FILE      output for graph mode
  --search-path DIR ...  directories searched for config/data/code
  --plot-positions FILE  gui window positions persistence`)
}
