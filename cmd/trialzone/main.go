// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command trialzone is the driver's command-line surface (§6): `convert`
// runs a batch conversion to completion, `gui` runs interactively while
// pacing ingestion to each reader's simulate_delay and serving a minimal
// status endpoint, and `graph` emits a dependency-graph description of a
// configured experiment. Exit codes follow §6: 0 on normal completion,
// non-zero on an unrecoverable config or sink error.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/trialzone/trialzone/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		usage()
		cclog.Errorf("[MAIN]> %v", err)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cclog.Infof("[MAIN]> shutdown signal received")
		cancel()
	}()

	switch opts.Subcommand {
	case "graph":
		if err := runGraph(opts); err != nil {
			cclog.Errorf("[MAIN]> graph: %v", err)
			return 1
		}
		return 0
	case "convert", "gui":
		if err := runPipeline(ctx, opts); err != nil {
			if errors.Is(err, config.ErrConfig) {
				cclog.Errorf("[MAIN]> config error: %v", err)
			} else {
				cclog.Errorf("[MAIN]> %v", err)
			}
			return 1
		}
		return 0
	default:
		usage()
		return 2
	}
}
