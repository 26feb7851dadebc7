// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/trialzone/trialzone/internal/config"
	"github.com/trialzone/trialzone/internal/driver"
	"github.com/trialzone/trialzone/internal/maintenance"
	"github.com/trialzone/trialzone/internal/sink"
)

// runPipeline implements the shared convert/gui wiring: load and
// validate the experiment descriptor, resolve every component through
// the static registry, open the sink and trial catalog, and run the
// driver's top-level loop (§4.H) to completion or cancellation.
func runPipeline(ctx context.Context, opts *Options) error {
	doc, err := config.Load(opts.ExperimentFile, opts.SubjectFile, opts.SearchPaths, opts.ReaderArgs)
	if err != nil {
		return err
	}
	if opts.Subcommand != "gui" {
		// simulate_delay paces gui runs only; convert pulls every reader unpaced.
		for name, rc := range doc.Readers {
			rc.SimulateDelay = 0
			doc.Readers[name] = rc
		}
	}

	runComponents, err := config.BuildRun(doc, opts.SearchPaths)
	if err != nil {
		return err
	}
	defer runComponents.Close()

	trialSink, err := sink.Open(opts.TrialFile, false)
	if err != nil {
		return fmt.Errorf("trialzone: opening sink: %w", err)
	}

	catalog, err := sink.OpenCatalog(opts.TrialFile + ".catalog.db")
	if err != nil {
		cclog.Warnf("[MAIN]> idempotent-resume catalog unavailable, continuing without it: %v", err)
		catalog = nil
	}

	d := driver.New(driver.Config{
		Zone:       runComponents.Zone,
		Router:     runComponents.Router,
		Delimiter:  runComponents.Delimiter,
		Collector:  runComponents.Collector,
		Extractor:  runComponents.Extractor,
		Pipeline:   runComponents.Pipeline,
		Collecters: runComponents.Collecters,
		Sink:       trialSink,
		Catalog:    catalog,
		GUIMode:    opts.Subcommand == "gui",
	})

	var stopGUI func()
	if opts.Subcommand == "gui" {
		sched := maintenance.Start(runComponents.Zone, catalog)
		defer sched.Shutdown()

		srv := startGUIServer(d)
		stopGUI = srv.shutdown
		defer stopGUI()
	}

	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("trialzone: %w", err)
	}

	cclog.Infof("[MAIN]> run complete: %d trials emitted", d.TrialCount())
	return nil
}
