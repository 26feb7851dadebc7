// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package driver implements the top-level loop described in §4.H: pull
// readers, flush delimiter windows through the extractor while ready,
// run enhancers and collecters, and hand finished trials to the sink.
// §5 "Cancellation" governs shutdown: a canceled context stops polling,
// flushes only a delimiter window whose end_time is already known, runs
// collecters over trials already emitted, and closes the sink.
package driver

import (
	"context"
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/trialzone/trialzone/internal/delimiter"
	"github.com/trialzone/trialzone/internal/enhance"
	"github.com/trialzone/trialzone/internal/extractor"
	"github.com/trialzone/trialzone/internal/metrics"
	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/reader"
	"github.com/trialzone/trialzone/internal/sink"
	"github.com/trialzone/trialzone/internal/syncreg"
)

const maxSinkRetries = 1

// Driver wires one run's Router, Delimiter, sync Collector, Extractor,
// enhancer pipeline, collecters, and Sink together and runs §4.H's loop.
type Driver struct {
	zone       *neutralzone.Zone
	router     *reader.Router
	delimiter  *delimiter.Delimiter
	collector  *syncreg.Collector
	extractor  *extractor.Extractor
	pipeline   enhance.Pipeline
	collecters []enhance.Collecter
	sink       sink.Sink
	catalog    *sink.Catalog
	guiMode    bool

	readerStates map[string]extractor.ReaderState
	pending      []delimiter.Window
	emitted      []*extractor.Trial
}

// GUIMode reports whether this run was started under the gui subcommand,
// for the status HTTP surface (SPEC_FULL E.2 "GUI HTTP surface").
func (d *Driver) GUIMode() bool { return d.guiMode }

// TrialCount returns the number of trials emitted so far in this run.
func (d *Driver) TrialCount() int { return len(d.emitted) }

// Config bundles everything New needs. New tracks readiness (§4.F step 1)
// for every reader that Router.ReaderNames returns.
type Config struct {
	Zone         *neutralzone.Zone
	Router       *reader.Router
	Delimiter    *delimiter.Delimiter
	Collector    *syncreg.Collector
	Extractor    *extractor.Extractor
	Pipeline     enhance.Pipeline
	Collecters []enhance.Collecter
	Sink       sink.Sink
	Catalog    *sink.Catalog // optional; nil skips the per-trial catalog record
	GUIMode    bool
}

func New(cfg Config) *Driver {
	names := cfg.Router.ReaderNames()
	states := make(map[string]extractor.ReaderState, len(names))
	for _, name := range names {
		states[name] = extractor.ReaderState{}
	}
	return &Driver{
		zone:         cfg.Zone,
		router:       cfg.Router,
		delimiter:    cfg.Delimiter,
		collector:    cfg.Collector,
		extractor:    cfg.Extractor,
		pipeline:     cfg.Pipeline,
		collecters:   cfg.Collecters,
		sink:         cfg.Sink,
		catalog:      cfg.Catalog,
		guiMode:      cfg.GUIMode,
		readerStates: states,
	}
}

// Run executes §4.H's loop until ctx is canceled or the pipeline is
// fully drained (the final trial is flushed inside the loop once every
// reader is exhausted), then performs the end-of-run sequence (run
// collecters, close sink).
func (d *Driver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			cclog.Infof("[DRIVER]> shutdown signal received, draining")
			return d.drain()
		default:
		}

		d.router.Advance(ctx)
		d.refreshReaderStates()

		eos := d.router.Exhausted()
		d.pending = append(d.pending, d.delimiter.Poll(d.zone, eos)...)
		if err := d.collector.Scan(); err != nil {
			return fmt.Errorf("driver: sync scan: %w", err)
		}

		if err := d.flushReady(); err != nil {
			return err
		}

		if eos && d.delimiter.Done() && len(d.pending) == 0 {
			break
		}
	}
	return d.finish()
}

func (d *Driver) refreshReaderStates() {
	for name := range d.readerStates {
		end, exhausted := d.router.ReaderState(name)
		d.readerStates[name] = extractor.ReaderState{EndTime: end, Exhausted: exhausted}
	}
}

// flushReady implements "flush_delimiter_windows_while_ready": repeatedly
// tries the oldest pending window until one isn't ready yet, preserving
// start-time emission order (§5 "Ordering").
func (d *Driver) flushReady() error {
	for len(d.pending) > 0 {
		window := d.pending[0]
		trial, ok := d.extractor.TryExtract(window, d.readerStates)
		if !ok {
			return nil
		}
		d.pending = d.pending[1:]
		if err := d.emit(trial); err != nil {
			return err
		}
		d.extractor.GC(window)
	}
	return nil
}

// emit runs the enhancer pipeline, writes trial to the sink (with one
// retry per §7 "Sink: write failure → one retry"), and records it in the
// catalog.
func (d *Driver) emit(trial *extractor.Trial) error {
	d.pipeline.Apply(trial)

	var offset int64
	var err error
	for attempt := 0; attempt <= maxSinkRetries; attempt++ {
		offset, err = d.sink.Write(trial)
		if err == nil {
			break
		}
		metrics.SinkRetries.Inc()
		cclog.Warnf("[DRIVER]> trial %d: sink write attempt %d failed: %v", trial.Index, attempt+1, err)
	}
	if err != nil {
		return fmt.Errorf("driver: sink write for trial %d: %w", trial.Index, err)
	}

	metrics.TrialsEmitted.Inc()
	d.emitted = append(d.emitted, trial)

	if d.catalog != nil {
		rec := sink.Record{
			TrialIndex:  trial.Index,
			StartTime:   trial.StartTime,
			EndTime:     trial.EndTime,
			SinkOffset:  offset,
			ContentHash: contentHash(trial),
		}
		if err := d.catalog.Upsert(rec); err != nil {
			return fmt.Errorf("driver: catalog upsert for trial %d: %w", trial.Index, err)
		}
	}
	return nil
}

// finish implements the end-of-run tail: run collecters, rewrite the
// trials they changed, close the sink and catalog. The final trial has
// already been flushed by Run's loop (or dropped by drain).
func (d *Driver) finish() error {
	changed := enhance.RunCollecters(d.collecters, d.emitted)
	if len(changed) > 0 {
		if err := d.rewriteChanged(changed); err != nil {
			return err
		}
	}
	if err := d.sink.Close(); err != nil {
		return fmt.Errorf("driver: close sink: %w", err)
	}
	if d.catalog != nil {
		if err := d.catalog.Close(); err != nil {
			return fmt.Errorf("driver: close catalog: %w", err)
		}
	}
	return nil
}

// rewriteChanged issues one RewriteFrom at the earliest changed index;
// every collecter-touched trial downstream of it is re-written in its
// current (possibly multiply-modified) state in a single pass.
func (d *Driver) rewriteChanged(changed []int) error {
	from := changed[0]
	for _, idx := range changed[1:] {
		if idx < from {
			from = idx
		}
	}
	if err := d.sink.RewriteFrom(from, d.emitted); err != nil {
		return fmt.Errorf("driver: collecter rewrite from trial %d: %w", from, err)
	}
	if d.catalog != nil {
		for _, trial := range d.emitted {
			if trial.Index < from {
				continue
			}
			offset, _ := d.sink.Offset(trial.Index)
			rec := sink.Record{
				TrialIndex:  trial.Index,
				StartTime:   trial.StartTime,
				EndTime:     trial.EndTime,
				SinkOffset:  offset,
				ContentHash: contentHash(trial),
			}
			if err := d.catalog.Upsert(rec); err != nil {
				return fmt.Errorf("driver: catalog rewrite upsert for trial %d: %w", trial.Index, err)
			}
		}
	}
	return nil
}

// drain implements §5 "Cancellation": stop polling, flush the
// in-progress window only if its end_time is already known, run
// collecters over trials already emitted, and close the sink. A window
// with an unresolved end is dropped, never emitted partially.
func (d *Driver) drain() error {
	for _, window := range d.pending {
		if window.End == nil {
			continue
		}
		trial, ok := d.extractor.TryExtract(window, d.readerStates)
		if !ok {
			continue
		}
		if err := d.emit(trial); err != nil {
			return err
		}
		d.extractor.GC(window)
	}
	d.pending = nil
	return d.finish()
}

// contentHash is a cheap structural fingerprint of a trial's row counts,
// stored in the trial's catalog record. It does not prove byte-for-byte
// equality of file content, and nothing in a run compares it.
func contentHash(trial *extractor.Trial) string {
	n, t, s := 0, 0, 0
	for _, rows := range trial.NumericEvents {
		n += len(rows)
	}
	for _, rows := range trial.TextEvents {
		t += len(rows)
	}
	for _, chunks := range trial.Signals {
		s += len(chunks)
	}
	return fmt.Sprintf("%d:%d:%d:%d", trial.Index, n, t, s)
}
