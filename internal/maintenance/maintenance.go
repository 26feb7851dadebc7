// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package maintenance runs small periodic background jobs for a long-lived
// `gui` run, the way cc-backend's internal/taskManager registers its
// retention/compression/duration-update jobs against one shared
// gocron.Scheduler. This module has no job database to sweep; its jobs
// are a buffer-backlog health log and a catalog optimize, both read-only
// with respect to the Neutral Zone (they never append, query-for-extract,
// or discard a buffer themselves -- that remains the Router/Extractor's
// exclusive job per §5 "Shared-resource policy").
package maintenance

import (
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/go-co-op/gocron/v2"

	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/sink"
)

// backlogLogInterval mirrors the cadence of cc-backend's update-duration
// worker (RegisterUpdateDurationWorker's 5m default): frequent enough to
// be useful in a long gui session, rare enough not to spam logs.
const backlogLogInterval = 5 * time.Minute

// Scheduler wraps one gocron.Scheduler for this run's background jobs.
type Scheduler struct {
	s gocron.Scheduler
}

// Start creates and starts the scheduler, registering a buffer-backlog
// health job and, if catalog is non-nil, a periodic catalog optimize.
// Returns a zero-value *Scheduler (Shutdown is then a no-op) if the
// gocron scheduler itself cannot be created, matching cc-backend's own
// "log and continue without the feature" posture for non-essential
// background work.
func Start(zone *neutralzone.Zone, catalog *sink.Catalog) *Scheduler {
	s, err := gocron.NewScheduler()
	if err != nil {
		cclog.Warnf("[MAINTENANCE]> could not create scheduler, periodic maintenance disabled: %v", err)
		return &Scheduler{}
	}

	if _, err := s.NewJob(
		gocron.DurationJob(backlogLogInterval),
		gocron.NewTask(func() { logBacklog(zone) }),
	); err != nil {
		cclog.Warnf("[MAINTENANCE]> could not register backlog job: %v", err)
	}

	if catalog != nil {
		if _, err := s.NewJob(
			gocron.DurationJob(backlogLogInterval),
			gocron.NewTask(func() { optimizeCatalog(catalog) }),
		); err != nil {
			cclog.Warnf("[MAINTENANCE]> could not register catalog optimize job: %v", err)
		}
	}

	s.Start()
	return &Scheduler{s: s}
}

// Shutdown stops the scheduler; safe to call on a zero-value Scheduler.
func (sch *Scheduler) Shutdown() {
	if sch == nil || sch.s == nil {
		return
	}
	if err := sch.s.Shutdown(); err != nil {
		cclog.Warnf("[MAINTENANCE]> scheduler shutdown: %v", err)
	}
}

// logBacklog reports the earliest buffer end_time() still live in the
// zone, a cheap signal for a gui operator that a reader has stalled or
// that extraction is falling behind ingestion.
func logBacklog(zone *neutralzone.Zone) {
	earliest := zone.EarliestEndTime()
	cclog.Infof("[MAINTENANCE]> zone backlog: earliest live buffer end_time=%v across %d buffers", earliest, len(zone.Names()))
}

// optimizeCatalog runs a cheap sqlite maintenance pass, mirroring
// taskManager's own periodic jobRepo.Optimize() call after bulk deletes.
func optimizeCatalog(catalog *sink.Catalog) {
	if err := catalog.Optimize(); err != nil {
		cclog.Warnf("[MAINTENANCE]> catalog optimize: %v", err)
	}
}
