// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics collects the pipeline health counters named in
// SPEC_FULL "Supplemented features": trials emitted, reader errors,
// enhancer failures, and sink retries. It is imported by the router,
// enhance, and driver packages, so it must never import any of them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TrialsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trialzone_trials_emitted_total",
		Help: "the number of trials written to the sink",
	})
	ReaderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trialzone_reader_errors_total",
		Help: "the number of times a reader pull failed permanently",
	}, []string{"reader"})
	EnhancerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trialzone_enhancer_failures_total",
		Help: "the number of times an enhancer or collecter failed",
	}, []string{"enhancer"})
	SinkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trialzone_sink_retries_total",
		Help: "the number of sink write retries",
	})
)
