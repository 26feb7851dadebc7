// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package enhance implements the Enhancer/Collecter pipeline (§4.G): an
// ordered per-trial augment stage and a deferred end-of-run stage with an
// all-trials memory model. Both stages catch and log callable failures
// rather than aborting the run.
package enhance

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/trialzone/trialzone/internal/exprlang"
	"github.com/trialzone/trialzone/internal/extractor"
	"github.com/trialzone/trialzone/internal/metrics"
)

// Enhancer augments a trial in place, adding entries to its Enhancements
// (and optionally EnhancementCategories) map.
type Enhancer interface {
	Apply(trial *extractor.Trial) error
}

// EnhancerFunc adapts a function to the Enhancer interface.
type EnhancerFunc func(trial *extractor.Trial) error

func (f EnhancerFunc) Apply(trial *extractor.Trial) error { return f(trial) }

// Step is one entry in the declared enhancer pipeline: a name (for
// failure logging), the enhancer itself, and an optional When predicate
// evaluated against the trial-so-far (§4.G: "predicated on its optional
// when expression evaluated against the trial so far").
type Step struct {
	Name string
	Run  Enhancer
	When *exprlang.BoolProgram
}

// Pipeline runs its declared Steps, in order, against every trial handed
// to it.
type Pipeline []Step

// Apply runs every step of p against trial, in declared order. A step
// whose When predicate evaluates false is skipped. A step that returns an
// error, or whose predicate fails to evaluate, is logged with the trial
// index and step name and skipped; the trial is still emitted with
// whatever enhancements earlier steps produced (§4.G "Failure").
func (p Pipeline) Apply(trial *extractor.Trial) {
	for _, step := range p {
		if step.When != nil {
			ok, err := step.When.Run(trialEnv(trial))
			if err != nil {
				cclog.Warnf("[ENHANCE]> trial %d: when-predicate for %q: %v", trial.Index, step.Name, err)
				continue
			}
			if !ok {
				continue
			}
		}
		if err := step.Run.Apply(trial); err != nil {
			cclog.Warnf("[ENHANCE]> trial %d: enhancer %q failed: %v", trial.Index, step.Name, err)
			metrics.EnhancerFailures.WithLabelValues(step.Name).Inc()
		}
	}
}

// trialEnv builds the expression environment a When predicate or the
// Expression enhancer sees: the trial's timing plus everything added to
// Enhancements so far.
func trialEnv(trial *extractor.Trial) map[string]any {
	env := map[string]any{
		"start_time": trial.StartTime,
		"wrt_time":   trial.WRTTime,
		"index":      trial.Index,
	}
	if trial.EndTime != nil {
		env["end_time"] = *trial.EndTime
	} else {
		env["end_time"] = nil
	}
	for k, v := range trial.Enhancements {
		env[k] = v
	}
	return env
}
