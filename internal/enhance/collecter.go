// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enhance

import (
	"fmt"
	"math"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/trialzone/trialzone/internal/extractor"
	"github.com/trialzone/trialzone/internal/metrics"
)

// Collecter runs once after the driver signals end-of-run, over the full
// sequence of already-emitted trials (§4.G "Collecters"). It returns the
// indices of trials it modified; the driver issues one sink rewrite
// starting at the lowest index any collecter returned. A Collecter must
// not touch timing; SignalNormalizer is the one collecter that also
// changes raw data (it scales its signal's samples), every other changes
// only Enhancements or EnhancementCategories.
type Collecter interface {
	Run(trials []*extractor.Trial) (changed []int, err error)
}

// RunCollecters runs each collecter in order against trials, logging and
// skipping one that fails rather than aborting the run (§4.G "Failure").
// It returns the union of trial indices any collecter reports changed.
func RunCollecters(collecters []Collecter, trials []*extractor.Trial) []int {
	changedSet := make(map[int]bool)
	for i, c := range collecters {
		changed, err := c.Run(trials)
		if err != nil {
			cclog.Warnf("[ENHANCE]> collecter #%d failed: %v", i, err)
			metrics.EnhancerFailures.WithLabelValues(fmt.Sprintf("collecter#%d", i)).Inc()
			continue
		}
		for _, idx := range changed {
			changedSet[idx] = true
		}
	}
	out := make([]int, 0, len(changedSet))
	for idx := range changedSet {
		out = append(out, idx)
	}
	return out
}

// SignalNormalizer rescales a named signal's samples across all trials by
// a single factor, 1/global_max, where global_max is the largest absolute
// sample value for that signal seen across every trial (§4.G "Signal
// normalizer", S6). It stores the factor used under Name in every
// affected trial's enhancements.
type SignalNormalizer struct {
	Signal string
	Name   string
}

func NewSignalNormalizer(signal, name string) *SignalNormalizer {
	if name == "" {
		name = signal + "_normalize_factor"
	}
	return &SignalNormalizer{Signal: signal, Name: name}
}

func (n *SignalNormalizer) Run(trials []*extractor.Trial) ([]int, error) {
	globalMax := 0.0
	for _, trial := range trials {
		for _, chunk := range trial.Signals[n.Signal] {
			for _, sample := range chunk.X {
				for _, v := range sample {
					if abs := math.Abs(v); abs > globalMax {
						globalMax = abs
					}
				}
			}
		}
	}
	if globalMax == 0 {
		return nil, nil
	}
	factor := 1.0 / globalMax

	var changed []int
	for _, trial := range trials {
		chunks, ok := trial.Signals[n.Signal]
		if !ok {
			continue
		}
		for ci := range chunks {
			for si := range chunks[ci].X {
				for vi := range chunks[ci].X[si] {
					chunks[ci].X[si][vi] *= factor
				}
			}
		}
		trial.Enhancements[n.Name] = factor
		changed = append(changed, trial.Index)
	}
	return changed, nil
}
