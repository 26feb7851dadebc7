// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enhance

import (
	"fmt"

	"github.com/trialzone/trialzone/internal/extractor"
	"github.com/trialzone/trialzone/internal/neutralzone"
)

// SignalSmoother replaces a trial's copy of a named signal with a
// boxcar-filtered copy (§4.G "Signal smoother"). It never touches the
// live Neutral Zone buffer, only the trial's snapshot.
type SignalSmoother struct {
	Signal     string
	WindowSize int
}

func NewSignalSmoother(signal string, windowSize int) *SignalSmoother {
	return &SignalSmoother{Signal: signal, WindowSize: windowSize}
}

func (s *SignalSmoother) Apply(trial *extractor.Trial) error {
	if s.WindowSize < 1 {
		return fmt.Errorf("enhance: signal smoother window size must be >= 1, got %d", s.WindowSize)
	}
	chunks, ok := trial.Signals[s.Signal]
	if !ok {
		return nil
	}
	smoothed := make([]neutralzone.SignalChunk, len(chunks))
	for i, c := range chunks {
		smoothed[i] = neutralzone.SignalChunk{T0: c.T0, F: c.F, X: boxcar(c.X, s.WindowSize)}
	}
	trial.Signals[s.Signal] = smoothed
	return nil
}

// boxcar replaces each sample with the trailing mean of itself and up to
// window-1 preceding samples, independently per channel.
func boxcar(x [][]float64, window int) [][]float64 {
	if len(x) == 0 {
		return x
	}
	channels := len(x[0])
	out := make([][]float64, len(x))
	for i := range x {
		out[i] = make([]float64, channels)
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		n := float64(i - lo + 1)
		for c := 0; c < channels; c++ {
			sum := 0.0
			for j := lo; j <= i; j++ {
				sum += x[j][c]
			}
			out[i][c] = sum / n
		}
	}
	return out
}
