// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transform

import (
	"math"

	"github.com/trialzone/trialzone/internal/neutralzone"
)

// SparseSignal converts irregularly-timed numeric event rows into a
// regularly-sampled signal chunk at SampleFrequency Hz. Gaps between
// consecutive source rows are linearly interpolated; if FillConstant is
// non-nil it is used instead of interpolation, producing a held value
// rather than a ramp. Channels selects which value columns become signal
// channels, in order; an empty Channels selects every column.
type SparseSignal struct {
	SampleFrequency float64
	FillConstant    *float64
	Channels        []int
}

func (t SparseSignal) Apply(in Slice) (Slice, error) {
	if len(in.Numeric) == 0 {
		if len(in.Text) > 0 || len(in.Signal) > 0 {
			return Slice{}, ErrUnsupportedVariety
		}
		return Slice{}, nil
	}
	if t.SampleFrequency <= 0 {
		return Slice{}, ErrUnsupportedVariety
	}
	rows := in.Numeric
	if len(rows) < 2 {
		return Slice{}, nil
	}

	width := len(rows[0].Values)
	channels := t.Channels
	if len(channels) == 0 {
		channels = make([]int, width)
		for i := range channels {
			channels[i] = i
		}
	}

	t0 := rows[0].T
	tEnd := rows[len(rows)-1].T
	n := int(math.Floor((tEnd-t0)*t.SampleFrequency)) + 1
	if n < 1 {
		return Slice{}, nil
	}

	samples := make([][]float64, n)
	seg := 0
	for i := 0; i < n; i++ {
		ts := t0 + float64(i)/t.SampleFrequency
		for seg < len(rows)-2 && rows[seg+1].T < ts {
			seg++
		}
		a, b := rows[seg], rows[seg+1]
		row := make([]float64, len(channels))
		for ci, col := range channels {
			if t.FillConstant != nil {
				row[ci] = *t.FillConstant
				continue
			}
			if b.T == a.T {
				row[ci] = a.Values[col]
				continue
			}
			frac := (ts - a.T) / (b.T - a.T)
			row[ci] = a.Values[col] + frac*(b.Values[col]-a.Values[col])
		}
		samples[i] = row
	}

	return Slice{Signal: []neutralzone.SignalChunk{{T0: t0, F: t.SampleFrequency, X: samples}}}, nil
}
