// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transform

import "github.com/trialzone/trialzone/internal/neutralzone"

// OffsetThenGain multiplies selected value columns (numeric events) or
// channels (signals) by Gain after adding Offset: out = (in + Offset) *
// Gain. An empty Columns selects every column/channel.
type OffsetThenGain struct {
	Offset  float64
	Gain    float64
	Columns []int
}

func (t OffsetThenGain) Apply(in Slice) (Slice, error) {
	switch {
	case len(in.Numeric) > 0:
		out := make([]neutralzone.NumericRow, len(in.Numeric))
		for i, r := range in.Numeric {
			vals := append([]float64{}, r.Values...)
			for _, c := range t.selected(len(vals)) {
				vals[c] = (vals[c] + t.Offset) * t.Gain
			}
			out[i] = neutralzone.NumericRow{T: r.T, Values: vals}
		}
		return Slice{Numeric: out}, nil
	case len(in.Signal) > 0:
		out := make([]neutralzone.SignalChunk, len(in.Signal))
		for i, c := range in.Signal {
			rows := make([][]float64, len(c.X))
			channels := 0
			if len(c.X) > 0 {
				channels = len(c.X[0])
			}
			sel := t.selected(channels)
			for j, row := range c.X {
				nr := append([]float64{}, row...)
				for _, ch := range sel {
					nr[ch] = (nr[ch] + t.Offset) * t.Gain
				}
				rows[j] = nr
			}
			out[i] = neutralzone.SignalChunk{T0: c.T0, F: c.F, X: rows}
		}
		return Slice{Signal: out}, nil
	case len(in.Text) > 0:
		return Slice{}, ErrUnsupportedVariety
	default:
		return Slice{}, nil
	}
}

func (t OffsetThenGain) selected(width int) []int {
	if len(t.Columns) == 0 {
		all := make([]int, width)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return t.Columns
}
