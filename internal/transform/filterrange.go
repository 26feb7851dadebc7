// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transform

import "github.com/trialzone/trialzone/internal/neutralzone"

// FilterRange drops event rows whose selected column fails a predicate.
// Exactly one of Equals or (Min,Max) applies: if Equals is non-nil, a row
// is kept when the column value equals *Equals; otherwise a row is kept
// when Min <= value <= Max.
type FilterRange struct {
	Column int
	Equals *float64
	Min    float64
	Max    float64
}

func (t FilterRange) keep(v float64) bool {
	if t.Equals != nil {
		return v == *t.Equals
	}
	return v >= t.Min && v <= t.Max
}

func (t FilterRange) Apply(in Slice) (Slice, error) {
	if len(in.Numeric) == 0 {
		if len(in.Text) > 0 || len(in.Signal) > 0 {
			return Slice{}, ErrUnsupportedVariety
		}
		return Slice{}, nil
	}
	out := make([]neutralzone.NumericRow, 0, len(in.Numeric))
	for _, r := range in.Numeric {
		if t.Column >= len(r.Values) {
			continue
		}
		if t.keep(r.Values[t.Column]) {
			out = append(out, r)
		}
	}
	return Slice{Numeric: out}, nil
}
