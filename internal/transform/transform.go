// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transform implements the pure Buffer -> Buffer functions the
// Reader Router composes into ordered pipelines for derived buffers, and
// the three standard transformers named in the configuration surface:
// OffsetThenGain, SparseSignal and FilterRange.
package transform

import (
	"fmt"

	"github.com/trialzone/trialzone/internal/neutralzone"
)

// Slice is the incremental result a reader hands the router for one
// primary buffer on a single pull cycle: at most one of the three fields
// is populated, matching the Neutral Zone's three buffer varieties.
type Slice struct {
	Numeric []neutralzone.NumericRow
	Text    []neutralzone.TextRow
	Signal  []neutralzone.SignalChunk
}

func (s Slice) Empty() bool {
	return len(s.Numeric) == 0 && len(s.Text) == 0 && len(s.Signal) == 0
}

// Transformer maps one incremental slice to another. Transformers are
// pure: given the same input slice they always produce the same output,
// and never read or write any buffer themselves.
type Transformer interface {
	Apply(in Slice) (Slice, error)
}

// Pipeline runs an ordered list of Transformers, feeding each stage's
// output to the next.
type Pipeline []Transformer

func (p Pipeline) Apply(in Slice) (Slice, error) {
	cur := in
	for i, t := range p {
		out, err := t.Apply(cur)
		if err != nil {
			return Slice{}, fmt.Errorf("transform: stage %d: %w", i, err)
		}
		cur = out
	}
	return cur, nil
}

// ErrUnsupportedVariety is returned when a transformer receives a slice
// shape it was not built to handle.
var ErrUnsupportedVariety = fmt.Errorf("transform: unsupported buffer variety for this transformer")
