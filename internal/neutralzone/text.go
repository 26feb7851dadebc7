// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package neutralzone

import (
	"sort"
	"sync"
)

// TextRow is one entry of a Text Event Buffer: a timestamp paired with a
// UTF-8 string (§3 "Text Event Buffer").
type TextRow struct {
	T    float64
	Text string
}

// TextEventBuffer holds two parallel, equal-length arrays (timestamps and
// texts) ordered by non-decreasing timestamp.
type TextEventBuffer struct {
	mu   sync.RWMutex
	name string
	rows []TextRow
}

func newTextEventBuffer(name string) *TextEventBuffer {
	return &TextEventBuffer{name: name}
}

func (b *TextEventBuffer) Name() string { return b.name }

// Append adds rows to the tail, tolerating the same bounded reorder window
// as NumericEventBuffer.Append.
func (b *TextEventBuffer) Append(rows []TextRow) error {
	if len(rows) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range rows {
		last := NegInf
		if n := len(b.rows); n > 0 {
			last = b.rows[n-1].T
		}
		if r.T >= last {
			b.rows = append(b.rows, r)
			continue
		}
		if r.T+reorderSlack < last {
			warnOutOfOrder("text", b.name, r.T, last)
			return ErrOutOfOrder
		}
		i := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T > r.T })
		b.rows = append(b.rows, TextRow{})
		copy(b.rows[i+1:], b.rows[i:])
		b.rows[i] = r
	}
	return nil
}

// Query returns an independent copy of rows with a <= t < b.
func (b *TextEventBuffer) Query(a, bnd float64) []TextRow {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lo := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T >= a })
	hi := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T >= bnd })
	out := make([]TextRow, hi-lo)
	copy(out, b.rows[lo:hi])
	return out
}

// DiscardBefore drops rows strictly earlier than t.
func (b *TextEventBuffer) DiscardBefore(t float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T >= t })
	if i > 0 {
		b.rows = append([]TextRow{}, b.rows[i:]...)
	}
}

// EndTime returns the timestamp of the last appended row, or -Inf if empty.
func (b *TextEventBuffer) EndTime() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.rows) == 0 {
		return NegInf
	}
	return b.rows[len(b.rows)-1].T
}

// ShiftTextTimes subtracts delta from every row's timestamp, returning a
// new slice; intended for use on a copy returned by Query.
func ShiftTextTimes(rows []TextRow, delta float64) []TextRow {
	out := make([]TextRow, len(rows))
	for i, r := range rows {
		out[i] = TextRow{T: r.T - delta, Text: r.Text}
	}
	return out
}
