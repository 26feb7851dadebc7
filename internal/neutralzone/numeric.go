// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package neutralzone

import (
	"math"
	"sort"
	"sync"
)

// NegInf stands in for "no data yet" end times (§4.A end_time()).
const NegInf = math.Inf(-1)

// reorderSlack bounds how far out of order an incoming row may be before
// it is rejected outright, per §9 "OutOfOrder tolerance". A row within the
// slack window is inserted directly at its sorted position (see Append);
// rows outside it are rejected.
const reorderSlack = 0.050

// NumericRow is one row of a Numeric Event Buffer: a timestamp plus a
// fixed-arity tuple of values (§3 "Numeric Event Buffer").
type NumericRow struct {
	T      float64
	Values []float64
}

// NumericEventBuffer is an ordered sequence of (t, v0..vk-1) rows of fixed
// arity, append-only at the tail, discard-only at the head.
type NumericEventBuffer struct {
	mu    sync.RWMutex
	name  string
	arity int
	rows  []NumericRow
}

func newNumericEventBuffer(name string) *NumericEventBuffer {
	return &NumericEventBuffer{name: name}
}

func (b *NumericEventBuffer) Name() string { return b.name }

// Append adds rows to the buffer's tail. The arity of the first row ever
// appended fixes the buffer's arity (§3 invariant); later rows must match.
// A row whose timestamp precedes the current tail by more than
// reorderSlack is rejected with ErrOutOfOrder; a row within the slack is
// inserted at its sorted position (§9 "OutOfOrder tolerance": a bounded
// re-order window accepted before the strict "monotonic or reject"
// contract applies).
func (b *NumericEventBuffer) Append(rows []NumericRow) error {
	if len(rows) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.arity == 0 && len(rows) > 0 {
		b.arity = len(rows[0].Values)
	}

	for _, r := range rows {
		if len(r.Values) != b.arity {
			return ErrOutOfOrder
		}
		last := NegInf
		if n := len(b.rows); n > 0 {
			last = b.rows[n-1].T
		}
		if r.T >= last {
			b.rows = append(b.rows, r)
			continue
		}
		if r.T+reorderSlack < last {
			warnOutOfOrder("numeric", b.name, r.T, last)
			return ErrOutOfOrder
		}
		i := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T > r.T })
		b.rows = append(b.rows, NumericRow{})
		copy(b.rows[i+1:], b.rows[i:])
		b.rows[i] = r
	}
	return nil
}

// Query returns an independent copy of rows with a <= t < b (§4.A query).
func (b *NumericEventBuffer) Query(a, bnd float64) []NumericRow {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lo := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T >= a })
	hi := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T >= bnd })
	out := make([]NumericRow, 0, hi-lo)
	for _, r := range b.rows[lo:hi] {
		out = append(out, NumericRow{T: r.T, Values: append([]float64{}, r.Values...)})
	}
	return out
}

// DiscardBefore drops rows strictly earlier than t (§4.A discard_before).
func (b *NumericEventBuffer) DiscardBefore(t float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := sort.Search(len(b.rows), func(i int) bool { return b.rows[i].T >= t })
	if i > 0 {
		b.rows = append([]NumericRow{}, b.rows[i:]...)
	}
}

// EndTime returns the timestamp of the last appended row, or -Inf if empty.
func (b *NumericEventBuffer) EndTime() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.rows) == 0 {
		return NegInf
	}
	return b.rows[len(b.rows)-1].T
}

// Arity returns the fixed tuple width for this buffer, or 0 if no data has
// ever been appended.
func (b *NumericEventBuffer) Arity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.arity
}

// ShiftNumericTimes returns a new slice of rows with delta subtracted from
// every timestamp; the Values slices are shared with the input. Intended
// for use on a copy returned by Query, never on the live buffer (§4.A).
func ShiftNumericTimes(rows []NumericRow, delta float64) []NumericRow {
	out := make([]NumericRow, len(rows))
	for i, r := range rows {
		out[i] = NumericRow{T: r.T - delta, Values: r.Values}
	}
	return out
}

// NumericCursor is a high-water mark over a full-range Query result that
// survives concurrent head discards. A plain row-count index breaks once
// the extractor's GC (§4.F step 7) discards consumed rows from the head
// of the buffer it watches: the next full-range Query returns a shorter
// slice and a stale count either re-scans old rows or skips new ones.
// Tracking (last timestamp, count of already-consumed rows at that exact
// timestamp) instead is unaffected by discards, since DiscardBefore never
// removes a row at or after the cursor's own position.
type NumericCursor struct {
	started bool
	t       float64
	n       int
}

// NewNumericCursor returns a cursor positioned before any data. The zero
// value is also safe to use directly (Take initializes itself lazily).
func NewNumericCursor() NumericCursor {
	return NumericCursor{started: true, t: NegInf}
}

// Take returns the rows of a full Query(-Inf, +Inf) result not yet
// consumed by this cursor, and advances it past them.
func (c *NumericCursor) Take(rows []NumericRow) []NumericRow {
	if !c.started {
		c.started = true
		c.t = NegInf
	}
	lo := sort.Search(len(rows), func(i int) bool { return rows[i].T >= c.t })
	skip := 0
	for lo+skip < len(rows) && rows[lo+skip].T == c.t {
		skip++
	}
	if skip > c.n {
		skip = c.n
	}
	out := rows[lo+skip:]
	if len(out) > 0 {
		last := out[len(out)-1].T
		cnt := 0
		for i := len(out) - 1; i >= 0 && out[i].T == last; i-- {
			cnt++
		}
		c.t = last
		c.n = cnt
	}
	return out
}
