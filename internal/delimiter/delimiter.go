// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package delimiter implements the Trial Delimiter (§4.E): an
// incremental state machine that watches a designated event buffer for
// start-value matches and emits (start, end) trial windows, including
// the implicit pre-experiment "trial 0" window.
package delimiter

import (
	"math"

	"github.com/trialzone/trialzone/internal/neutralzone"
)

// Window is one emitted (start, end) pair. End is nil for an open-ended
// window (the final trial, emitted at end of stream).
type Window struct {
	Start float64
	End   *float64
}

type state int

const (
	stateInit state = iota
	stateOpen
	stateDone
)

// Delimiter watches Column of BufferName for rows equal to StartValue.
type Delimiter struct {
	bufferName string
	column     int
	startValue float64

	st        state
	lastStart float64
	cursor    neutralzone.NumericCursor
}

// New creates a Delimiter over column of bufferName, matching rows whose
// value at that column equals startValue.
func New(bufferName string, column int, startValue float64) *Delimiter {
	return &Delimiter{bufferName: bufferName, column: column, startValue: startValue, cursor: neutralzone.NewNumericCursor()}
}

// Done reports whether the delimiter has emitted its final window.
func (d *Delimiter) Done() bool { return d.st == stateDone }

// Poll scans any rows appended to the designated buffer since the last
// call and returns the windows they complete, per the state machine in
// §4.E. eos must be true once the owning reader has reached end of
// stream (or is exhausted); it drives the OPEN/INIT -> DONE transitions
// that close out the final trial.
func (d *Delimiter) Poll(zone *neutralzone.Zone, eos bool) []Window {
	if d.st == stateDone {
		return nil
	}
	var out []Window

	if buf, ok := zone.Numeric(d.bufferName); ok {
		all := buf.Query(neutralzone.NegInf, math.Inf(1))
		for _, row := range d.cursor.Take(all) {
			if d.column >= len(row.Values) || row.Values[d.column] != d.startValue {
				continue
			}
			t := row.T
			switch d.st {
			case stateInit:
				end := t
				out = append(out, Window{Start: neutralzone.NegInf, End: &end})
				d.st = stateOpen
			case stateOpen:
				prev := d.lastStart
				end := t
				out = append(out, Window{Start: prev, End: &end})
			}
			d.lastStart = t
		}
	}

	if eos {
		switch d.st {
		case stateOpen:
			out = append(out, Window{Start: d.lastStart, End: nil})
			d.st = stateDone
		case stateInit:
			out = append(out, Window{Start: neutralzone.NegInf, End: nil})
			d.st = stateDone
		}
	}
	return out
}
