// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package exprlang

// Series wraps a named buffer's values within the current trial so
// expressions can call the fixed accessor methods (`First`, `Last`)
// documented in §9, e.g. `clicked_name.First() == correct_target.First()`.
// Values are boxed as `any` so both numeric and text buffers expose the
// same method set.
type Series struct {
	values []any
}

// NewSeries builds a Series from a column of already-extracted values, in
// trial time order.
func NewSeries(values []any) Series {
	return Series{values: values}
}

// First returns the earliest value in the series, or nil if empty.
func (s Series) First() any {
	if len(s.values) == 0 {
		return nil
	}
	return s.values[0]
}

// Last returns the latest value in the series, or nil if empty.
func (s Series) Last() any {
	if len(s.values) == 0 {
		return nil
	}
	return s.values[len(s.values)-1]
}

// Len returns the number of values in the series.
func (s Series) Len() int { return len(s.values) }

// Env builds the fixed evaluation environment for a trial-scoped
// expression: one Series per named buffer column plus the trial's own
// start/wrt times under "start" and "wrt".
func Env(seriesByName map[string]Series, start, wrt float64) map[string]any {
	env := make(map[string]any, len(seriesByName)+2)
	for name, s := range seriesByName {
		env[name] = s
	}
	env["start"] = start
	env["wrt"] = wrt
	return env
}

// RowEnv builds the fixed evaluation environment for a single-row
// predicate (FilterRange's predicate form, sync descriptor predicates):
// "value" is the row's tuple of columns, indexable as value[0], value[1].
func RowEnv(value []float64) map[string]any {
	return map[string]any{"value": value}
}
