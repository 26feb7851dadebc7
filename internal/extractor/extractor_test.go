// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trialzone/trialzone/internal/delimiter"
	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/syncreg"
)

func numeric(zone *neutralzone.Zone, name string, rows ...[2]float64) {
	buf := zone.CreateNumeric(name)
	nr := make([]neutralzone.NumericRow, len(rows))
	for i, r := range rows {
		nr[i] = neutralzone.NumericRow{T: r[0], Values: []float64{r[1]}}
	}
	_ = buf.Append(nr)
}

func text(zone *neutralzone.Zone, name string, rows ...struct {
	T float64
	S string
}) {
	buf := zone.CreateText(name)
	nr := make([]neutralzone.TextRow, len(rows))
	for i, r := range rows {
		nr[i] = neutralzone.TextRow{T: r.T, Text: r.S}
	}
	_ = buf.Append(nr)
}

func trow(t float64, s string) struct {
	T float64
	S string
} {
	return struct {
		T float64
		S string
	}{t, s}
}

func buildS1Zone() *neutralzone.Zone {
	zone := neutralzone.New()
	numeric(zone, "delims", [2]float64{1.0, 1010}, [2]float64{1.5, 42}, [2]float64{2.0, 1010},
		[2]float64{2.5, 42}, [2]float64{2.6, 42}, [2]float64{3.0, 1010}, [2]float64{3.5, 42})
	numeric(zone, "bar", [2]float64{0.1, 1}, [2]float64{3.1, 0})
	numeric(zone, "bar_2", [2]float64{0.1, -22}, [2]float64{3.1, -20})
	text(zone, "foo", trow(0.2, "red"), trow(1.2, "red"), trow(1.3, "green"), trow(2.2, "red"), trow(2.3, "green"))
	return zone
}

func buildS1Extractor(zone *neutralzone.Zone) *Extractor {
	registry := syncreg.New("ref")
	buffers := []BufferSpec{
		{Variety: neutralzone.VarietyNumericEvent, Name: "delims", ReaderName: "ref"},
		{Variety: neutralzone.VarietyNumericEvent, Name: "bar", ReaderName: "ref"},
		{Variety: neutralzone.VarietyNumericEvent, Name: "bar_2", ReaderName: "ref"},
		{Variety: neutralzone.VarietyTextEvent, Name: "foo", ReaderName: "ref"},
	}
	wrt := &WRTSpec{BufferName: "delims", Column: 0, Value: 42}
	return New(zone, registry, "ref", buffers, wrt)
}

func allReady(end float64) map[string]ReaderState {
	return map[string]ReaderState{"ref": {EndTime: end}}
}

func allExhausted() map[string]ReaderState {
	return map[string]ReaderState{"ref": {Exhausted: true}}
}

func TestExtractor_S1CoreDemo(t *testing.T) {
	zone := buildS1Zone()
	ex := buildS1Extractor(zone)
	d := delimiter.New("delims", 0, 1010)

	windows := d.Poll(zone, true)
	require.Len(t, windows, 4)

	var trials []*Trial
	for _, w := range windows {
		states := allExhausted()
		if w.End != nil {
			states = allReady(*w.End)
		}
		trial, ok := ex.TryExtract(w, states)
		require.True(t, ok)
		trials = append(trials, trial)
	}

	require.Equal(t, 0.0, trials[0].WRTTime)
	require.Equal(t, 1.5, trials[1].WRTTime)
	require.Equal(t, 2.5, trials[2].WRTTime)
	require.Equal(t, 3.5, trials[3].WRTTime)

	require.Len(t, trials[0].NumericEvents["bar"], 1)
	require.Equal(t, 0.1, trials[0].NumericEvents["bar"][0].T)
	require.Equal(t, -22.0, trials[0].NumericEvents["bar_2"][0].Values[0])
	require.Len(t, trials[0].TextEvents["foo"], 1)
	require.Equal(t, "red", trials[0].TextEvents["foo"][0].Text)

	require.Len(t, trials[1].TextEvents["foo"], 2)
	require.InDelta(t, -0.3, trials[1].TextEvents["foo"][0].T, 1e-9)
	require.InDelta(t, -0.2, trials[1].TextEvents["foo"][1].T, 1e-9)

	require.InDelta(t, -0.3, trials[2].TextEvents["foo"][0].T, 1e-9)
	require.InDelta(t, -0.2, trials[2].TextEvents["foo"][1].T, 1e-9)

	require.Nil(t, trials[3].EndTime)
	require.Len(t, trials[3].NumericEvents["bar"], 1)
	require.InDelta(t, -0.4, trials[3].NumericEvents["bar"][0].T, 1e-9)
	require.Equal(t, 0.0, trials[3].NumericEvents["bar"][0].Values[0])
	require.InDelta(t, -0.4, trials[3].NumericEvents["bar_2"][0].T, 1e-9)
	require.Equal(t, -20.0, trials[3].NumericEvents["bar_2"][0].Values[0])
}

func TestExtractor_S4PreStartTrialZero(t *testing.T) {
	zone := neutralzone.New()
	numeric(zone, "delims", [2]float64{1.0, 1010})
	text(zone, "early", trow(0.2, "early"))

	registry := syncreg.New("ref")
	buffers := []BufferSpec{
		{Variety: neutralzone.VarietyNumericEvent, Name: "delims", ReaderName: "ref"},
		{Variety: neutralzone.VarietyTextEvent, Name: "early", ReaderName: "ref"},
	}
	ex := New(zone, registry, "ref", buffers, nil)
	d := delimiter.New("delims", 0, 1010)

	windows := d.Poll(zone, false)
	require.Len(t, windows, 1)

	trial, ok := ex.TryExtract(windows[0], allReady(1.0))
	require.True(t, ok)
	require.Equal(t, 0.0, trial.WRTTime)
	require.Equal(t, neutralzone.NegInf, trial.StartTime)
	require.Equal(t, 1.0, *trial.EndTime)
	require.Len(t, trial.TextEvents["early"], 1)
	require.Equal(t, 0.2, trial.TextEvents["early"][0].T)
}

func TestExtractor_NotReadyUntilEndTimeCatchesUp(t *testing.T) {
	zone := neutralzone.New()
	numeric(zone, "delims", [2]float64{1.0, 1010}, [2]float64{2.0, 1010})

	registry := syncreg.New("ref")
	buffers := []BufferSpec{{Variety: neutralzone.VarietyNumericEvent, Name: "delims", ReaderName: "ref"}}
	ex := New(zone, registry, "ref", buffers, nil)

	w := delimiter.Window{Start: 1.0, End: float64Ptr(2.0)}
	_, ok := ex.TryExtract(w, map[string]ReaderState{"ref": {EndTime: 1.5}})
	require.False(t, ok)

	_, ok = ex.TryExtract(w, map[string]ReaderState{"ref": {EndTime: 2.0}})
	require.True(t, ok)
}

func TestExtractor_GCUsesMinOfStartAndEndMinusOne(t *testing.T) {
	zone := neutralzone.New()
	numeric(zone, "bar", [2]float64{0.5, 1}, [2]float64{1.5, 2}, [2]float64{2.5, 3})

	registry := syncreg.New("ref")
	buffers := []BufferSpec{{Variety: neutralzone.VarietyNumericEvent, Name: "bar", ReaderName: "ref"}}
	ex := New(zone, registry, "ref", buffers, nil)

	w := delimiter.Window{Start: 2.0, End: float64Ptr(3.0)}
	ex.GC(w)

	buf, _ := zone.Numeric("bar")
	rows := buf.Query(neutralzone.NegInf, 100)
	require.Len(t, rows, 1)
	require.Equal(t, 2.5, rows[0].T)
}

func float64Ptr(f float64) *float64 { return &f }
