// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncreg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trialzone/trialzone/internal/exprlang"
	"github.com/trialzone/trialzone/internal/neutralzone"
)

func TestCollector_ScanMatchesPredicateAndTracksHighWaterMark(t *testing.T) {
	zone := neutralzone.New()
	buf := zone.CreateNumeric("delimiters")
	require.NoError(t, buf.Append([]neutralzone.NumericRow{
		{T: 1.0, Values: []float64{1010}},
		{T: 1.5, Values: []float64{42}},
		{T: 2.0, Values: []float64{1010}},
	}))

	pred, err := exprlang.CompileBool("value[0] == 1010")
	require.NoError(t, err)

	registry := New("ref")
	desc := &Descriptor{ReaderName: "ref", BufferName: "delimiters", IsReference: true, Predicate: pred}
	c := NewCollector(zone, registry, []*Descriptor{desc})

	require.NoError(t, c.Scan())
	require.Equal(t, 2, desc.matchSeq)

	require.NoError(t, buf.Append([]neutralzone.NumericRow{{T: 3.0, Values: []float64{1010}}}))
	require.NoError(t, c.Scan())
	require.Equal(t, 3, desc.matchSeq)

	offset := registry.OffsetAt("ref", 100)
	require.Equal(t, 0.0, offset) // no followers registered; just verifying no panic
}

func TestCollector_ScanSurvivesHeadDiscard(t *testing.T) {
	zone := neutralzone.New()
	buf := zone.CreateNumeric("delimiters")
	require.NoError(t, buf.Append([]neutralzone.NumericRow{
		{T: 1.0, Values: []float64{1010}},
		{T: 2.0, Values: []float64{1010}},
	}))

	registry := New("ref")
	desc := &Descriptor{ReaderName: "ref", BufferName: "delimiters", IsReference: true}
	c := NewCollector(zone, registry, []*Descriptor{desc})
	require.NoError(t, c.Scan())
	require.Equal(t, 2, desc.matchSeq)

	// the extractor discards everything before t=2 after emitting a trial;
	// a stale row-count cursor would now re-scan or mis-skip new data.
	buf.DiscardBefore(2.0)
	require.NoError(t, buf.Append([]neutralzone.NumericRow{{T: 3.0, Values: []float64{1010}}}))
	require.NoError(t, c.Scan())
	require.Equal(t, 3, desc.matchSeq)
}
