// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trialzone/trialzone/internal/neutralzone"
)

func TestOffsetThenGain_Numeric(t *testing.T) {
	tr := OffsetThenGain{Offset: 10, Gain: -2}
	in := Slice{Numeric: []neutralzone.NumericRow{{T: 0.1, Values: []float64{1}}}}

	out, err := tr.Apply(in)
	require.NoError(t, err)
	require.Equal(t, -22.0, out.Numeric[0].Values[0])
}

func TestOffsetThenGain_SelectedColumnsOnly(t *testing.T) {
	tr := OffsetThenGain{Offset: 1, Gain: 2, Columns: []int{1}}
	in := Slice{Numeric: []neutralzone.NumericRow{{T: 0, Values: []float64{5, 5}}}}

	out, err := tr.Apply(in)
	require.NoError(t, err)
	require.Equal(t, 5.0, out.Numeric[0].Values[0])
	require.Equal(t, 12.0, out.Numeric[0].Values[1])
}

func TestFilterRange_Equals(t *testing.T) {
	eq := 1010.0
	tr := FilterRange{Column: 0, Equals: &eq}
	in := Slice{Numeric: []neutralzone.NumericRow{
		{T: 1, Values: []float64{1010}},
		{T: 1.5, Values: []float64{42}},
	}}

	out, err := tr.Apply(in)
	require.NoError(t, err)
	require.Len(t, out.Numeric, 1)
	require.Equal(t, 1.0, out.Numeric[0].T)
}

func TestFilterRange_MinMax(t *testing.T) {
	tr := FilterRange{Column: 0, Min: 0, Max: 10}
	in := Slice{Numeric: []neutralzone.NumericRow{
		{T: 1, Values: []float64{5}},
		{T: 2, Values: []float64{20}},
	}}

	out, err := tr.Apply(in)
	require.NoError(t, err)
	require.Len(t, out.Numeric, 1)
}

func TestSparseSignal_LinearInterpolation(t *testing.T) {
	tr := SparseSignal{SampleFrequency: 10}
	in := Slice{Numeric: []neutralzone.NumericRow{
		{T: 0, Values: []float64{0}},
		{T: 1, Values: []float64{10}},
	}}

	out, err := tr.Apply(in)
	require.NoError(t, err)
	require.Len(t, out.Signal, 1)
	chunk := out.Signal[0]
	require.Equal(t, 0.0, chunk.T0)
	require.InDelta(t, 5.0, chunk.X[5][0], 1e-9)
}

func TestSparseSignal_FillConstant(t *testing.T) {
	c := 7.0
	tr := SparseSignal{SampleFrequency: 10, FillConstant: &c}
	in := Slice{Numeric: []neutralzone.NumericRow{
		{T: 0, Values: []float64{0}},
		{T: 1, Values: []float64{100}},
	}}

	out, err := tr.Apply(in)
	require.NoError(t, err)
	for _, row := range out.Signal[0].X {
		require.Equal(t, 7.0, row[0])
	}
}

func TestSparseSignal_TooFewRows(t *testing.T) {
	tr := SparseSignal{SampleFrequency: 10}
	in := Slice{Numeric: []neutralzone.NumericRow{{T: 0, Values: []float64{1}}}}

	out, err := tr.Apply(in)
	require.NoError(t, err)
	require.Empty(t, out.Signal)
}

func TestPipeline_ComposesInOrder(t *testing.T) {
	p := Pipeline{
		OffsetThenGain{Offset: 1, Gain: 1},
		OffsetThenGain{Offset: 0, Gain: 10},
	}
	in := Slice{Numeric: []neutralzone.NumericRow{{T: 0, Values: []float64{1}}}}

	out, err := p.Apply(in)
	require.NoError(t, err)
	require.Equal(t, 20.0, out.Numeric[0].Values[0])
}
