// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package neutralzone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZone_EarliestEndTime(t *testing.T) {
	z := New()
	require.Equal(t, NegInf, z.EarliestEndTime())

	n := z.CreateNumeric("a")
	require.NoError(t, n.Append(rows(1, 2, 3)))

	x := z.CreateText("b")
	require.NoError(t, x.Append(textRows(1.0, "x")))

	require.Equal(t, 1.0, z.EarliestEndTime())

	require.NoError(t, x.Append(textRows(5.0, "y")))
	require.Equal(t, 3.0, z.EarliestEndTime())
}

func TestZone_DiscardBefore_FansOutToAllBuffers(t *testing.T) {
	z := New()
	n := z.CreateNumeric("a")
	require.NoError(t, n.Append(rows(1, 2, 3, 4)))
	x := z.CreateText("b")
	require.NoError(t, x.Append(textRows(1.0, "x", 4.0, "y")))

	z.DiscardBefore(3)

	require.Len(t, n.Query(0, 10), 2)
	require.Len(t, x.Query(0, 10), 1)
}

func TestZone_CreateIsIdempotent(t *testing.T) {
	z := New()
	a := z.CreateNumeric("gaze")
	b := z.CreateNumeric("gaze")
	require.Same(t, a, b)
}

func TestZone_Names(t *testing.T) {
	z := New()
	z.CreateNumeric("a")
	z.CreateText("b")
	z.CreateSignal("c")

	keys := z.Names()
	require.Len(t, keys, 3)
}
