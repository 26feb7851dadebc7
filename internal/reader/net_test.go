// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeLineProtocol_NumericAndText(t *testing.T) {
	line := []byte("gaze_x value=1.5 1000000000\nfoo text=\"red\" 2000000000\n")

	res, err := decodeLineProtocol(line)
	require.NoError(t, err)

	require.Len(t, res["gaze_x"].Numeric, 1)
	require.Equal(t, 1.5, res["gaze_x"].Numeric[0].Values[0])
	require.InDelta(t, 1.0, res["gaze_x"].Numeric[0].T, 1e-9)

	require.Len(t, res["foo"].Text, 1)
	require.Equal(t, "red", res["foo"].Text[0].Text)
	require.InDelta(t, 2.0, res["foo"].Text[0].T, 1e-9)
}
