// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncreg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOffsetAt_ClosestInTime_S3Scenario(t *testing.T) {
	r := New("ref")
	r.AddFollower("follower", PairingClosestInTime)

	r.ObserveReference(1, 0)
	r.ObserveReference(11, 1)
	r.ObserveReference(21, 2)

	r.ObserveFollower("follower", 1.05, 0)
	r.ObserveFollower("follower", 11.55, 1)
	r.ObserveFollower("follower", 22.05, 2)

	delta := r.OffsetAt("follower", 10)
	require.InDelta(t, -0.05, delta, 1e-9)
}

func TestOffsetAt_NoPairsYet(t *testing.T) {
	r := New("ref")
	r.AddFollower("f", PairingClosestInTime)
	require.Equal(t, 0.0, r.OffsetAt("f", 100))
}

func TestOffsetAt_Keyed(t *testing.T) {
	r := New("ref")
	r.AddFollower("f", PairingKeyed)

	r.ObserveReference(1, "a")
	r.ObserveReference(5, "b")
	r.ObserveFollower("f", 1.1, "a")
	r.ObserveFollower("f", 5.2, "b")

	require.InDelta(t, -0.1, r.OffsetAt("f", 1), 1e-9)
	require.InDelta(t, -0.2, r.OffsetAt("f", 5), 1e-9)
}

func TestOffsetAt_Alias_BorrowsInheritedList(t *testing.T) {
	r := New("ref")
	r.AddFollower("donor", PairingClosestInTime)
	r.AddAlias("borrower", "donor")

	r.ObserveReference(1, 0)
	r.ObserveFollower("donor", 1.2, 0)

	require.InDelta(t, -0.2, r.OffsetAt("borrower", 1), 1e-9)
}
