// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalog_UpsertAndLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := OpenCatalog(path)
	require.NoError(t, err)
	defer c.Close()

	last, err := c.Last()
	require.NoError(t, err)
	require.Equal(t, -1, last)

	end0 := 1.0
	require.NoError(t, c.Upsert(Record{TrialIndex: 0, StartTime: 0, EndTime: &end0, SinkOffset: 0, ContentHash: "a"}))
	end1 := 2.0
	require.NoError(t, c.Upsert(Record{TrialIndex: 1, StartTime: 1, EndTime: &end1, SinkOffset: 120, ContentHash: "b"}))

	last, err = c.Last()
	require.NoError(t, err)
	require.Equal(t, 1, last)

	recs, err := c.All()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "a", recs[0].ContentHash)

	// upsert overwrites in place, for a collecter-driven rewrite
	require.NoError(t, c.Upsert(Record{TrialIndex: 0, StartTime: 0, EndTime: &end0, SinkOffset: 0, ContentHash: "a2"}))
	recs, err = c.All()
	require.NoError(t, err)
	require.Equal(t, "a2", recs[0].ContentHash)
}
