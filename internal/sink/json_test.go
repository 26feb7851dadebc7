// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trialzone/trialzone/internal/extractor"
	"github.com/trialzone/trialzone/internal/neutralzone"
)

func trialFixture(index int, start float64) *extractor.Trial {
	end := start + 1.0
	return &extractor.Trial{
		Index:     index,
		StartTime: start,
		EndTime:   &end,
		WRTTime:   start,
		NumericEvents: map[string][]neutralzone.NumericRow{
			"delims": {{T: start, Values: []float64{1010, math.NaN()}}},
		},
		TextEvents: map[string][]neutralzone.TextRow{
			"annotations": {{T: start, Text: "go"}},
		},
		Signals: map[string][]neutralzone.SignalChunk{
			"eye_pos": {{T0: start, F: 10, X: [][]float64{{1, 2}, {3, 4}}}},
		},
		ChannelIDs: map[string][]string{
			"eye_pos": {"x", "y"},
		},
		Enhancements:          map[string]any{"target_hit": true},
		EnhancementCategories: map[string][]string{"target_hit": {"outcome"}},
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

func TestJSONSink_WriteAppendsOneLinePerTrial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.jsonl")
	s, err := OpenJSONSink(path)
	require.NoError(t, err)

	off0, err := s.Write(trialFixture(0, 0))
	require.NoError(t, err)
	require.Equal(t, int64(0), off0)

	off1, err := s.Write(trialFixture(1, 1))
	require.NoError(t, err)
	require.Greater(t, off1, int64(0))

	require.NoError(t, s.Close())
	require.Equal(t, 2, countLines(t, path))
}

func TestJSONSink_NaNEncodesAsNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.jsonl")
	s, err := OpenJSONSink(path)
	require.NoError(t, err)
	_, err = s.Write(trialFixture(0, 0))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var d map[string]any
	require.NoError(t, json.Unmarshal(raw, &d))
	rows := d["numeric_events"].(map[string]any)["delims"].([]any)[0].([]any)
	require.Nil(t, rows[2])

	sig := d["signals"].(map[string]any)["eye_pos"].(map[string]any)
	require.Equal(t, []any{"x", "y"}, sig["channel_ids"])
}

func TestJSONSink_RewriteFromTruncatesAndReappends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.jsonl")
	s, err := OpenJSONSink(path)
	require.NoError(t, err)

	trials := []*extractor.Trial{trialFixture(0, 0), trialFixture(1, 1), trialFixture(2, 2)}
	for _, tr := range trials {
		_, err := s.Write(tr)
		require.NoError(t, err)
	}
	require.Equal(t, 3, countLines(t, path))

	trials[1].Enhancements["target_hit"] = false
	require.NoError(t, s.RewriteFrom(1, trials))
	require.Equal(t, 3, countLines(t, path))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	require.True(t, sc.Scan())
	var d map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &d))
	require.Equal(t, false, d["enhancements"].(map[string]any)["target_hit"])
}
