// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package driver

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trialzone/trialzone/internal/delimiter"
	"github.com/trialzone/trialzone/internal/enhance"
	"github.com/trialzone/trialzone/internal/extractor"
	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/reader"
	"github.com/trialzone/trialzone/internal/sink"
	"github.com/trialzone/trialzone/internal/syncreg"
	"github.com/trialzone/trialzone/internal/transform"
)

// fakeReader hands out one batch of rows per ReadNext call, then ends.
type fakeReader struct {
	batches [][]neutralzone.NumericRow
	i       int
}

func (r *fakeReader) Name() string { return "demo" }

func (r *fakeReader) ReadNext(ctx context.Context) (reader.ReadResult, error) {
	if r.i >= len(r.batches) {
		return nil, reader.ErrEndOfStream
	}
	rows := r.batches[r.i]
	r.i++
	return reader.ReadResult{"delims": transform.Slice{Numeric: rows}}, nil
}

func (r *fakeReader) Close() error { return nil }

func TestDriver_S1CoreDemoEndToEnd(t *testing.T) {
	zone := neutralzone.New()
	rt := reader.NewRouter(zone)

	fr := &fakeReader{batches: [][]neutralzone.NumericRow{
		{{T: 1.0, Values: []float64{1010}}, {T: 1.5, Values: []float64{42}}},
		{{T: 2.0, Values: []float64{1010}}, {T: 2.5, Values: []float64{42}}},
		{{T: 3.0, Values: []float64{1010}}},
	}}
	rt.AddReader(fr, []reader.PrimaryTarget{
		{ResultKey: "delims", Variety: neutralzone.VarietyNumericEvent, Name: "delims"},
	}, nil, 0)

	del := delimiter.New("delims", 0, 1010)
	registry := syncreg.New("demo")
	collector := syncreg.NewCollector(zone, registry, nil)
	ext := extractor.New(zone, registry, "demo", []extractor.BufferSpec{
		{Variety: neutralzone.VarietyNumericEvent, Name: "delims", ReaderName: "demo"},
	}, nil)

	path := filepath.Join(t.TempDir(), "trials.jsonl")
	jsonSink, err := sink.OpenJSONSink(path)
	require.NoError(t, err)

	d := New(Config{
		Zone:      zone,
		Router:    rt,
		Delimiter: del,
		Collector: collector,
		Extractor: ext,
		Pipeline:  enhance.Pipeline{},
		Sink:      jsonSink,
	})

	require.NoError(t, d.Run(context.Background()))
	require.Equal(t, 4, d.TrialCount())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.Equal(t, 4, n)
}
