// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/transform"
)

func TestCSVNumericEventReader_Basic(t *testing.T) {
	r := NewCSVNumericEventReader("bar", strings.NewReader("0.1,1\n3.1,0\n"), 10)
	res, err := r.ReadNext(context.Background())
	require.NoError(t, err)
	require.Len(t, res["bar"].Numeric, 2)
	require.Equal(t, 0.1, res["bar"].Numeric[0].T)

	_, err = r.ReadNext(context.Background())
	require.ErrorIs(t, err, ErrEndOfStream)
}

func TestCSVNumericEventReader_BadRow(t *testing.T) {
	r := NewCSVNumericEventReader("bar", strings.NewReader("notanumber,1\n"), 10)
	_, err := r.ReadNext(context.Background())
	require.ErrorIs(t, err, ErrPermanent)
}

func TestCSVTextEventReader_Basic(t *testing.T) {
	r := NewCSVTextEventReader("foo", strings.NewReader("0.2,red\n1.2,red\n"), 10)
	res, err := r.ReadNext(context.Background())
	require.NoError(t, err)
	require.Len(t, res["foo"].Text, 2)
	require.Equal(t, "red", res["foo"].Text[0].Text)
}

// fakeReader is a scripted Reader for exercising the Router's retry and
// fan-out behavior without real I/O.
type fakeReader struct {
	name    string
	steps   []ReadResult
	errs    []error
	i       int
	closeFn func() error
}

func (f *fakeReader) Name() string { return f.name }

func (f *fakeReader) ReadNext(ctx context.Context) (ReadResult, error) {
	if f.i >= len(f.steps) {
		return nil, ErrEndOfStream
	}
	res, err := f.steps[f.i], f.errs[f.i]
	f.i++
	return res, err
}

func (f *fakeReader) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

func TestRouter_AppendsPrimaryAndDerived(t *testing.T) {
	zone := neutralzone.New()
	rt := NewRouter(zone)

	fr := &fakeReader{
		name: "bar",
		steps: []ReadResult{
			{"bar": {Numeric: []neutralzone.NumericRow{{T: 0.1, Values: []float64{1}}}}},
		},
		errs: []error{nil},
	}

	rt.AddReader(fr,
		[]PrimaryTarget{{ResultKey: "bar", Variety: neutralzone.VarietyNumericEvent, Name: "bar"}},
		[]DerivedTarget{{
			Source:   "bar",
			Variety:  neutralzone.VarietyNumericEvent,
			Name:     "bar_2",
			Pipeline: transform.Pipeline{transform.OffsetThenGain{Offset: 10, Gain: -2}},
		}},
		0,
	)

	progressed := rt.Advance(context.Background())
	require.True(t, progressed)

	bar, ok := zone.Numeric("bar")
	require.True(t, ok)
	require.Len(t, bar.Query(0, 10), 1)

	bar2, ok := zone.Numeric("bar_2")
	require.True(t, ok)
	rows := bar2.Query(0, 10)
	require.Len(t, rows, 1)
	require.Equal(t, -22.0, rows[0].Values[0])
}

func TestRouter_PermanentFailureExhaustsWithoutAbort(t *testing.T) {
	zone := neutralzone.New()
	rt := NewRouter(zone)

	fr := &fakeReader{
		name:  "bad",
		steps: []ReadResult{nil},
		errs:  []error{errors.Join(ErrPermanent, errors.New("boom"))},
	}
	rt.AddReader(fr, nil, nil, 0)

	rt.Advance(context.Background())
	require.True(t, rt.Exhausted())
}

func TestRouter_EndOfStreamMarksExhausted(t *testing.T) {
	zone := neutralzone.New()
	rt := NewRouter(zone)
	fr := &fakeReader{name: "done"}
	rt.AddReader(fr, nil, nil, 0)

	rt.Advance(context.Background())
	require.True(t, rt.Exhausted())
}

func TestBackoffDelay_CapsAtMax(t *testing.T) {
	require.Equal(t, baseBackoff, backoffDelay(0))
	require.Greater(t, backoffDelay(2), backoffDelay(1))
	require.LessOrEqual(t, backoffDelay(10), maxBackoff)
}
