// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/trialzone/trialzone/internal/neutralzone"
)

// CSVNumericEventReader is the reference numeric-event source: each row is
// `t,v0,v1,...`. It is a stand-in for the declarative configuration's CSV
// reader contract (§6) — a conforming, out-of-core implementation of the
// same Reader interface may replace it without touching the rest of the
// pipeline. Rows are delivered ChunkSize at a time so the router observes
// the same incremental-append behavior a live source would produce.
type CSVNumericEventReader struct {
	name      string
	src       *csv.Reader
	closer    io.Closer
	chunkSize int
	done      bool
}

// NewCSVNumericEventReader wraps r (already positioned at the first data
// row; no header row is assumed) as a numeric-event Reader named name.
func NewCSVNumericEventReader(name string, r io.Reader, chunkSize int) *CSVNumericEventReader {
	if chunkSize <= 0 {
		chunkSize = 32
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	closer, _ := r.(io.Closer)
	return &CSVNumericEventReader{name: name, src: cr, closer: closer, chunkSize: chunkSize}
}

func (c *CSVNumericEventReader) Name() string { return c.name }

func (c *CSVNumericEventReader) ReadNext(ctx context.Context) (ReadResult, error) {
	if c.done {
		return nil, ErrEndOfStream
	}
	rows := make([]neutralzone.NumericRow, 0, c.chunkSize)
	for len(rows) < c.chunkSize {
		rec, err := c.src.Read()
		if err == io.EOF {
			c.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv reader %q: %v", ErrRetryable, c.name, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: csv reader %q: row %v has fewer than 2 fields", ErrPermanent, c.name, rec)
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: csv reader %q: bad timestamp %q", ErrPermanent, c.name, rec[0])
		}
		vals := make([]float64, len(rec)-1)
		for i, f := range rec[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: csv reader %q: bad value %q", ErrPermanent, c.name, f)
			}
			vals[i] = v
		}
		rows = append(rows, neutralzone.NumericRow{T: t, Values: vals})
	}
	if len(rows) == 0 {
		return nil, ErrEndOfStream
	}
	return ReadResult{c.name: {Numeric: rows}}, nil
}

func (c *CSVNumericEventReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// CSVTextEventReader mirrors CSVNumericEventReader for text events: each
// row is `t,text`.
type CSVTextEventReader struct {
	name      string
	src       *csv.Reader
	closer    io.Closer
	chunkSize int
	done      bool
}

func NewCSVTextEventReader(name string, r io.Reader, chunkSize int) *CSVTextEventReader {
	if chunkSize <= 0 {
		chunkSize = 32
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	closer, _ := r.(io.Closer)
	return &CSVTextEventReader{name: name, src: cr, closer: closer, chunkSize: chunkSize}
}

func (c *CSVTextEventReader) Name() string { return c.name }

func (c *CSVTextEventReader) ReadNext(ctx context.Context) (ReadResult, error) {
	if c.done {
		return nil, ErrEndOfStream
	}
	rows := make([]neutralzone.TextRow, 0, c.chunkSize)
	for len(rows) < c.chunkSize {
		rec, err := c.src.Read()
		if err == io.EOF {
			c.done = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv reader %q: %v", ErrRetryable, c.name, err)
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: csv reader %q: bad timestamp %q", ErrPermanent, c.name, rec[0])
		}
		rows = append(rows, neutralzone.TextRow{T: t, Text: rec[1]})
	}
	if len(rows) == 0 {
		return nil, ErrEndOfStream
	}
	return ReadResult{c.name: {Text: rows}}, nil
}

func (c *CSVTextEventReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

var _ Reader = (*CSVNumericEventReader)(nil)
var _ Reader = (*CSVTextEventReader)(nil)
