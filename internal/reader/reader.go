// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reader implements the Reader Router: the component that pulls
// incremental results from per-source Readers, appends them to their
// primary Neutral Zone buffer, and fans them through each derived
// buffer's transformer pipeline.
package reader

import (
	"context"
	"errors"

	"github.com/trialzone/trialzone/internal/transform"
)

// ErrRetryable marks a read failure the router should retry with capped
// backoff (§4.C "Error policy").
var ErrRetryable = errors.New("reader: retryable failure")

// ErrPermanent marks a read failure that exhausts the reader without
// aborting the run.
var ErrPermanent = errors.New("reader: permanent failure")

// ErrEndOfStream is returned by ReadNext when a reader has no more data
// to offer, ever.
var ErrEndOfStream = errors.New("reader: end of stream")

// ReadResult is the named set of incremental slices a Reader hands back
// on one ReadNext call; exactly one entry is expected for a single-buffer
// reader, more for a reader that drives several primary buffers at once.
type ReadResult map[string]transform.Slice

// Reader is the per-source pull interface (§4.C "Pull cycle"). ReadNext
// blocks until new data is available, the stream ends (ErrEndOfStream),
// or a failure occurs (wrapping ErrRetryable or ErrPermanent).
type Reader interface {
	// Name identifies the reader for logging and sync registry lookups.
	Name() string
	ReadNext(ctx context.Context) (ReadResult, error)
	// Close releases any resources (open files, subscriptions).
	Close() error
}
