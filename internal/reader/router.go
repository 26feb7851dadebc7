// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reader

import (
	"context"
	"errors"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"golang.org/x/time/rate"

	"github.com/trialzone/trialzone/internal/metrics"
	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/transform"
)

const (
	maxRetryAttempts = 3
	baseBackoff      = 100 * time.Millisecond
	maxBackoff       = 2 * time.Second
)

// PrimaryTarget tells the router which Neutral Zone buffer a named piece
// of a ReadResult belongs to.
type PrimaryTarget struct {
	ResultKey  string
	Variety    neutralzone.Variety
	Name       string
	ChannelIDs []string // signal buffers only; empty lets the buffer synthesize ch0..chN-1
}

// DerivedTarget describes one derived buffer fed from a primary result
// key through an ordered transformer pipeline (§4.B).
type DerivedTarget struct {
	Source     string // ResultKey of the primary this derives from
	Variety    neutralzone.Variety
	Name       string
	Pipeline   transform.Pipeline
	ChannelIDs []string // signal buffers only
}

// entry bundles one configured reader with its buffer wiring and retry
// state.
type entry struct {
	reader        Reader
	primaries     []PrimaryTarget
	derived       []DerivedTarget
	simulateDelay bool
	pacer         *rate.Limiter
	exhausted     bool
}

// Router runs the pull cycle for every configured reader against a shared
// Zone (§4.C).
type Router struct {
	zone    *neutralzone.Zone
	entries []*entry
}

func NewRouter(zone *neutralzone.Zone) *Router {
	return &Router{zone: zone}
}

// AddReader registers r with its buffer wiring. simulateDelayHz, when > 0,
// paces ReadNext calls to at most that many per second (§4.H gui pacing);
// zero disables pacing (batch/convert mode pulls as fast as possible).
func (rt *Router) AddReader(r Reader, primaries []PrimaryTarget, derived []DerivedTarget, simulateDelayHz float64) {
	e := &entry{reader: r, primaries: primaries, derived: derived}
	if simulateDelayHz > 0 {
		e.simulateDelay = true
		e.pacer = rate.NewLimiter(rate.Limit(simulateDelayHz), 1)
	}
	rt.entries = append(rt.entries, e)
}

// Exhausted reports whether every configured reader has reached end of
// stream or permanently failed.
func (rt *Router) Exhausted() bool {
	for _, e := range rt.entries {
		if !e.exhausted {
			return false
		}
	}
	return true
}

// ReaderNames returns every configured reader's name, in registration
// order, for building the extractor's readiness map (§4.F step 1).
func (rt *Router) ReaderNames() []string {
	names := make([]string, len(rt.entries))
	for i, e := range rt.entries {
		names[i] = e.reader.Name()
	}
	return names
}

// ReaderState reports the named reader's current end_time (the latest
// end time across every Neutral Zone buffer it feeds, primary or derived)
// and whether it has reached end of stream, per §4.F step 1.
func (rt *Router) ReaderState(name string) (endTime float64, exhausted bool) {
	endTime = neutralzone.NegInf
	for _, e := range rt.entries {
		if e.reader.Name() != name {
			continue
		}
		exhausted = e.exhausted
		for _, p := range e.primaries {
			if t := bufferEndTime(rt.zone, p.Variety, p.Name); t > endTime {
				endTime = t
			}
		}
		for _, d := range e.derived {
			if t := bufferEndTime(rt.zone, d.Variety, d.Name); t > endTime {
				endTime = t
			}
		}
		return endTime, exhausted
	}
	return endTime, true
}

func bufferEndTime(zone *neutralzone.Zone, variety neutralzone.Variety, name string) float64 {
	switch variety {
	case neutralzone.VarietyNumericEvent:
		if b, ok := zone.Numeric(name); ok {
			return b.EndTime()
		}
	case neutralzone.VarietyTextEvent:
		if b, ok := zone.Text(name); ok {
			return b.EndTime()
		}
	case neutralzone.VarietySignal:
		if b, ok := zone.Signal(name); ok {
			return b.EndTime()
		}
	}
	return neutralzone.NegInf
}

// Advance runs one pull cycle across every non-exhausted reader. It
// returns true if at least one reader produced data this cycle.
func (rt *Router) Advance(ctx context.Context) bool {
	progressed := false
	for _, e := range rt.entries {
		if e.exhausted {
			continue
		}
		if e.simulateDelay {
			if err := e.pacer.Wait(ctx); err != nil {
				return progressed
			}
		}
		if rt.pullOne(ctx, e) {
			progressed = true
		}
	}
	return progressed
}

func (rt *Router) pullOne(ctx context.Context, e *entry) bool {
	var result ReadResult
	var err error

	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		result, err = e.reader.ReadNext(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, ErrEndOfStream) {
			e.exhausted = true
			return false
		}
		if errors.Is(err, ErrPermanent) {
			cclog.Warnf("[ROUTER]> reader %q failed permanently: %v", e.reader.Name(), err)
			metrics.ReaderErrors.WithLabelValues(e.reader.Name()).Inc()
			e.exhausted = true
			return false
		}
		if !errors.Is(err, ErrRetryable) || attempt == maxRetryAttempts {
			cclog.Warnf("[ROUTER]> reader %q exhausted after %d retries: %v", e.reader.Name(), attempt, err)
			metrics.ReaderErrors.WithLabelValues(e.reader.Name()).Inc()
			e.exhausted = true
			return false
		}
		delay := backoffDelay(attempt)
		cclog.Warnf("[ROUTER]> reader %q retryable failure (attempt %d/%d), retrying in %s: %v", e.reader.Name(), attempt+1, maxRetryAttempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}
	if result == nil {
		return false
	}

	progressed := false
	for _, p := range e.primaries {
		slice, ok := result[p.ResultKey]
		if !ok || slice.Empty() {
			continue
		}
		if err := appendSlice(rt.zone, p.Variety, p.Name, slice); err != nil {
			cclog.Warnf("[ROUTER]> reader %q: append to %s: %v", e.reader.Name(), p.Name, err)
			continue
		}
		if p.Variety == neutralzone.VarietySignal && len(p.ChannelIDs) > 0 {
			rt.zone.CreateSignal(p.Name).SetChannelIDs(p.ChannelIDs)
		}
		progressed = true

		for _, d := range e.derived {
			if d.Source != p.ResultKey {
				continue
			}
			out, err := d.Pipeline.Apply(slice)
			if err != nil {
				cclog.Warnf("[ROUTER]> reader %q: derived %q pipeline: %v", e.reader.Name(), d.Name, err)
				continue
			}
			if out.Empty() {
				continue
			}
			if err := appendSlice(rt.zone, d.Variety, d.Name, out); err != nil {
				cclog.Warnf("[ROUTER]> reader %q: append derived %q: %v", e.reader.Name(), d.Name, err)
				continue
			}
			if d.Variety == neutralzone.VarietySignal && len(d.ChannelIDs) > 0 {
				rt.zone.CreateSignal(d.Name).SetChannelIDs(d.ChannelIDs)
			}
		}
	}
	return progressed
}

func appendSlice(zone *neutralzone.Zone, variety neutralzone.Variety, name string, s transform.Slice) error {
	switch variety {
	case neutralzone.VarietyNumericEvent:
		return zone.CreateNumeric(name).Append(s.Numeric)
	case neutralzone.VarietyTextEvent:
		return zone.CreateText(name).Append(s.Text)
	case neutralzone.VarietySignal:
		return zone.CreateSignal(name).Append(s.Signal)
	default:
		return nil
	}
}

// backoffDelay returns the capped exponential backoff for a given
// zero-based retry attempt (§4.C "Error policy": exponential, max 3
// attempts).
func backoffDelay(attempt int) time.Duration {
	d := baseBackoff << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
