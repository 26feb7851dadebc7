// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package neutralzone implements the shared, typed, time-ordered buffer
// model described as "the Neutral Zone": a set of independent named
// buffers (numeric events, text events, chunked signals) with append,
// query, copy and discard semantics. Each buffer is identified by the
// pair (variety, name); the same name may be reused across varieties
// without collision.
package neutralzone

import (
	"fmt"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// Variety identifies which buffer kind a name refers to.
type Variety int

const (
	VarietyNumericEvent Variety = iota
	VarietyTextEvent
	VarietySignal
)

func (v Variety) String() string {
	switch v {
	case VarietyNumericEvent:
		return "numeric_event"
	case VarietyTextEvent:
		return "text_event"
	case VarietySignal:
		return "signal"
	default:
		return "unknown"
	}
}

// Key identifies a buffer within a Zone.
type Key struct {
	Variety Variety
	Name    string
}

// Zone is the shared, in-memory collection of named buffers that make up
// one run's data model. Each buffer is exclusively owned by the reader
// that created it (the Router); other components query or discard through
// the Zone, never mutating a buffer directly.
type Zone struct {
	mu      sync.RWMutex
	numeric map[string]*NumericEventBuffer
	text    map[string]*TextEventBuffer
	signal  map[string]*SignalBuffer
}

// New creates an empty Zone.
func New() *Zone {
	return &Zone{
		numeric: make(map[string]*NumericEventBuffer),
		text:    make(map[string]*TextEventBuffer),
		signal:  make(map[string]*SignalBuffer),
	}
}

// CreateNumeric registers a new numeric event buffer under name. It is a
// no-op (returning the existing buffer) if name is already registered in
// this variety, since readers are instantiated once at startup and may be
// queried for their buffer repeatedly during config wiring.
func (z *Zone) CreateNumeric(name string) *NumericEventBuffer {
	z.mu.Lock()
	defer z.mu.Unlock()
	if b, ok := z.numeric[name]; ok {
		return b
	}
	b := newNumericEventBuffer(name)
	z.numeric[name] = b
	return b
}

// CreateText registers a new text event buffer under name.
func (z *Zone) CreateText(name string) *TextEventBuffer {
	z.mu.Lock()
	defer z.mu.Unlock()
	if b, ok := z.text[name]; ok {
		return b
	}
	b := newTextEventBuffer(name)
	z.text[name] = b
	return b
}

// CreateSignal registers a new chunked signal buffer under name.
func (z *Zone) CreateSignal(name string) *SignalBuffer {
	z.mu.Lock()
	defer z.mu.Unlock()
	if b, ok := z.signal[name]; ok {
		return b
	}
	b := newSignalBuffer(name)
	z.signal[name] = b
	return b
}

func (z *Zone) Numeric(name string) (*NumericEventBuffer, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	b, ok := z.numeric[name]
	return b, ok
}

func (z *Zone) Text(name string) (*TextEventBuffer, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	b, ok := z.text[name]
	return b, ok
}

func (z *Zone) Signal(name string) (*SignalBuffer, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	b, ok := z.signal[name]
	return b, ok
}

// Names returns every registered (variety, name) pair. The gui
// maintenance job uses it to count buffers in its backlog log.
func (z *Zone) Names() []Key {
	z.mu.RLock()
	defer z.mu.RUnlock()
	keys := make([]Key, 0, len(z.numeric)+len(z.text)+len(z.signal))
	for n := range z.numeric {
		keys = append(keys, Key{VarietyNumericEvent, n})
	}
	for n := range z.text {
		keys = append(keys, Key{VarietyTextEvent, n})
	}
	for n := range z.signal {
		keys = append(keys, Key{VarietySignal, n})
	}
	return keys
}

// EarliestEndTime returns the minimum end_time() across every registered
// buffer, or -Inf if the zone is empty. The gui maintenance job logs it as
// a backlog signal; readiness for firing a window (§4.F) is decided per
// reader from Router.ReaderState instead.
func (z *Zone) EarliestEndTime() float64 {
	z.mu.RLock()
	defer z.mu.RUnlock()
	min := NegInf
	first := true
	upd := func(t float64) {
		if first || t < min {
			min = t
			first = false
		}
	}
	for _, b := range z.numeric {
		upd(b.EndTime())
	}
	for _, b := range z.text {
		upd(b.EndTime())
	}
	for _, b := range z.signal {
		upd(b.EndTime())
	}
	return min
}

// DiscardBefore instructs every buffer in the zone to drop data strictly
// earlier than t. Called by the extractor after each trial is emitted
// (§4.F step 7); buffer content only ever shrinks from the head.
func (z *Zone) DiscardBefore(t float64) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	for _, b := range z.numeric {
		b.DiscardBefore(t)
	}
	for _, b := range z.text {
		b.DiscardBefore(t)
	}
	for _, b := range z.signal {
		b.DiscardBefore(t)
	}
}

// ErrOutOfOrder is returned by append when the new data's first timestamp
// precedes the buffer's current last timestamp by more than the tolerated
// slack (§9 "OutOfOrder tolerance").
var ErrOutOfOrder = fmt.Errorf("neutralzone: out of order append")

func warnOutOfOrder(variety, name string, t, last float64) {
	cclog.Warnf("[NEUTRALZONE]> rejected out-of-order append to %s buffer %q: t=%v < last=%v", variety, name, t, last)
}
