// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package extractor

import (
	"math"

	"github.com/trialzone/trialzone/internal/delimiter"
	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/syncreg"
)

// BufferSpec names one Neutral Zone buffer snapshotted into every trial,
// and the reader that owns its clock (§3 "Ownership").
type BufferSpec struct {
	Variety    neutralzone.Variety
	Name       string
	ReaderName string
}

// WRTSpec names the buffer and value the extractor scans to resolve each
// trial's local zero time (§4.E "WRT selection").
type WRTSpec struct {
	BufferName string
	Column     int
	Value      float64
}

// ReaderState is the readiness information the driver tracks for each
// configured reader (§4.F step 1).
type ReaderState struct {
	EndTime   float64
	Exhausted bool
}

// Extractor implements steps 1-4 of §4.F: readiness waiting, offset
// resolution, WRT resolution, and the single-pass snapshot-and-shift.
// Enhancer invocation and sink handoff (steps 5-6) are the caller's
// responsibility so this package never imports the enhancer or sink
// packages; garbage collection (step 7) is exposed as GC.
type Extractor struct {
	zone          *neutralzone.Zone
	registry      *syncreg.Registry
	referenceName string
	buffers       []BufferSpec
	wrt           *WRTSpec
	nextIndex     int
}

func New(zone *neutralzone.Zone, registry *syncreg.Registry, referenceName string, buffers []BufferSpec, wrt *WRTSpec) *Extractor {
	return &Extractor{zone: zone, registry: registry, referenceName: referenceName, buffers: buffers, wrt: wrt}
}

// Ready reports whether window is safe to extract per §4.F step 1: every
// reader's end_time() >= the window's end, or every reader is exhausted.
// A nil End (final trial) requires every reader exhausted.
func Ready(window delimiter.Window, states map[string]ReaderState) bool {
	if window.End == nil {
		for _, s := range states {
			if !s.Exhausted {
				return false
			}
		}
		return true
	}
	end := *window.End
	for _, s := range states {
		if s.EndTime < end && !s.Exhausted {
			return false
		}
	}
	return true
}

// TryExtract builds the trial for window if it is ready, or returns
// ok=false if the caller should retry once more data has arrived.
func (e *Extractor) TryExtract(window delimiter.Window, states map[string]ReaderState) (*Trial, bool) {
	if !Ready(window, states) {
		return nil, false
	}

	deltas := e.offsetsAt(window.Start)
	wrtTime := e.resolveWRT(window, deltas)

	trial := newTrial(e.nextIndex, window.Start, window.End, wrtTime)
	e.nextIndex++

	endBound := math.Inf(1)
	if window.End != nil {
		endBound = *window.End
	}

	for _, spec := range e.buffers {
		delta := deltas[spec.ReaderName]
		shift := wrtTime - delta
		lo, hi := window.Start-delta, endBound-delta

		switch spec.Variety {
		case neutralzone.VarietyNumericEvent:
			buf, ok := e.zone.Numeric(spec.Name)
			if !ok {
				continue
			}
			rows := buf.Query(lo, hi)
			trial.NumericEvents[spec.Name] = neutralzone.ShiftNumericTimes(rows, shift)
		case neutralzone.VarietyTextEvent:
			buf, ok := e.zone.Text(spec.Name)
			if !ok {
				continue
			}
			rows := buf.Query(lo, hi)
			trial.TextEvents[spec.Name] = neutralzone.ShiftTextTimes(rows, shift)
		case neutralzone.VarietySignal:
			buf, ok := e.zone.Signal(spec.Name)
			if !ok {
				continue
			}
			chunks := buf.Query(lo, hi)
			trial.Signals[spec.Name] = neutralzone.ShiftSignalTimes(chunks, shift)
			trial.ChannelIDs[spec.Name] = buf.ChannelIDs()
		}
	}

	return trial, true
}

// GC runs §4.F step 7: discard_before(min(start, end-1.0)) on every
// configured buffer once window has been emitted.
func (e *Extractor) GC(window delimiter.Window) {
	end := math.Inf(1)
	if window.End != nil {
		end = *window.End
	}
	cut := math.Min(window.Start, end-1.0)
	e.zone.DiscardBefore(cut)
}

// offsetsAt resolves each configured reader's Δ at query time t. The
// reference reader's offset is always 0.
func (e *Extractor) offsetsAt(t float64) map[string]float64 {
	deltas := make(map[string]float64)
	seen := make(map[string]bool)
	for _, spec := range e.buffers {
		if seen[spec.ReaderName] {
			continue
		}
		seen[spec.ReaderName] = true
		if spec.ReaderName == e.referenceName || spec.ReaderName == "" {
			deltas[spec.ReaderName] = 0
			continue
		}
		deltas[spec.ReaderName] = e.registry.OffsetAt(spec.ReaderName, t)
	}
	return deltas
}

// resolveWRT implements §4.E "WRT selection": scan the WRT buffer for the
// first row equal to Value within the window, in the owning reader's
// clock, then convert to an absolute reference-clock time. If no WRT spec
// is configured or no row matches, wrt_time falls back to the window's
// own start time -- except for the implicit trial 0 window (start = -Inf)
// where no finite fallback exists, so data is left unshifted (wrt_time =
// 0), matching the observable contract in §9 "Open-ended trial 0".
func (e *Extractor) resolveWRT(window delimiter.Window, deltas map[string]float64) float64 {
	fallback := window.Start
	if math.IsInf(fallback, -1) {
		fallback = 0
	}
	if e.wrt == nil {
		return fallback
	}

	owner := e.ownerOf(e.wrt.BufferName)
	delta := deltas[owner]

	endBound := math.Inf(1)
	if window.End != nil {
		endBound = *window.End
	}
	buf, ok := e.zone.Numeric(e.wrt.BufferName)
	if !ok {
		return fallback
	}
	rows := buf.Query(window.Start-delta, endBound-delta)
	for _, r := range rows {
		if e.wrt.Column < len(r.Values) && r.Values[e.wrt.Column] == e.wrt.Value {
			return r.T + delta
		}
	}
	return fallback
}

func (e *Extractor) ownerOf(bufferName string) string {
	for _, spec := range e.buffers {
		if spec.Name == bufferName && spec.Variety == neutralzone.VarietyNumericEvent {
			return spec.ReaderName
		}
	}
	return e.referenceName
}
