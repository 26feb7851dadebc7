// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sink implements the two durable trial-file formats named in
// §6 "Trial file formats": line-delimited JSON and a hierarchical binary
// container. Both are append-only and crash-consistent; both support the
// one rewrite instruction §4.G carves out of the "no retroactive rewrite"
// Non-goal (collecters may rewrite already-emitted trials' enhancements).
package sink

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/ClusterCockpit/cc-lib/v2/schema"

	"github.com/trialzone/trialzone/internal/extractor"
)

// Sink receives the emitted trial stream and the deferred collecter
// rewrite instruction (§4.F step 6, §4.G "Collecters").
type Sink interface {
	// Write appends trial to the file, returning the byte offset its
	// record started at (used by RewriteFrom to truncate and resend).
	Write(trial *extractor.Trial) (int64, error)
	// RewriteFrom truncates the file back to the offset trial index
	// `from` was originally written at, then re-writes trials[from:] in
	// their (possibly collecter-modified) current state. Collecters change
	// Enhancements/EnhancementCategories and, for SignalNormalizer, signal
	// sample values; timing is unchanged, so every trial keeps its window.
	RewriteFrom(from int, trials []*extractor.Trial) error
	// Offset returns the byte offset trial index was last written at,
	// reflecting any RewriteFrom since. False if index was never written.
	Offset(index int) (int64, bool)
	Close() error
}

// Open picks the sink implementation by file extension, per §6 "Trial
// file formats": ".json"/".jsonl" is line-delimited JSON, ".h5"/".hdf5"/
// ".hdf"/".he5" is the hierarchical binary container (an Avro Object
// Container File on disk; see DESIGN.md for why no real HDF5 library is
// wired). Compression is optional for the binary format.
func Open(path string, compress bool) (Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		return OpenJSONSink(path)
	case ".h5", ".hdf5", ".hdf", ".he5":
		return OpenBinarySink(path, compress)
	default:
		return nil, fmt.Errorf("sink: unrecognized trial file extension %q", filepath.Ext(path))
	}
}

// jsonFloat is schema.Float, the NaN-aware JSON float the teacher defines
// for its own nullable metric columns; ±Inf is folded into schema.NaN
// before use since its MarshalJSON only special-cases IsNaN, and both
// already mean "no value" per §6 "Numeric NaN/∞ represented as JSON
// null."
type jsonFloat = schema.Float

func toJSONFloat(v float64) jsonFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return schema.NaN
	}
	return schema.Float(v)
}

// doc is the §6 line/group document shape shared by both sink formats.
type doc struct {
	StartTime             *jsonFloat               `json:"start_time"`
	EndTime               *jsonFloat               `json:"end_time"`
	WRTTime               jsonFloat                `json:"wrt_time"`
	NumericEvents         map[string][][]jsonFloat `json:"numeric_events"`
	TextEvents            map[string]textEventsDoc `json:"text_events"`
	Signals               map[string]signalDoc     `json:"signals"`
	Enhancements          map[string]any           `json:"enhancements"`
	EnhancementCategories map[string][]string      `json:"enhancement_categories"`
}

type textEventsDoc struct {
	TimestampData []jsonFloat `json:"timestamp_data"`
	TextData      []string    `json:"text_data"`
}

type signalDoc struct {
	SignalData       [][]jsonFloat `json:"signal_data"`
	SampleFrequency  float64       `json:"sample_frequency"`
	FirstSampleTime  jsonFloat     `json:"first_sample_time"`
	ChannelIDs       []string      `json:"channel_ids"`
}

// buildDoc converts a Trial into the shared document shape. A signal
// with more than one chunk in a single trial (possible only across a gap
// wider than one router cycle within the trial's window) is represented
// by its first chunk only: neither file format's schema has a place for
// multiple chunks per trial per signal, and resampling to merge them is
// an explicit Non-goal (§1 Non-goal a).
func buildDoc(trial *extractor.Trial) doc {
	d := doc{
		WRTTime:               toJSONFloat(trial.WRTTime),
		NumericEvents:         make(map[string][][]jsonFloat, len(trial.NumericEvents)),
		TextEvents:            make(map[string]textEventsDoc, len(trial.TextEvents)),
		Signals:               make(map[string]signalDoc, len(trial.Signals)),
		Enhancements:          trial.Enhancements,
		EnhancementCategories: trial.EnhancementCategories,
	}
	if !math.IsInf(trial.StartTime, -1) {
		v := toJSONFloat(trial.StartTime)
		d.StartTime = &v
	}
	if trial.EndTime != nil {
		v := toJSONFloat(*trial.EndTime)
		d.EndTime = &v
	}

	for name, rows := range trial.NumericEvents {
		rv := make([][]jsonFloat, len(rows))
		for i, r := range rows {
			row := make([]jsonFloat, 0, len(r.Values)+1)
			row = append(row, toJSONFloat(r.T))
			for _, v := range r.Values {
				row = append(row, toJSONFloat(v))
			}
			rv[i] = row
		}
		d.NumericEvents[name] = rv
	}

	for name, rows := range trial.TextEvents {
		td := textEventsDoc{
			TimestampData: make([]jsonFloat, len(rows)),
			TextData:      make([]string, len(rows)),
		}
		for i, r := range rows {
			td.TimestampData[i] = toJSONFloat(r.T)
			td.TextData[i] = r.Text
		}
		d.TextEvents[name] = td
	}

	for name, chunks := range trial.Signals {
		if len(chunks) == 0 {
			continue
		}
		if len(chunks) > 1 {
			cclog.Warnf("[SINK]> trial %d: signal %q has %d chunks, writing only the first; the rest are dropped from the trial file", trial.Index, name, len(chunks))
		}
		c := chunks[0]
		sd := signalDoc{
			SignalData:      make([][]jsonFloat, len(c.X)),
			SampleFrequency: c.F,
			FirstSampleTime: toJSONFloat(c.T0),
			ChannelIDs:      trial.ChannelIDs[name],
		}
		for i, row := range c.X {
			out := make([]jsonFloat, len(row))
			for j, v := range row {
				out[j] = toJSONFloat(v)
			}
			sd.SignalData[i] = out
		}
		d.Signals[name] = sd
	}
	return d
}
