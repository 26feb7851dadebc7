// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package extractor implements the Trial Extractor (§4.F): readiness
// waiting, offset and WRT resolution, single-pass snapshot-and-shift of
// every Neutral Zone buffer, and post-emission garbage collection.
// Enhancers are run by the caller (internal/driver), not by this package.
package extractor

import (
	"github.com/trialzone/trialzone/internal/neutralzone"
)

// Trial is the entity produced by the core (§3 "Trial").
type Trial struct {
	Index                 int
	StartTime             float64
	EndTime               *float64
	WRTTime               float64
	NumericEvents         map[string][]neutralzone.NumericRow
	TextEvents            map[string][]neutralzone.TextRow
	Signals               map[string][]neutralzone.SignalChunk
	ChannelIDs            map[string][]string // per-signal-buffer channel identifiers (§3 "ids: str[c]")
	Enhancements          map[string]any
	EnhancementCategories map[string][]string
}

func newTrial(index int, start float64, end *float64, wrt float64) *Trial {
	return &Trial{
		Index:                 index,
		StartTime:             start,
		EndTime:               end,
		WRTTime:               wrt,
		NumericEvents:         make(map[string][]neutralzone.NumericRow),
		TextEvents:            make(map[string][]neutralzone.TextRow),
		Signals:               make(map[string][]neutralzone.SignalChunk),
		ChannelIDs:            make(map[string][]string),
		Enhancements:          make(map[string]any),
		EnhancementCategories: make(map[string][]string),
	}
}
