// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/linkedin/goavro/v2"

	"github.com/trialzone/trialzone/internal/extractor"
)

// binarySchema is the Avro record schema for one trial, standing in for
// the hierarchical binary container named in §6 (no HDF5 library is part
// of the example corpus's stack; see DESIGN.md). Nested structures that
// vary per configuration (numeric_events/text_events/signals keys) are
// carried as JSON-encoded strings rather than a fixed Avro union, since
// the set of buffer names is only known at config-load time and an Avro
// schema is fixed at codec-creation time.
const binarySchema = `{
  "type": "record",
  "name": "Trial",
  "fields": [
    {"name": "index", "type": "long"},
    {"name": "start_time", "type": ["null", "double"]},
    {"name": "end_time", "type": ["null", "double"]},
    {"name": "wrt_time", "type": "double"},
    {"name": "numeric_events_json", "type": "string"},
    {"name": "text_events_json", "type": "string"},
    {"name": "signals_json", "type": "string"},
    {"name": "enhancements_json", "type": "string"},
    {"name": "enhancement_categories_json", "type": "string"}
  ]
}`

// BinarySink writes one Avro record per trial into an Object Container
// File (§6 "hierarchical binary container"). OCF is append-friendly by
// construction: goavro.NewOCFWriter can open an existing file and append
// further blocks under its existing schema and codec.
type BinarySink struct {
	path     string
	compress bool
	f        *os.File
	codec    *goavro.Codec
	offsets  []int64
}

// OpenBinarySink opens or creates path. compress selects Avro's deflate
// block compression; uncompressed is the default to keep single-trial
// rewrites (truncate + re-append) cheap.
func OpenBinarySink(path string, compress bool) (*BinarySink, error) {
	codec, err := goavro.NewCodec(binarySchema)
	if err != nil {
		return nil, fmt.Errorf("sink: build avro codec: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		// OCF requires the header to exist before the first Append; an
		// empty writer call with no records still lays down header+codec.
		w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Codec: codec, CompressionName: compressionName(compress)})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sink: init OCF header: %w", err)
		}
		_ = w
	}
	return &BinarySink{path: path, compress: compress, f: f, codec: codec}, nil
}

func compressionName(compress bool) string {
	if compress {
		return goavro.CompressionDeflateLabel
	}
	return goavro.CompressionNullLabel
}

func (s *BinarySink) Write(trial *extractor.Trial) (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("sink: stat before write: %w", err)
	}
	offset := info.Size()

	rec, err := toAvroRecord(trial)
	if err != nil {
		return 0, fmt.Errorf("sink: encode trial %d: %w", trial.Index, err)
	}

	if _, err := s.f.Seek(0, 2); err != nil {
		return 0, fmt.Errorf("sink: seek to end: %w", err)
	}
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: s.f, Codec: s.codec, CompressionName: compressionName(s.compress)})
	if err != nil {
		return 0, fmt.Errorf("sink: reopen OCF writer: %w", err)
	}
	if err := w.Append([]any{rec}); err != nil {
		return 0, fmt.Errorf("sink: append trial %d: %w", trial.Index, err)
	}
	if err := s.f.Sync(); err != nil {
		return 0, fmt.Errorf("sink: sync trial %d: %w", trial.Index, err)
	}

	for len(s.offsets) <= trial.Index {
		s.offsets = append(s.offsets, -1)
	}
	s.offsets[trial.Index] = offset
	return offset, nil
}

// RewriteFrom truncates the OCF file back to the byte offset trial
// `from` started at and re-appends trials[from:]. Truncating mid-OCF
// leaves the file's own header and any prior blocks untouched, since
// each Append call writes one self-contained sync-marked block.
func (s *BinarySink) RewriteFrom(from int, trials []*extractor.Trial) error {
	if from >= len(s.offsets) || s.offsets[from] < 0 {
		return fmt.Errorf("sink: rewrite from trial %d: no recorded offset", from)
	}
	cut := s.offsets[from]
	if err := s.f.Truncate(cut); err != nil {
		return fmt.Errorf("sink: truncate to %d: %w", cut, err)
	}
	s.offsets = s.offsets[:from]
	for _, trial := range trials {
		if trial.Index < from {
			continue
		}
		if _, err := s.Write(trial); err != nil {
			return err
		}
	}
	cclog.Infof("[SINK]> rewrote %d trial(s) from index %d", len(trials)-from, from)
	return nil
}

func (s *BinarySink) Offset(index int) (int64, bool) {
	if index < 0 || index >= len(s.offsets) || s.offsets[index] < 0 {
		return 0, false
	}
	return s.offsets[index], true
}

func (s *BinarySink) Close() error {
	return s.f.Close()
}

func toAvroRecord(trial *extractor.Trial) (map[string]any, error) {
	d := buildDoc(trial)

	numericJSON, err := json.Marshal(d.NumericEvents)
	if err != nil {
		return nil, err
	}
	textJSON, err := json.Marshal(d.TextEvents)
	if err != nil {
		return nil, err
	}
	signalsJSON, err := json.Marshal(d.Signals)
	if err != nil {
		return nil, err
	}
	enhJSON, err := json.Marshal(d.Enhancements)
	if err != nil {
		return nil, err
	}
	catJSON, err := json.Marshal(d.EnhancementCategories)
	if err != nil {
		return nil, err
	}

	rec := map[string]any{
		"index":                        int64(trial.Index),
		"wrt_time":                     trial.WRTTime,
		"numeric_events_json":         string(numericJSON),
		"text_events_json":            string(textJSON),
		"signals_json":                string(signalsJSON),
		"enhancements_json":           string(enhJSON),
		"enhancement_categories_json": string(catJSON),
	}
	if d.StartTime != nil {
		rec["start_time"] = goavro.Union("double", float64(*d.StartTime))
	} else {
		rec["start_time"] = goavro.Union("null", nil)
	}
	if d.EndTime != nil {
		rec["end_time"] = goavro.Union("double", float64(*d.EndTime))
	} else {
		rec["end_time"] = goavro.Union("null", nil)
	}
	return rec, nil
}

// readBinaryFile reads every record from an OCF trial file. Kept
// separate from BinarySink since reading never holds the append handle.
func readBinaryFile(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	defer f.Close()

	r, err := goavro.NewOCFReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("sink: open OCF reader: %w", err)
	}
	var out []map[string]any
	for r.Scan() {
		rec, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("sink: read record: %w", err)
		}
		m, ok := rec.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sink: unexpected record type %T", rec)
		}
		out = append(out, m)
	}
	return out, nil
}
