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

	"github.com/trialzone/trialzone/internal/extractor"
)

// JSONSink writes one trial document per line to an append-only file
// (§6 "line-delimited JSON"). Each line's starting byte offset is
// recorded so RewriteFrom can truncate back to a prior trial's line.
type JSONSink struct {
	f       *os.File
	w       *bufio.Writer
	offsets []int64 // offsets[i] is the byte offset trial index i started at
	pos     int64
}

// OpenJSONSink opens path for append, creating it if necessary. Offsets
// are tracked only from calls made through this handle: a sink reopened
// against an existing file after a crash starts its own offset table at
// the current file size, which is sufficient since RewriteFrom is only
// ever invoked for trials written in the same process run (collecters
// run once, at end of run, against the trials that run just emitted).
func OpenJSONSink(path string) (*JSONSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: stat %s: %w", path, err)
	}
	return &JSONSink{f: f, w: bufio.NewWriter(f), pos: info.Size()}, nil
}

func (s *JSONSink) Write(trial *extractor.Trial) (int64, error) {
	line, err := json.Marshal(buildDoc(trial))
	if err != nil {
		return 0, fmt.Errorf("sink: marshal trial %d: %w", trial.Index, err)
	}
	line = append(line, '\n')

	offset := s.pos
	if _, err := s.w.Write(line); err != nil {
		return 0, fmt.Errorf("sink: write trial %d: %w", trial.Index, err)
	}
	if err := s.w.Flush(); err != nil {
		return 0, fmt.Errorf("sink: flush trial %d: %w", trial.Index, err)
	}
	// fsync every record: a half-written trial is worse than the extra
	// syscall, since trials are infrequent relative to buffer polling.
	if err := s.f.Sync(); err != nil {
		return 0, fmt.Errorf("sink: sync trial %d: %w", trial.Index, err)
	}
	s.pos += int64(len(line))
	for len(s.offsets) <= trial.Index {
		s.offsets = append(s.offsets, -1)
	}
	s.offsets[trial.Index] = offset
	return offset, nil
}

// RewriteFrom truncates the file at trials[from]'s original offset and
// re-writes trials[from:] in full (§4.G deferred collecter rewrite).
func (s *JSONSink) RewriteFrom(from int, trials []*extractor.Trial) error {
	if from >= len(s.offsets) || s.offsets[from] < 0 {
		return fmt.Errorf("sink: rewrite from trial %d: no recorded offset", from)
	}
	cut := s.offsets[from]
	if err := s.f.Truncate(cut); err != nil {
		return fmt.Errorf("sink: truncate to %d: %w", cut, err)
	}
	if _, err := s.f.Seek(cut, 0); err != nil {
		return fmt.Errorf("sink: seek to %d: %w", cut, err)
	}
	s.w.Reset(s.f)
	s.pos = cut
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

func (s *JSONSink) Offset(index int) (int64, bool) {
	if index < 0 || index >= len(s.offsets) || s.offsets[index] < 0 {
		return 0, false
	}
	return s.offsets[index], true
}

func (s *JSONSink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("sink: final flush: %w", err)
	}
	return s.f.Close()
}
