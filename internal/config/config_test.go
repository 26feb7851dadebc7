// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const demoDescriptor = `{
  "experiment": {"subject": "s1"},
  "readers": {
    "delims": {
      "class": "csv.NumericEventReader",
      "args": {"path": "delims.csv", "chunk_size": 4}
    }
  },
  "trials": {
    "start_buffer": "delims",
    "start_value": 1010,
    "enhancers": [
      {"class": "enhance.Duration", "args": {"name": "duration"}}
    ],
    "collecters": [
      {"class": "enhance.SignalNormalizer", "args": {"signal": "sig"}}
    ]
  }
}`

func writeDemo(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "experiment.json")
	require.NoError(t, os.WriteFile(path, []byte(demoDescriptor), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "delims.csv"), []byte("0,1010\n"), 0o644))
	return path
}

func TestLoad_DecodesValidDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := writeDemo(t, dir)

	doc, err := Load(path, "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "s1", doc.Experiment["subject"])
	require.Equal(t, "csv.NumericEventReader", doc.Readers["delims"].Class)
	require.Equal(t, "delims", doc.Trials.StartBuffer)
	require.Equal(t, 1010.0, doc.Trials.StartValue)
	require.Len(t, doc.Trials.Enhancers, 1)
	require.Len(t, doc.Trials.Collecters, 1)
}

func TestLoad_UnknownTopLevelFieldIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"readers":{"r":{"class":"csv.NumericEventReader"}},"trials":{"start_buffer":"x","start_value":1},"bogus":true}`), 0o644))

	_, err := Load(path, "", nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfig))
}

func TestLoad_NoReadersIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"readers":{},"trials":{"start_buffer":"x","start_value":1}}`), 0o644))

	_, err := Load(path, "", nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfig))
}

func TestLoad_SubjectMergeOverwritesExperimentKey(t *testing.T) {
	dir := t.TempDir()
	path := writeDemo(t, dir)
	subjectPath := filepath.Join(dir, "subject.json")
	require.NoError(t, os.WriteFile(subjectPath, []byte(`{"subject": "s2", "age": 34}`), 0o644))

	doc, err := Load(path, subjectPath, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "s2", doc.Experiment["subject"])
	require.Equal(t, 34.0, doc.Experiment["age"])
}

func TestLoad_ReaderOverrideRewritesArgs(t *testing.T) {
	dir := t.TempDir()
	path := writeDemo(t, dir)

	doc, err := Load(path, "", nil, map[string]string{"delims.chunk_size": "8"})
	require.NoError(t, err)

	var args map[string]any
	require.NoError(t, decodeJSON(doc.Readers["delims"].Args, &args))
	require.Equal(t, 8.0, args["chunk_size"])
}

func TestLoad_ReaderOverrideUnknownReaderIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := writeDemo(t, dir)

	_, err := Load(path, "", nil, map[string]string{"nope.arg": "1"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfig))
}

func TestLoad_SearchPathResolvesRelativeExperimentFile(t *testing.T) {
	dir := t.TempDir()
	writeDemo(t, dir)

	doc, err := Load("experiment.json", "", []string{dir}, nil)
	require.NoError(t, err)
	require.Equal(t, "delims", doc.Trials.StartBuffer)
}

func decodeJSON(raw []byte, out any) error {
	return json.Unmarshal(raw, out)
}
