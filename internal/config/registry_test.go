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

	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/transform"
)

func TestBuildReader_UnknownClassIsConfigError(t *testing.T) {
	_, err := BuildReader("r", ReaderConfig{Class: "bogus.Reader"}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfig))
}

func TestBuildReader_CSVNumericEventReaderOpensFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,1\n"), 0o644))

	args, err := json.Marshal(map[string]any{"path": "d.csv"})
	require.NoError(t, err)

	r, err := BuildReader("demo", ReaderConfig{Class: "csv.NumericEventReader", Args: args}, []string{dir})
	require.NoError(t, err)
	require.Equal(t, "demo", r.Name())
	require.NoError(t, r.Close())
}

func TestBuildTransformerPipeline_UnknownKeyIsConfigError(t *testing.T) {
	args, err := json.Marshal(map[string]any{"offset": 1.0, "bogus_key": true})
	require.NoError(t, err)

	_, err = BuildTransformerPipeline([]TransformerConfig{{Class: "transform.OffsetThenGain", Args: args}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfig))
}

func TestBuildTransformerPipeline_OffsetThenGain(t *testing.T) {
	args, err := json.Marshal(map[string]any{"offset": 10.0, "gain": -2.0})
	require.NoError(t, err)

	pipeline, err := BuildTransformerPipeline([]TransformerConfig{{Class: "transform.OffsetThenGain", Args: args}})
	require.NoError(t, err)
	require.Len(t, pipeline, 1)

	out, err := pipeline.Apply(transform.Slice{Numeric: []neutralzone.NumericRow{{T: 0.1, Values: []float64{1}}}})
	require.NoError(t, err)
	require.Equal(t, -22.0, out.Numeric[0].Values[0])
}

func TestBuildEnhancerStep_CompilesWhenPredicate(t *testing.T) {
	args, err := json.Marshal(map[string]any{"name": "duration"})
	require.NoError(t, err)

	step, err := BuildEnhancerStep(StepConfig{Class: "enhance.Duration", Args: args, When: "start_time > 0"})
	require.NoError(t, err)
	require.NotNil(t, step.When)
	require.Equal(t, "enhance.Duration", step.Name)
}

func TestBuildEnhancerStep_UnknownClassIsConfigError(t *testing.T) {
	_, err := BuildEnhancerStep(StepConfig{Class: "enhance.Bogus"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConfig))
}

func TestBuildCollecter_SignalNormalizer(t *testing.T) {
	args, err := json.Marshal(map[string]any{"signal": "sig"})
	require.NoError(t, err)

	c, err := BuildCollecter(StepConfig{Class: "enhance.SignalNormalizer", Args: args})
	require.NoError(t, err)
	require.NotNil(t, c)
}
