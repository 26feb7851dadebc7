// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/trialzone/trialzone/internal/enhance"
	"github.com/trialzone/trialzone/internal/exprlang"
	"github.com/trialzone/trialzone/internal/reader"
	"github.com/trialzone/trialzone/internal/transform"
	tznats "github.com/trialzone/trialzone/pkg/nats"
)

// This is the static, compiled-in registry §9 "Plugin loading by path"
// asks for: a name -> constructor resolution table in place of runtime
// filesystem introspection. Unknown dotted names are a Config error at
// load time, before any reader opens (§7).

// ReaderFactory builds the named reader from its decoded argument bag.
type ReaderFactory func(name string, args json.RawMessage, searchPaths []string) (reader.Reader, error)

// TransformerFactory builds a transformer from its decoded argument bag.
type TransformerFactory func(args json.RawMessage) (transform.Transformer, error)

// EnhancerFactory builds an enhancer from its decoded argument bag.
type EnhancerFactory func(args json.RawMessage) (enhance.Enhancer, error)

// CollecterFactory builds a collecter from its decoded argument bag.
type CollecterFactory func(args json.RawMessage) (enhance.Collecter, error)

var readerFactories = map[string]ReaderFactory{
	"csv.NumericEventReader": buildCSVNumericEventReader,
	"csv.TextEventReader":    buildCSVTextEventReader,
	"net.NumericEventReader": buildNetReader,
}

var transformerFactories = map[string]TransformerFactory{
	"transform.OffsetThenGain": buildOffsetThenGain,
	"transform.SparseSignal":   buildSparseSignal,
	"transform.FilterRange":    buildFilterRange,
}

var enhancerFactories = map[string]EnhancerFactory{
	"enhance.Duration":       buildDuration,
	"enhance.Expression":     buildExpression,
	"enhance.SignalSmoother": buildSignalSmoother,
}

var collecterFactories = map[string]CollecterFactory{
	"enhance.SignalNormalizer": buildSignalNormalizer,
}

// BuildReader resolves rc.Class to a registered factory and constructs
// it. name is the reader's configured key in the descriptor's `readers`
// mapping.
func BuildReader(name string, rc ReaderConfig, searchPaths []string) (reader.Reader, error) {
	factory, ok := readerFactories[rc.Class]
	if !ok {
		return nil, fmt.Errorf("%w: unknown reader class %q", ErrConfig, rc.Class)
	}
	return factory(name, rc.Args, searchPaths)
}

// BuildTransformerPipeline resolves each configured transformer in
// order, per `extra_buffers[].transformers` (§6).
func BuildTransformerPipeline(tcs []TransformerConfig) (transform.Pipeline, error) {
	pipeline := make(transform.Pipeline, 0, len(tcs))
	for _, tc := range tcs {
		factory, ok := transformerFactories[tc.Class]
		if !ok {
			return nil, fmt.Errorf("%w: unknown transformer class %q", ErrConfig, tc.Class)
		}
		t, err := factory(tc.Args)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, t)
	}
	return pipeline, nil
}

// BuildEnhancerStep resolves one `trials.enhancers` entry into a Step,
// compiling its optional `when` predicate (§4.G).
func BuildEnhancerStep(sc StepConfig) (enhance.Step, error) {
	factory, ok := enhancerFactories[sc.Class]
	if !ok {
		return enhance.Step{}, fmt.Errorf("%w: unknown enhancer class %q", ErrConfig, sc.Class)
	}
	run, err := factory(sc.Args)
	if err != nil {
		return enhance.Step{}, err
	}
	var when *exprlang.BoolProgram
	if sc.When != "" {
		when, err = exprlang.CompileBool(sc.When)
		if err != nil {
			return enhance.Step{}, fmt.Errorf("%w: enhancer %q: when: %v", ErrConfig, sc.Class, err)
		}
	}
	return enhance.Step{Name: sc.Class, Run: run, When: when}, nil
}

// BuildCollecter resolves one `trials.collecters` entry (§4.G).
func BuildCollecter(sc StepConfig) (enhance.Collecter, error) {
	factory, ok := collecterFactories[sc.Class]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collecter class %q", ErrConfig, sc.Class)
	}
	return factory(sc.Args)
}

// decodeArgs validates raw against T's JSON shape with
// DisallowUnknownFields, surfacing an unknown key as a Config error
// naming the class (§9 "Dynamic argument forwarding").
func decodeArgs[T any](class string, raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: class %q: args: %v", ErrConfig, class, err)
	}
	return out, nil
}

type csvReaderArgs struct {
	Path      string `json:"path"`
	ChunkSize int    `json:"chunk_size,omitempty"`
}

func buildCSVNumericEventReader(name string, raw json.RawMessage, searchPaths []string) (reader.Reader, error) {
	a, err := decodeArgs[csvReaderArgs]("csv.NumericEventReader", raw)
	if err != nil {
		return nil, err
	}
	path, err := resolvePath(a.Path, searchPaths)
	if err != nil {
		return nil, fmt.Errorf("%w: reader %q: %v", ErrConfig, name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reader %q: %v", ErrConfig, name, err)
	}
	return reader.NewCSVNumericEventReader(name, f, a.ChunkSize), nil
}

func buildCSVTextEventReader(name string, raw json.RawMessage, searchPaths []string) (reader.Reader, error) {
	a, err := decodeArgs[csvReaderArgs]("csv.TextEventReader", raw)
	if err != nil {
		return nil, err
	}
	path, err := resolvePath(a.Path, searchPaths)
	if err != nil {
		return nil, fmt.Errorf("%w: reader %q: %v", ErrConfig, name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reader %q: %v", ErrConfig, name, err)
	}
	return reader.NewCSVTextEventReader(name, f, a.ChunkSize), nil
}

type netReaderArgs struct {
	Address       string `json:"address"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	CredsFilePath string `json:"creds_file_path,omitempty"`
	Subject       string `json:"subject"`
	Queue         int    `json:"queue,omitempty"`
}

func buildNetReader(name string, raw json.RawMessage, _ []string) (reader.Reader, error) {
	a, err := decodeArgs[netReaderArgs]("net.NumericEventReader", raw)
	if err != nil {
		return nil, err
	}
	client, err := tznats.NewClient(&tznats.NatsConfig{
		Address:       a.Address,
		Username:      a.Username,
		Password:      a.Password,
		CredsFilePath: a.CredsFilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reader %q: nats connect: %v", ErrConfig, name, err)
	}
	return reader.NewNetReader(name, client, a.Subject, a.Queue)
}

type offsetThenGainArgs struct {
	Offset  float64 `json:"offset,omitempty"`
	Gain    float64 `json:"gain,omitempty"`
	Columns []int   `json:"columns,omitempty"`
}

func buildOffsetThenGain(raw json.RawMessage) (transform.Transformer, error) {
	a, err := decodeArgs[offsetThenGainArgs]("transform.OffsetThenGain", raw)
	if err != nil {
		return nil, err
	}
	return transform.OffsetThenGain{Offset: a.Offset, Gain: a.Gain, Columns: a.Columns}, nil
}

type sparseSignalArgs struct {
	SampleFrequency float64  `json:"sample_frequency"`
	FillConstant    *float64 `json:"fill_constant,omitempty"`
	Channels        []int    `json:"channels,omitempty"`
}

func buildSparseSignal(raw json.RawMessage) (transform.Transformer, error) {
	a, err := decodeArgs[sparseSignalArgs]("transform.SparseSignal", raw)
	if err != nil {
		return nil, err
	}
	return transform.SparseSignal{SampleFrequency: a.SampleFrequency, FillConstant: a.FillConstant, Channels: a.Channels}, nil
}

type filterRangeArgs struct {
	Column int      `json:"column"`
	Equals *float64 `json:"equals,omitempty"`
	Min    float64  `json:"min,omitempty"`
	Max    float64  `json:"max,omitempty"`
}

func buildFilterRange(raw json.RawMessage) (transform.Transformer, error) {
	a, err := decodeArgs[filterRangeArgs]("transform.FilterRange", raw)
	if err != nil {
		return nil, err
	}
	return transform.FilterRange{Column: a.Column, Equals: a.Equals, Min: a.Min, Max: a.Max}, nil
}

type nameArgs struct {
	Name string `json:"name,omitempty"`
}

func buildDuration(raw json.RawMessage) (enhance.Enhancer, error) {
	a, err := decodeArgs[nameArgs]("enhance.Duration", raw)
	if err != nil {
		return nil, err
	}
	return enhance.NewDuration(a.Name), nil
}

type expressionArgs struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

func buildExpression(raw json.RawMessage) (enhance.Enhancer, error) {
	a, err := decodeArgs[expressionArgs]("enhance.Expression", raw)
	if err != nil {
		return nil, err
	}
	e, err := enhance.NewExpression(a.Name, a.Expr)
	if err != nil {
		return nil, fmt.Errorf("%w: enhance.Expression: %v", ErrConfig, err)
	}
	return e, nil
}

type signalSmootherArgs struct {
	Signal     string `json:"signal"`
	WindowSize int    `json:"window_size"`
}

func buildSignalSmoother(raw json.RawMessage) (enhance.Enhancer, error) {
	a, err := decodeArgs[signalSmootherArgs]("enhance.SignalSmoother", raw)
	if err != nil {
		return nil, err
	}
	return enhance.NewSignalSmoother(a.Signal, a.WindowSize), nil
}

type signalNormalizerArgs struct {
	Signal string `json:"signal"`
	Name   string `json:"name,omitempty"`
}

func buildSignalNormalizer(raw json.RawMessage) (enhance.Collecter, error) {
	a, err := decodeArgs[signalNormalizerArgs]("enhance.SignalNormalizer", raw)
	if err != nil {
		return nil, err
	}
	return enhance.NewSignalNormalizer(a.Signal, a.Name), nil
}
