// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the declarative descriptor (§6 "External
// interfaces"): the hierarchical experiment/readers/trials/plotters
// document that drives a convert, gui or graph run, plus the static
// component registry that turns its dotted class names into live
// readers, transformers, enhancers and collecters.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/joho/godotenv"
)

// ReaderConfig is one entry of the descriptor's `readers` mapping (§6).
type ReaderConfig struct {
	Class         string             `json:"class"`
	PackagePath   string             `json:"package_path,omitempty"`
	Args          json.RawMessage    `json:"args,omitempty"`
	ExtraBuffers  []ExtraBufferConfig `json:"extra_buffers,omitempty"`
	Sync          *SyncConfig        `json:"sync,omitempty"`
	SimulateDelay float64            `json:"simulate_delay,omitempty"`
}

// ExtraBufferConfig describes one derived buffer fed from a primary
// reader result through an ordered transformer pipeline (§6).
type ExtraBufferConfig struct {
	ReaderResultName string               `json:"reader_result_name"`
	Name             string               `json:"name,omitempty"`
	Transformers     []TransformerConfig  `json:"transformers"`
}

// TransformerConfig names one registered transformer and its argument
// bag.
type TransformerConfig struct {
	Class string          `json:"class"`
	Args  json.RawMessage `json:"args,omitempty"`
}

// SyncConfig is one reader's sync descriptor (§4.D, §6). IsReference and
// ReaderName are mutually exclusive: a reader either observes its own
// sync buffer (optionally as the reference) or inherits another
// reader's sync list.
type SyncConfig struct {
	IsReference bool   `json:"is_reference,omitempty"`
	BufferName  string `json:"buffer_name,omitempty"`
	Filter      string `json:"filter,omitempty"`
	PairingKey  string `json:"pairing_key,omitempty"`
	ReaderName  string `json:"reader_name,omitempty"`
}

// StepConfig names one registered enhancer or collecter and its
// argument bag; When is only meaningful for enhancers (§4.G).
type StepConfig struct {
	Class string          `json:"class"`
	Args  json.RawMessage `json:"args,omitempty"`
	When  string          `json:"when,omitempty"`
}

// TrialsConfig is the descriptor's `trials` section (§6).
type TrialsConfig struct {
	StartBuffer string       `json:"start_buffer"`
	StartColumn int          `json:"start_column,omitempty"`
	StartValue  float64      `json:"start_value"`
	WRTBuffer   string       `json:"wrt_buffer,omitempty"`
	WRTColumn   int          `json:"wrt_column,omitempty"`
	WRTValue    float64      `json:"wrt_value,omitempty"`
	Enhancers   []StepConfig `json:"enhancers,omitempty"`
	Collecters  []StepConfig `json:"collecters,omitempty"`
}

// PlotterConfig is one entry of the descriptor's optional `plotters`
// list (§6).
type PlotterConfig struct {
	Class       string          `json:"class"`
	PackagePath string          `json:"package_path,omitempty"`
	Args        json.RawMessage `json:"args,omitempty"`
}

// Document is the fully decoded declarative descriptor.
type Document struct {
	Experiment map[string]any          `json:"experiment,omitempty"`
	Readers    map[string]ReaderConfig `json:"readers"`
	Trials     TrialsConfig            `json:"trials"`
	Plotters   []PlotterConfig         `json:"plotters,omitempty"`
}

// Load reads and validates the descriptor at experimentPath, merges an
// optional subject metadata file, applies `--readers k=v` overrides, and
// overlays any `.env` files found in searchPaths into the process
// environment first (NATS credentials, AWS keys), the way a deployment
// overlays environment-specific secrets onto a checked-in config.json.
// searchPaths and subjectPath/overrides may be empty/nil.
func Load(experimentPath, subjectPath string, searchPaths []string, overrides map[string]string) (*Document, error) {
	overlayDotEnv(searchPaths)

	path, err := resolvePath(experimentPath, searchPaths)
	if err != nil {
		return nil, fmt.Errorf("%w: experiment file: %v", ErrConfig, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	if err := Validate(descriptorSchema, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrConfig, path, err)
	}

	if len(doc.Readers) < 1 {
		return nil, fmt.Errorf("%w: at least one reader required in experiment descriptor", ErrConfig)
	}

	if subjectPath != "" {
		if err := mergeSubject(&doc, subjectPath, searchPaths); err != nil {
			return nil, err
		}
	}

	if err := applyOverrides(&doc, overrides); err != nil {
		return nil, err
	}

	return &doc, nil
}

// overlayDotEnv loads a `.env` file from each search path, in order,
// ignoring a missing file; an existing process environment variable is
// never clobbered (godotenv.Load's own rule).
func overlayDotEnv(searchPaths []string) {
	for _, dir := range searchPaths {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			cclog.Warnf("[CONFIG]> .env overlay %s: %v", path, err)
		}
	}
}

// resolvePath returns name unchanged if it exists as given, otherwise
// tries it joined under each search path in order.
func resolvePath(name string, searchPaths []string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	for _, dir := range searchPaths {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("not found: %s (search paths: %v)", name, searchPaths)
}

// mergeSubject reads subjectPath as a flat JSON object and merges its
// keys into doc.Experiment, the subject's value winning on conflict --
// the same read-validate-merge shape the teacher uses to merge
// UiDefaults over its compiled-in defaults.
func mergeSubject(doc *Document, subjectPath string, searchPaths []string) error {
	path, err := resolvePath(subjectPath, searchPaths)
	if err != nil {
		return fmt.Errorf("%w: subject file: %v", ErrConfig, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}
	var subject map[string]any
	if err := json.Unmarshal(raw, &subject); err != nil {
		return fmt.Errorf("%w: decoding subject %s: %v", ErrConfig, path, err)
	}
	if doc.Experiment == nil {
		doc.Experiment = make(map[string]any, len(subject))
	}
	for k, v := range subject {
		doc.Experiment[k] = v
	}
	return nil
}

// applyOverrides rewrites reader argument bags from `--readers
// reader_name.arg_name=value` flags (§6). A reader not present in the
// descriptor is a Config error here; an argument name the reader's class
// does not accept is set here and rejected later, when the registry
// decodes the argument bag with its unknown-key rejection.
func applyOverrides(doc *Document, overrides map[string]string) error {
	for dotted, value := range overrides {
		readerName, argName, err := splitOverrideKey(dotted)
		if err != nil {
			return err
		}
		rc, ok := doc.Readers[readerName]
		if !ok {
			return fmt.Errorf("%w: --readers override for unknown reader %q", ErrConfig, readerName)
		}
		args := map[string]any{}
		if len(rc.Args) > 0 {
			if err := json.Unmarshal(rc.Args, &args); err != nil {
				return fmt.Errorf("%w: reader %q: args are not an object, cannot apply override: %v", ErrConfig, readerName, err)
			}
		}
		args[argName] = coerceOverrideValue(value)
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("%w: reader %q: re-encoding overridden args: %v", ErrConfig, readerName, err)
		}
		rc.Args = raw
		doc.Readers[readerName] = rc
	}
	return nil
}

func splitOverrideKey(dotted string) (reader, arg string, err error) {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i], dotted[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("%w: --readers override %q must be reader_name.arg_name=value", ErrConfig, dotted)
}

// coerceOverrideValue parses a CLI override string as a bool or float64
// when it unambiguously looks like one, otherwise keeps it as a string;
// this mirrors how a shell-supplied flag value regains its JSON type
// when folded back into an args bag decoded with DisallowUnknownFields.
func coerceOverrideValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
