// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/trialzone/trialzone/internal/delimiter"
	"github.com/trialzone/trialzone/internal/enhance"
	"github.com/trialzone/trialzone/internal/exprlang"
	"github.com/trialzone/trialzone/internal/extractor"
	"github.com/trialzone/trialzone/internal/neutralzone"
	"github.com/trialzone/trialzone/internal/reader"
	"github.com/trialzone/trialzone/internal/syncreg"
	"github.com/trialzone/trialzone/internal/transform"
)

// readerVariety maps a registered reader class to the Neutral Zone
// variety of the single primary buffer it feeds. §4.C's per-reader
// configuration is `{primary_name -> buffer}`; BuildRun names each
// reader's one primary buffer after the reader's own key in the
// descriptor's `readers` mapping and routes the result stored under that
// same key, so the variety is the only thing that needs resolving here.
// The csv readers key their result by the reader's name; the net reader
// keys each line by its line-protocol measurement name, so only lines
// whose measurement equals the reader's key reach its buffer.
var readerVariety = map[string]neutralzone.Variety{
	"csv.NumericEventReader": neutralzone.VarietyNumericEvent,
	"csv.TextEventReader":    neutralzone.VarietyTextEvent,
	"net.NumericEventReader": neutralzone.VarietyNumericEvent,
}

// Run bundles every component BuildRun wires from a Document: the
// Neutral Zone, Reader Router, Sync Registry/Collector, Trial Delimiter,
// Extractor, and Enhancer/Collecter pipeline. The caller (a CLI
// subcommand) still chooses and opens the Sink and any catalog (§6
// "Trial file formats" is a CLI-layer concern, not part of the
// descriptor) and feeds this straight into driver.Config.
type Run struct {
	Zone       *neutralzone.Zone
	Router     *reader.Router
	Delimiter  *delimiter.Delimiter
	Collector  *syncreg.Collector
	Registry   *syncreg.Registry
	Extractor  *extractor.Extractor
	Pipeline   enhance.Pipeline
	Collecters []enhance.Collecter
	Readers    []reader.Reader
}

// Close releases every reader's resources (open files, subscriptions).
func (r *Run) Close() {
	for _, rd := range r.Readers {
		if err := rd.Close(); err != nil {
			cclog.Warnf("[CONFIG]> closing reader %q: %v", rd.Name(), err)
		}
	}
}

// BuildRun resolves every class name in doc against the static registry
// and wires the components a convert/gui run needs. It validates the
// sync-reference constraint (§4.D: "exactly one reader must declare
// is_reference = true" whenever sync is configured at all) before
// opening any reader, per §7 "Config ... fatal, exit before any reader
// opens".
func BuildRun(doc *Document, searchPaths []string) (*Run, error) {
	referenceName, err := resolveReferenceName(doc)
	if err != nil {
		return nil, err
	}

	zone := neutralzone.New()
	router := reader.NewRouter(zone)
	registry := syncreg.New(referenceName)

	var descriptors []*syncreg.Descriptor
	var bufferSpecs []extractor.BufferSpec
	var readers []reader.Reader

	for name, rc := range doc.Readers {
		variety, ok := readerVariety[rc.Class]
		if !ok {
			return nil, fmt.Errorf("%w: reader %q: unknown class %q", ErrConfig, name, rc.Class)
		}

		r, err := BuildReader(name, rc, searchPaths)
		if err != nil {
			return nil, err
		}
		readers = append(readers, r)

		primaries := []reader.PrimaryTarget{{ResultKey: name, Variety: variety, Name: name}}
		bufferSpecs = append(bufferSpecs, extractor.BufferSpec{Variety: variety, Name: name, ReaderName: name})

		derived, err := buildDerivedTargets(name, rc.ExtraBuffers, variety, &bufferSpecs)
		if err != nil {
			return nil, err
		}

		router.AddReader(r, primaries, derived, rc.SimulateDelay)

		d, alias, err := buildSyncWiring(name, rc.Sync)
		if err != nil {
			return nil, err
		}
		if alias != "" {
			registry.AddAlias(name, alias)
		} else if d != nil {
			if !d.IsReference {
				pairing := syncreg.PairingClosestInTime
				if rc.Sync.PairingKey != "" {
					pairing = syncreg.PairingKeyed
				}
				registry.AddFollower(name, pairing)
			}
			descriptors = append(descriptors, d)
		}
	}

	collector := syncreg.NewCollector(zone, registry, descriptors)

	delim := delimiter.New(doc.Trials.StartBuffer, doc.Trials.StartColumn, doc.Trials.StartValue)

	var wrt *extractor.WRTSpec
	if doc.Trials.WRTBuffer != "" {
		wrt = &extractor.WRTSpec{BufferName: doc.Trials.WRTBuffer, Column: doc.Trials.WRTColumn, Value: doc.Trials.WRTValue}
	}

	ex := extractor.New(zone, registry, referenceName, bufferSpecs, wrt)

	pipeline := make(enhance.Pipeline, 0, len(doc.Trials.Enhancers))
	for _, sc := range doc.Trials.Enhancers {
		step, err := BuildEnhancerStep(sc)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, step)
	}

	collecters := make([]enhance.Collecter, 0, len(doc.Trials.Collecters))
	for _, sc := range doc.Trials.Collecters {
		c, err := BuildCollecter(sc)
		if err != nil {
			return nil, err
		}
		collecters = append(collecters, c)
	}

	return &Run{
		Zone:       zone,
		Router:     router,
		Delimiter:  delim,
		Collector:  collector,
		Registry:   registry,
		Extractor:  ex,
		Pipeline:   pipeline,
		Collecters: collecters,
		Readers:    readers,
	}, nil
}

// resolveReferenceName scans every reader's sync descriptor before any
// reader is opened. It is a Config error for more than one reader to
// declare is_reference, or for any reader to need pairing (own descriptor
// or reader_name alias) while no reader declares one.
func resolveReferenceName(doc *Document) (string, error) {
	referenceName := ""
	syncUsed := false
	for name, rc := range doc.Readers {
		if rc.Sync == nil {
			continue
		}
		syncUsed = true
		if rc.Sync.IsReference {
			if referenceName != "" {
				return "", fmt.Errorf("%w: more than one reader declares sync.is_reference", ErrConfig)
			}
			referenceName = name
		}
	}
	if syncUsed && referenceName == "" {
		return "", fmt.Errorf("%w: sync is configured but no reader declares sync.is_reference = true", ErrConfig)
	}
	return referenceName, nil
}

// buildDerivedTargets resolves one reader's `extra_buffers` entries into
// router.DerivedTarget values and appends their extractor.BufferSpec to
// *specs.
func buildDerivedTargets(readerName string, ebcs []ExtraBufferConfig, sourceVariety neutralzone.Variety, specs *[]extractor.BufferSpec) ([]reader.DerivedTarget, error) {
	derived := make([]reader.DerivedTarget, 0, len(ebcs))
	for _, ebc := range ebcs {
		pipeline, err := BuildTransformerPipeline(ebc.Transformers)
		if err != nil {
			return nil, fmt.Errorf("reader %q: extra buffer: %w", readerName, err)
		}
		name := ebc.Name
		if name == "" {
			name = ebc.ReaderResultName
		}
		variety := sourceVariety
		for _, t := range pipeline {
			if _, ok := t.(transform.SparseSignal); ok {
				variety = neutralzone.VarietySignal
			}
		}
		derived = append(derived, reader.DerivedTarget{
			Source:   ebc.ReaderResultName,
			Variety:  variety,
			Name:     name,
			Pipeline: pipeline,
		})
		*specs = append(*specs, extractor.BufferSpec{Variety: variety, Name: name, ReaderName: readerName})
	}
	return derived, nil
}

// buildSyncWiring compiles one reader's sync descriptor (§4.D, §6). It
// returns either a non-empty alias (reader_name inheritance) or a
// Descriptor for the Collector to scan, never both.
func buildSyncWiring(readerName string, sc *SyncConfig) (*syncreg.Descriptor, string, error) {
	if sc == nil {
		return nil, "", nil
	}
	if sc.ReaderName != "" {
		if sc.IsReference || sc.BufferName != "" {
			return nil, "", fmt.Errorf("%w: reader %q: sync.reader_name is mutually exclusive with is_reference/buffer_name", ErrConfig, readerName)
		}
		return nil, sc.ReaderName, nil
	}

	d := &syncreg.Descriptor{ReaderName: readerName, BufferName: sc.BufferName, IsReference: sc.IsReference}
	if sc.Filter != "" {
		p, err := exprlang.CompileBool(sc.Filter)
		if err != nil {
			return nil, "", fmt.Errorf("%w: reader %q: sync filter: %v", ErrConfig, readerName, err)
		}
		d.Predicate = p
	}
	if sc.PairingKey != "" {
		p, err := exprlang.CompileValue(sc.PairingKey)
		if err != nil {
			return nil, "", fmt.Errorf("%w: reader %q: sync pairing_key: %v", ErrConfig, readerName, err)
		}
		d.PairingKey = p
	}
	return d, "", nil
}
