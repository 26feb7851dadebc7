// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/trialzone/trialzone/internal/config"
)

// runGraph loads and validates an experiment descriptor the same way a
// convert/gui run does (§6), then emits a Graphviz DOT description of
// its reader -> buffer -> transformer -> sink dependency graph to
// opts.GraphFile, without starting any reader, the Delimiter, or the
// Extractor -- a graph run is a static config inspection tool only.
func runGraph(opts *Options) error {
	doc, err := config.Load(opts.ExperimentFile, opts.SubjectFile, opts.SearchPaths, opts.ReaderArgs)
	if err != nil {
		return err
	}

	dot := renderGraph(doc)

	if err := os.WriteFile(opts.GraphFile, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("trialzone: writing graph file: %w", err)
	}
	cclog.Infof("[MAIN]> wrote dependency graph to %s", opts.GraphFile)
	return nil
}

// renderGraph builds the DOT source. Reader names are sorted for
// deterministic output across runs against the same descriptor.
func renderGraph(doc *config.Document) string {
	var b strings.Builder
	b.WriteString("digraph trialzone {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	names := make([]string, 0, len(doc.Readers))
	for name := range doc.Readers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rc := doc.Readers[name]
		readerNode := fmt.Sprintf("reader_%s", name)
		bufferNode := fmt.Sprintf("buffer_%s", name)

		fmt.Fprintf(&b, "  %q [label=%q, shape=ellipse];\n", readerNode, fmt.Sprintf("%s\\n(%s)", name, rc.Class))
		fmt.Fprintf(&b, "  %q [label=%q];\n", bufferNode, name)
		fmt.Fprintf(&b, "  %q -> %q;\n", readerNode, bufferNode)

		if rc.Sync != nil {
			if rc.Sync.ReaderName != "" {
				fmt.Fprintf(&b, "  %q -> %q [style=dashed, label=\"sync alias\"];\n", bufferNode, fmt.Sprintf("buffer_%s", rc.Sync.ReaderName))
			} else if rc.Sync.IsReference {
				fmt.Fprintf(&b, "  %q [style=bold];\n", bufferNode)
			}
		}

		for i, ebc := range rc.ExtraBuffers {
			derivedName := ebc.Name
			if derivedName == "" {
				derivedName = ebc.ReaderResultName
			}
			derivedNode := fmt.Sprintf("buffer_%s_%s_%d", name, derivedName, i)
			fmt.Fprintf(&b, "  %q [label=%q];\n", derivedNode, derivedName)

			last := readerNode
			for j, tc := range ebc.Transformers {
				tNode := fmt.Sprintf("transform_%s_%d_%d", name, i, j)
				fmt.Fprintf(&b, "  %q [label=%q, shape=diamond];\n", tNode, tc.Class)
				fmt.Fprintf(&b, "  %q -> %q;\n", last, tNode)
				last = tNode
			}
			fmt.Fprintf(&b, "  %q -> %q;\n", last, derivedNode)
		}
	}

	b.WriteString("  \"delimiter\" [shape=ellipse, label=\"trial delimiter\"];\n")
	fmt.Fprintf(&b, "  %q -> \"delimiter\";\n", fmt.Sprintf("buffer_%s", doc.Trials.StartBuffer))

	for i, sc := range doc.Trials.Enhancers {
		node := fmt.Sprintf("enhancer_%d", i)
		fmt.Fprintf(&b, "  %q [label=%q, shape=component];\n", node, sc.Class)
		if i == 0 {
			b.WriteString("  \"delimiter\" -> \"extractor\";\n")
			b.WriteString("  \"extractor\" -> " + fmt.Sprintf("%q", node) + ";\n")
		} else {
			fmt.Fprintf(&b, "  %q -> %q;\n", fmt.Sprintf("enhancer_%d", i-1), node)
		}
	}
	if len(doc.Trials.Enhancers) == 0 {
		b.WriteString("  \"delimiter\" -> \"extractor\";\n")
	}

	last := "extractor"
	if len(doc.Trials.Enhancers) > 0 {
		last = fmt.Sprintf("enhancer_%d", len(doc.Trials.Enhancers)-1)
	}
	for i, sc := range doc.Trials.Collecters {
		node := fmt.Sprintf("collecter_%d", i)
		fmt.Fprintf(&b, "  %q [label=%q, shape=component, style=dashed];\n", node, sc.Class)
		fmt.Fprintf(&b, "  %q -> %q;\n", last, node)
		last = node
	}

	b.WriteString("  \"sink\" [shape=cylinder];\n")
	fmt.Fprintf(&b, "  %q -> \"sink\";\n", last)

	b.WriteString("}\n")
	return b.String()
}
