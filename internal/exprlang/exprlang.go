// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package exprlang provides the restricted expression mini-language used
// by enhancer "when" predicates, sync descriptor predicate/pairing_key
// functions, and the Expression enhancer. The Trial Delimiter's start
// value and the extractor's WRT value are matched by plain float equality
// and do not use this package. The grammar is fixed and the evaluator is
// total: field access, literals, comparison, boolean combinators,
// indexing, arithmetic, and the Series accessors First and Last. Compilation
// happens once at config load time; evaluation has no side effects.
package exprlang

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// BoolProgram is a compiled expression that evaluates to a boolean.
type BoolProgram struct {
	src string
	prg *vm.Program
}

// CompileBool compiles src as a boolean-valued expression. Call at config
// load time; a compile error is a Config error.
func CompileBool(src string) (*BoolProgram, error) {
	prg, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("exprlang: compile %q: %w", src, err)
	}
	return &BoolProgram{src: src, prg: prg}, nil
}

// Run evaluates the program against env, which must hold only the fixed
// set of accessors documented for the calling component.
func (p *BoolProgram) Run(env map[string]any) (bool, error) {
	out, err := expr.Run(p.prg, env)
	if err != nil {
		return false, fmt.Errorf("exprlang: eval %q: %w", p.src, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("exprlang: expression %q did not evaluate to bool", p.src)
	}
	return b, nil
}

// ValueProgram is a compiled expression that evaluates to an arbitrary
// value, used for pairing_key and the Expression enhancer.
type ValueProgram struct {
	src string
	prg *vm.Program
}

// CompileValue compiles src without constraining its result type.
func CompileValue(src string) (*ValueProgram, error) {
	prg, err := expr.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("exprlang: compile %q: %w", src, err)
	}
	return &ValueProgram{src: src, prg: prg}, nil
}

func (p *ValueProgram) Run(env map[string]any) (any, error) {
	out, err := expr.Run(p.prg, env)
	if err != nil {
		return nil, fmt.Errorf("exprlang: eval %q: %w", p.src, err)
	}
	return out, nil
}
