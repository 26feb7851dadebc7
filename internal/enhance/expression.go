// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enhance

import (
	"github.com/trialzone/trialzone/internal/exprlang"
	"github.com/trialzone/trialzone/internal/extractor"
)

// Expression evaluates a configured expression over the trial's timing
// and prior enhancements and stores the result under Name (§4.G
// "Expression").
type Expression struct {
	Name string
	prg  *exprlang.ValueProgram
}

func NewExpression(name, expr string) (*Expression, error) {
	prg, err := exprlang.CompileValue(expr)
	if err != nil {
		return nil, err
	}
	return &Expression{Name: name, prg: prg}, nil
}

func (e *Expression) Apply(trial *extractor.Trial) error {
	v, err := e.prg.Run(trialEnv(trial))
	if err != nil {
		return err
	}
	trial.Enhancements[e.Name] = v
	return nil
}
