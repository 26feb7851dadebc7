// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package enhance

import (
	"github.com/trialzone/trialzone/internal/extractor"
)

// Duration writes enhancements["duration"] = end - start (§4.G). The
// open-ended final trial has no end_time, so duration is left unset
// rather than reported as +Inf.
type Duration struct {
	Name string
}

func NewDuration(name string) *Duration {
	if name == "" {
		name = "duration"
	}
	return &Duration{Name: name}
}

func (d *Duration) Apply(trial *extractor.Trial) error {
	if trial.EndTime == nil {
		return nil
	}
	trial.Enhancements[d.Name] = *trial.EndTime - trial.StartTime
	return nil
}
