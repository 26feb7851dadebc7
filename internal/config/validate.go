// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate compiles schema and checks instance against it, the same
// validate-before-decode step the teacher's internal/config.Init runs
// ahead of json.Decode. Unlike the teacher, a failure here is returned
// to the caller rather than calling cclog.Fatalf -- §7 requires Config
// errors to surface before any reader opens, not to crash the process
// directly from inside the config package.
func Validate(schema string, instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("descriptor.json", schema)
	if err != nil {
		return fmt.Errorf("config: compiling schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("config: decoding instance for validation: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}
	return nil
}
