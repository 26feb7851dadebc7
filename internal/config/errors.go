// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import "errors"

// ErrConfig marks a malformed descriptor, unknown component class, or
// missing/unknown argument key (§7 "Config"). The driver never opens a
// reader once this error has been returned from Load or the registry.
var ErrConfig = errors.New("config: invalid configuration")
