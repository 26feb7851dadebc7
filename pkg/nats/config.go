// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nats

// NatsConfig holds the connection parameters for one net.NumericEventReader
// subscription, decoded from that reader's own args bag (see
// internal/config/registry.go's netReaderArgs) rather than a global config
// section — trialzone has no single NATS connection, one per net reader.
type NatsConfig struct {
	Address       string // NATS server address (e.g., "nats://localhost:4222")
	Username      string // Username for authentication (optional)
	Password      string // Password for authentication (optional)
	CredsFilePath string // Path to credentials file (optional)
}
