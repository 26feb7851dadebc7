// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package syncreg

import (
	"fmt"
	"math"

	"github.com/trialzone/trialzone/internal/exprlang"
	"github.com/trialzone/trialzone/internal/neutralzone"
)

// Descriptor is one reader's sync configuration (§4.D "Sync descriptor").
// A nil Predicate matches every row; a nil PairingKey defaults the join
// key to the match's sequence number (0, 1, 2, ...) among this
// descriptor's matches.
type Descriptor struct {
	ReaderName  string
	BufferName  string
	IsReference bool
	Predicate   *exprlang.BoolProgram
	PairingKey  *exprlang.ValueProgram

	cursor   neutralzone.NumericCursor
	matchSeq int
}

// Collector drives the scan step described in §4.D "Collection": after
// each router append cycle, it walks newly appended rows of each
// descriptor's designated buffer and records matches into the Registry.
type Collector struct {
	zone        *neutralzone.Zone
	registry    *Registry
	descriptors []*Descriptor
}

func NewCollector(zone *neutralzone.Zone, registry *Registry, descriptors []*Descriptor) *Collector {
	return &Collector{zone: zone, registry: registry, descriptors: descriptors}
}

// Scan re-reads each descriptor's designated buffer and observes any rows
// appended since the previous call.
func (c *Collector) Scan() error {
	for _, d := range c.descriptors {
		buf, ok := c.zone.Numeric(d.BufferName)
		if !ok {
			continue
		}
		all := buf.Query(neutralzone.NegInf, math.Inf(1))
		for _, row := range d.cursor.Take(all) {
			keep := true
			if d.Predicate != nil {
				var err error
				keep, err = d.Predicate.Run(exprlang.RowEnv(row.Values))
				if err != nil {
					return fmt.Errorf("syncreg: predicate for reader %q: %w", d.ReaderName, err)
				}
			}
			if !keep {
				continue
			}
			// default key is a per-descriptor monotonic match counter, not
			// the row's position in the buffer: that position is unstable
			// once the extractor's GC discards consumed rows (§4.F step 7).
			var key any = d.matchSeq
			if d.PairingKey != nil {
				v, err := d.PairingKey.Run(exprlang.RowEnv(row.Values))
				if err != nil {
					return fmt.Errorf("syncreg: pairing_key for reader %q: %w", d.ReaderName, err)
				}
				key = v
			}
			d.matchSeq++
			if d.IsReference {
				c.registry.ObserveReference(row.T, key)
			} else {
				c.registry.ObserveFollower(d.ReaderName, row.T, key)
			}
		}
	}
	return nil
}
