// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package syncreg implements the Sync Registry and Offset Estimator
// (§4.D): per-reader sync-event collection, cross-reader pairing, and the
// lazy per-trial clock-offset computation the Trial Extractor applies
// when snapshotting a follower reader's buffers.
package syncreg

import (
	"math"
	"sort"
	"sync"
)

// Pairing selects how a follower's sync events are paired against the
// reference reader's sync events (§4.D "Pairing", §9 Open Question: the
// strategy is made pluggable per reader rather than hard-coded).
type Pairing int

const (
	// PairingClosestInTime greedily matches the earliest unmatched
	// reference event to the follower event nearest it in time. Default
	// when no pairing key is configured.
	PairingClosestInTime Pairing = iota
	// PairingKeyed joins reference and follower events on equal Key.
	PairingKeyed
)

// Event is one observed sync occurrence: an observation time paired with
// an optional join key (defaults to the event's index when no
// pairing_key expression is configured).
type Event struct {
	T   float64
	Key any
}

// Registry collects sync events for the reference reader and every
// follower, and answers offset queries at extraction time.
type Registry struct {
	mu            sync.RWMutex
	referenceName string
	reference     []Event
	followers     map[string][]Event
	pairing       map[string]Pairing
	aliasOf       map[string]string
}

// New creates a registry for the given reference reader name. Exactly
// one reader in a run declares is_reference = true (§4.D).
func New(referenceName string) *Registry {
	return &Registry{
		referenceName: referenceName,
		followers:     make(map[string][]Event),
		pairing:       make(map[string]Pairing),
		aliasOf:       make(map[string]string),
	}
}

// AddFollower registers a follower reader with its own sync descriptor,
// using the given pairing strategy.
func (r *Registry) AddFollower(name string, p Pairing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followers[name] = nil
	r.pairing[name] = p
}

// AddAlias registers a follower that borrows inheritFrom's sync list
// instead of observing its own buffer (§4.D "reader_name inheritance").
func (r *Registry) AddAlias(name, inheritFrom string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliasOf[name] = inheritFrom
}

// ObserveReference records a reference-reader sync event.
func (r *Registry) ObserveReference(t float64, key any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reference = append(r.reference, Event{T: t, Key: key})
}

// ObserveFollower records a follower-reader sync event.
func (r *Registry) ObserveFollower(name string, t float64, key any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followers[name] = append(r.followers[name], Event{T: t, Key: key})
}

// OffsetAt resolves the follower-to-reference offset for name at query
// time t (§4.D "Offset"): the most recent reference/follower pair with
// reference time <= t gives Δ = t_ref(p) − t_follower(p). Returns 0 if no
// pair exists yet.
func (r *Registry) OffsetAt(name string, t float64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resolved := name
	if alias, ok := r.aliasOf[name]; ok {
		resolved = alias
	}
	follower := r.followers[resolved]
	if len(follower) == 0 || len(r.reference) == 0 {
		return 0
	}

	var pairs []pair
	switch r.pairing[resolved] {
	case PairingKeyed:
		pairs = pairKeyed(r.reference, follower)
	default:
		pairs = pairClosestInTime(r.reference, follower)
	}

	best := -1
	for i, p := range pairs {
		if p.ref.T <= t {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		return 0
	}
	return pairs[best].ref.T - pairs[best].follower.T
}

type pair struct {
	ref      Event
	follower Event
}

// pairClosestInTime sorts both lists and greedily matches the
// earliest-unmatched reference event with the nearest-in-time
// unmatched follower event (§4.D strategy 1).
func pairClosestInTime(reference, follower []Event) []pair {
	ref := append([]Event(nil), reference...)
	foll := append([]Event(nil), follower...)
	sort.Slice(ref, func(i, j int) bool { return ref[i].T < ref[j].T })
	sort.Slice(foll, func(i, j int) bool { return foll[i].T < foll[j].T })

	used := make([]bool, len(foll))
	pairs := make([]pair, 0, len(ref))
	for _, r := range ref {
		bestIdx := -1
		bestDiff := math.Inf(1)
		for j, f := range foll {
			if used[j] {
				continue
			}
			diff := math.Abs(r.T - f.T)
			if diff < bestDiff {
				bestDiff = diff
				bestIdx = j
			}
		}
		if bestIdx < 0 {
			continue
		}
		used[bestIdx] = true
		pairs = append(pairs, pair{ref: r, follower: foll[bestIdx]})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ref.T < pairs[j].ref.T })
	return pairs
}

// pairKeyed joins reference and follower events on equal Key (§4.D
// strategy 2).
func pairKeyed(reference, follower []Event) []pair {
	byKey := make(map[any]Event, len(follower))
	for _, f := range follower {
		byKey[f.Key] = f
	}
	pairs := make([]pair, 0, len(reference))
	for _, r := range reference {
		if f, ok := byKey[r.Key]; ok {
			pairs = append(pairs, pair{ref: r, follower: f})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ref.T < pairs[j].ref.T })
	return pairs
}
