// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// Catalog is a sqlite index of emitted trials, one row per trial index;
// Upsert overwrites a trial's row when a collecter rewrite re-writes it.
// The driver writes to it after each sink write. Nothing reads it back
// during a run, so a repeated convert run does not skip trials already
// recorded here.
type Catalog struct {
	db *sqlx.DB
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS trials (
	trial_index  INTEGER PRIMARY KEY,
	start_time   REAL,
	end_time     REAL,
	sink_offset  INTEGER NOT NULL,
	content_hash TEXT NOT NULL
);`

// OpenCatalog opens (or creates) the sqlite database at path. sqlite
// serializes writes internally, so, per the same reasoning cc-backend's
// own sqlite connection uses, the pool is capped to one connection.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: create schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Record is one catalog row.
type Record struct {
	TrialIndex  int     `db:"trial_index"`
	StartTime   float64 `db:"start_time"`
	EndTime     *float64 `db:"end_time"`
	SinkOffset  int64   `db:"sink_offset"`
	ContentHash string  `db:"content_hash"`
}

// Upsert records (or overwrites, for a collecter-driven rewrite) the
// catalog entry for one trial.
func (c *Catalog) Upsert(r Record) error {
	_, err := c.db.NamedExec(`
		INSERT INTO trials (trial_index, start_time, end_time, sink_offset, content_hash)
		VALUES (:trial_index, :start_time, :end_time, :sink_offset, :content_hash)
		ON CONFLICT(trial_index) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			sink_offset = excluded.sink_offset,
			content_hash = excluded.content_hash
	`, r)
	if err != nil {
		return fmt.Errorf("catalog: upsert trial %d: %w", r.TrialIndex, err)
	}
	return nil
}

// Last returns the highest recorded trial_index, or -1 if the catalog is
// empty.
func (c *Catalog) Last() (int, error) {
	var idx *int
	if err := c.db.Get(&idx, `SELECT MAX(trial_index) FROM trials`); err != nil {
		return -1, fmt.Errorf("catalog: query last trial: %w", err)
	}
	if idx == nil {
		return -1, nil
	}
	cclog.Debugf("[SINK]> catalog resumes after trial %d", *idx)
	return *idx, nil
}

// All returns every recorded trial, ordered by index.
func (c *Catalog) All() ([]Record, error) {
	var out []Record
	if err := c.db.Select(&out, `SELECT trial_index, start_time, end_time, sink_offset, content_hash FROM trials ORDER BY trial_index`); err != nil {
		return nil, fmt.Errorf("catalog: list trials: %w", err)
	}
	return out, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Optimize runs sqlite's own periodic maintenance pragma. It is cheap and
// safe to run on a live connection, intended to be called occasionally
// from a long gui run rather than after every Upsert.
func (c *Catalog) Optimize() error {
	if _, err := c.db.Exec(`PRAGMA optimize`); err != nil {
		return fmt.Errorf("catalog: optimize: %w", err)
	}
	return nil
}
