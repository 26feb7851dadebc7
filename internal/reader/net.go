// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of trialzone.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reader

import (
	"context"
	"fmt"
	"time"

	influx "github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/trialzone/trialzone/internal/neutralzone"
	tznats "github.com/trialzone/trialzone/pkg/nats"
)

// NetReader is the live network source: it subscribes to a NATS subject
// carrying InfluxDB line-protocol encoded events (the same wire shape the
// teacher's metric ingestion decodes) and turns each line's "value" field
// into a numeric event row, or its "text" field into a text event row, on
// the measurement-named buffer. One reader instance drives exactly one
// subject; configure one reader per source stream.
type NetReader struct {
	name    string
	client  *tznats.Client
	subject string
	msgs    chan []byte
	sub     bool
}

// NewNetReader subscribes to subject on client and buffers up to queue
// messages; a message that arrives while the queue is full is dropped.
func NewNetReader(name string, client *tznats.Client, subject string, queue int) (*NetReader, error) {
	if queue <= 0 {
		queue = 64
	}
	r := &NetReader{name: name, client: client, subject: subject, msgs: make(chan []byte, queue)}
	if err := client.Subscribe(subject, func(_ string, data []byte) {
		buf := append([]byte(nil), data...)
		select {
		case r.msgs <- buf:
		default:
			// queue full: drop rather than block the NATS dispatch goroutine
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: net reader %q: subscribe: %v", ErrPermanent, name, err)
	}
	r.sub = true
	return r, nil
}

func (r *NetReader) Name() string { return r.name }

func (r *NetReader) ReadNext(ctx context.Context) (ReadResult, error) {
	var raw []byte
	select {
	case raw, r.sub = <-r.msgs:
		if !r.sub {
			return nil, ErrEndOfStream
		}
	case <-ctx.Done():
		return nil, ErrEndOfStream
	}

	result, err := decodeLineProtocol(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: net reader %q: decode: %v", ErrRetryable, r.name, err)
	}
	return result, nil
}

func (r *NetReader) Close() error {
	close(r.msgs)
	r.client.Close()
	return nil
}

// decodeLineProtocol decodes a batch of line-protocol lines into a
// ReadResult keyed by measurement name, one numeric row (from a "value"
// field) or text row (from a "text" field) per line.
func decodeLineProtocol(raw []byte) (ReadResult, error) {
	dec := influx.NewDecoderWithBytes(raw)
	result := make(ReadResult)

	for dec.Next() {
		measurement, err := dec.Measurement()
		if err != nil {
			return nil, err
		}
		name := string(measurement)

		for {
			key, _, err := dec.NextTag()
			if err != nil {
				return nil, err
			}
			if key == nil {
				break
			}
		}

		var numVal float64
		var textVal string
		haveNum, haveText := false, false
		for {
			key, val, err := dec.NextField()
			if err != nil {
				return nil, err
			}
			if key == nil {
				break
			}
			switch string(key) {
			case "value":
				if f, ok := val.Interface().(float64); ok {
					numVal = f
					haveNum = true
				}
			case "text":
				if s, ok := val.Interface().(string); ok {
					textVal = s
					haveText = true
				}
			}
		}

		ts, err := dec.Time(influx.Nanosecond, time.Time{})
		if err != nil {
			return nil, err
		}
		t := float64(ts.UnixNano()) / 1e9

		slice := result[name]
		if haveNum {
			slice.Numeric = append(slice.Numeric, neutralzone.NumericRow{T: t, Values: []float64{numVal}})
		}
		if haveText {
			slice.Text = append(slice.Text, neutralzone.TextRow{T: t, Text: textVal})
		}
		result[name] = slice
	}
	return result, nil
}

var _ Reader = (*NetReader)(nil)
