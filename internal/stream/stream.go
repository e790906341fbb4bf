// Copyright 2026 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stream replays already fetched log data row by row, emulating a
// live feed.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/archishmannag/well-log-rag/witsml/model"
)

// DefaultInterval is the delay between rows when none is given.
const DefaultInterval = 10 * time.Second

// Event names.
const (
	EventMetadata = "metadata"
	EventSchema   = "schema"
	EventData     = "data"
	EventEnd      = "end"
	EventError    = "error"
)

// Row is one emitted data row.
type Row struct {
	LogUID    string    `json:"log_uid"`
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Values    []string  `json:"values"`
}

// Schema describes the rows that follow.
type Schema struct {
	LogUID string            `json:"log_uid"`
	Curves []model.CurveInfo `json:"curves"`
}

// Metadata opens a stream.
type Metadata struct {
	FileName  string    `json:"file_name,omitempty"`
	WellName  string    `json:"well_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// End closes a stream.
type End struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Rows calls emit for every data row of l, waiting interval between rows.
//
// It stops at the first error of emit, or when ctx is done.
func Rows(ctx context.Context, l *model.Log, interval time.Duration, emit func(*Row) error) error {
	if l.Data == nil {
		return nil
	}
	for i, values := range l.Data.Rows {
		if i > 0 {
			if r := clock.Sleep(ctx, interval); r.Err != nil {
				return r.Err
			}
		}
		row := &Row{
			LogUID:    l.UID,
			Index:     i,
			Timestamp: clock.Now(ctx).UTC(),
			Values:    values,
		}
		if err := emit(row); err != nil {
			return err
		}
	}
	return nil
}

// Writer writes server-sent events.
type Writer struct {
	w     io.Writer
	flush func()
}

// NewWriter returns a Writer over w. flush, if not nil, is called after every
// event.
func NewWriter(w io.Writer, flush func()) *Writer {
	return &Writer{w: w, flush: flush}
}

// Send writes one event with v as its JSON data.
func (w *Writer) Send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if w.flush != nil {
		w.flush()
	}
	return nil
}

// Serve streams l to w as a complete event sequence: metadata, schema, one
// data event per row and end.
//
// Failures after the stream has started are reported as an error event.
func Serve(ctx context.Context, w *Writer, md Metadata, l *model.Log, interval time.Duration) error {
	md.Timestamp = clock.Now(ctx).UTC()
	if err := w.Send(EventMetadata, md); err != nil {
		return err
	}
	if l.Data == nil || len(l.Data.Rows) == 0 {
		return w.Send(EventError, End{Type: EventError, Message: "No log data available for streaming"})
	}
	if err := w.Send(EventSchema, Schema{LogUID: l.UID, Curves: l.Curves}); err != nil {
		return err
	}

	err := Rows(ctx, l, interval, func(r *Row) error {
		return w.Send(EventData, r)
	})
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logging.Infof(ctx, "Client disconnected, stopping stream of %s", l.UID)
		return err
	case err != nil:
		_ = w.Send(EventError, End{Type: EventError, Message: err.Error()})
		return err
	}
	return w.Send(EventEnd, End{Type: EventEnd, Message: "Stream complete"})
}
