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

// Package processor classifies parsed WITSML trees and normalizes them into
// canonical records.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/logging"

	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/xmltree"
)

// unknownVersion is reported when no version attribute is found.
const unknownVersion = "unknown"

// Envelope is the result of processing one payload.
type Envelope struct {
	DataType    model.DataType `json:"data_type"`
	Metadata    Metadata       `json:"metadata"`
	Content     Content        `json:"content"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// Metadata summarizes a processed payload.
//
// Type and Version are always set. Other fields are set only when the
// payload carries them.
type Metadata struct {
	Type        model.DataType `json:"type"`
	Version     string         `json:"version"`
	Count       *int           `json:"count,omitempty"`
	WellUID     *string        `json:"wellUid,omitempty"`
	WellboreUID *string        `json:"wellboreUid,omitempty"`
	WellName    *string        `json:"wellName,omitempty"`
	Field       *string        `json:"field,omitempty"`
	LogName     *string        `json:"logName,omitempty"`
	IndexType   *string        `json:"indexType,omitempty"`
}

// Content holds the normalized records of an Envelope.
//
// Exactly one field is set, matching the envelope's DataType. Raw is the
// parsed tree of a payload that could not be classified.
type Content struct {
	Wells     *model.Wells
	Wellbores *model.Wellbores
	Logs      *model.Logs
	MudLogs   *model.MudLogs
	Messages  []*model.Message
	Raw       *xmltree.Map
}

// MarshalJSON renders the content keyed by collection name, or the raw tree
// as is.
func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case c.Raw != nil:
		return json.Marshal(c.Raw)
	case c.Wells != nil:
		return json.Marshal(map[string]any{"wells": c.Wells})
	case c.Wellbores != nil:
		return json.Marshal(map[string]any{"wellbores": c.Wellbores})
	case c.Logs != nil:
		return json.Marshal(map[string]any{"logs": c.Logs})
	case c.MudLogs != nil:
		return json.Marshal(map[string]any{"mudLogs": c.MudLogs})
	case c.Messages != nil:
		return json.Marshal(map[string]any{"messages": c.Messages})
	}
	return []byte("{}"), nil
}

// IntegrityError is returned when a payload violates an invariant of the
// canonical records, e.g. a log row whose width differs from the curve count.
type IntegrityError struct {
	DataType model.DataType
	UID      string
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.DataType, e.UID, e.Reason)
}

// Classify returns the data type of a parsed tree. The first matching
// collection key wins.
func Classify(tree *xmltree.Map) model.DataType {
	switch {
	case tree.Has("messages"):
		return model.DataTypeMessages
	case tree.Has("well"):
		return model.DataTypeWell
	case tree.Has("wellbore"):
		return model.DataTypeWellbore
	case tree.Has("log"):
		return model.DataTypeLog
	case tree.Has("mudLog"):
		return model.DataTypeMudLog
	}
	return model.DataTypeUnknown
}

// ProcessXML parses a raw payload and processes it.
func ProcessXML(ctx context.Context, raw string) (*Envelope, error) {
	return Process(ctx, xmltree.Parse(ctx, raw))
}

// Process classifies a parsed tree and normalizes it.
//
// A degraded tree (see xmltree.Degraded) classifies as unknown and is passed
// through. Records that violate an invariant fail the whole payload with an
// *IntegrityError.
func Process(ctx context.Context, tree *xmltree.Map) (*Envelope, error) {
	dt := Classify(tree)
	env := &Envelope{
		DataType:    dt,
		Metadata:    Metadata{Type: dt, Version: version(tree)},
		ProcessedAt: clock.Now(ctx).UTC(),
	}

	var err error
	switch dt {
	case model.DataTypeMessages:
		env.Content.Messages = messages(tree)
		env.Metadata.addMessages(env.Content.Messages)
	case model.DataTypeWell:
		env.Content.Wells = wells(tree)
		env.Metadata.addWell(env.Content.Wells)
	case model.DataTypeWellbore:
		env.Content.Wellbores = wellbores(tree)
	case model.DataTypeLog:
		if env.Content.Logs, err = logs(tree); err != nil {
			return nil, err
		}
		env.Metadata.addLog(env.Content.Logs)
	case model.DataTypeMudLog:
		if env.Content.MudLogs, err = mudLogs(tree); err != nil {
			return nil, err
		}
	default:
		env.Content.Raw = tree
	}

	logging.Fields{
		"type":    dt,
		"version": env.Metadata.Version,
	}.Debugf(ctx, "Processed WITSML payload")
	return env, nil
}

// version returns the version attribute of the first top-level value that
// has one.
func version(tree *xmltree.Map) string {
	for _, k := range tree.Keys() {
		m, ok := tree.Map(k)
		if !ok {
			continue
		}
		if v, ok := m.Attr("version"); ok {
			return v
		}
	}
	return unknownVersion
}

func (md *Metadata) addMessages(msgs []*model.Message) {
	if len(msgs) == 0 {
		return
	}
	n := len(msgs)
	md.Count = &n
	if uid := msgs[0].WellUID; uid != "" {
		md.WellUID = &uid
	}
	if uid := msgs[0].WellboreUID; uid != "" {
		md.WellboreUID = &uid
	}
}

func (md *Metadata) addWell(ws *model.Wells) {
	if w, ok := ws.First(); ok {
		md.WellName = w.Name
		md.Field = w.Field
	}
}

func (md *Metadata) addLog(ls *model.Logs) {
	if l, ok := ls.First(); ok {
		md.LogName = l.Name
		if l.IndexType != nil {
			it := string(*l.IndexType)
			md.IndexType = &it
		}
	}
}
