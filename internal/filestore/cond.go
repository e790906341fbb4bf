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

package filestore

import (
	"fmt"
	"strings"
	"time"

	"go.chromium.org/luci/common/errors"
)

// MetadataPrefix selects a metadata key in a condition field, as in
// "metadata.version".
const MetadataPrefix = "metadata."

// columns are the record fields conditions may refer to.
var columns = map[string]bool{
	"well_name":  true,
	"file_type":  true,
	"size":       true,
	"created_at": true,
	"updated_at": true,
}

// Cond restricts the records returned by Query.
type Cond struct {
	field string
	op    string
	vals  []any
}

// Eq matches records whose field equals v.
func Eq(field string, v any) Cond { return Cond{field, "=", []any{v}} }

// In matches records whose field is one of vs. An empty In matches nothing.
func In(field string, vs ...any) Cond { return Cond{field, "IN", vs} }

// Gte matches records whose field is at least v.
func Gte(field string, v any) Cond { return Cond{field, ">=", []any{v}} }

// Lte matches records whose field is at most v.
func Lte(field string, v any) Cond { return Cond{field, "<=", []any{v}} }

func (c Cond) String() string {
	return fmt.Sprintf("%s %s %v", c.field, c.op, c.vals)
}

// where renders the condition as an SQL expression and its arguments.
func (c Cond) where() (string, []any, error) {
	var lhs string
	var args []any
	switch key, ok := strings.CutPrefix(c.field, MetadataPrefix); {
	case ok:
		if key == "" || strings.ContainsAny(key, `"\`) {
			return "", nil, errors.Fmt("bad metadata key %q", key)
		}
		if c.op != "=" && c.op != "IN" {
			return "", nil, errors.Fmt("metadata key %q supports only equality", key)
		}
		lhs = "json_extract(metadata, ?)"
		args = append(args, `$."`+key+`"`)
	case columns[c.field]:
		lhs = c.field
	default:
		return "", nil, errors.Fmt("unknown field %q", c.field)
	}

	if c.op == "IN" {
		if len(c.vals) == 0 {
			return "0", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(c.vals)), ", ")
		for _, v := range c.vals {
			args = append(args, value(v))
		}
		return fmt.Sprintf("%s IN (%s)", lhs, marks), args, nil
	}
	return fmt.Sprintf("%s %s ?", lhs, c.op), append(args, value(c.vals[0])), nil
}

// value converts a Go value to its stored form.
func value(v any) any {
	if t, ok := v.(time.Time); ok {
		return formatTime(t)
	}
	return v
}

// timeLayout has a fixed width so that stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
