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

package client

import (
	"encoding/xml"
)

// SchemaNS is the namespace of WITSML 1.x data object documents.
const SchemaNS = "http://www.witsml.org/schemas/1series"

// IndexRange restricts the rows of a log data query. It applies only when
// both ends are set.
type IndexRange struct {
	Start string
	End   string
}

func (r IndexRange) complete() bool {
	return r.Start != "" && r.End != ""
}

// query is a WITSML query template: a plural root with one object selector.
type query struct {
	XMLName xml.Name
	Version string `xml:"version,attr"`
	Objects []queryObject
}

type queryObject struct {
	XMLName     xml.Name
	UIDWell     string      `xml:"uidWell,attr,omitempty"`
	UIDWellbore string      `xml:"uidWellbore,attr,omitempty"`
	UID         string      `xml:"uid,attr,omitempty"`
	IndexRange  *indexRange `xml:"indexRange,omitempty"`
}

type indexRange struct {
	StartIndex string `xml:"startIndex"`
	EndIndex   string `xml:"endIndex"`
}

// newQuery returns a query for objects of type objectType, e.g. "well".
func newQuery(version, objectType string, obj queryObject) *query {
	obj.XMLName = xml.Name{Local: objectType}
	return &query{
		XMLName: xml.Name{Space: SchemaNS, Local: objectType + "s"},
		Version: version,
		Objects: []queryObject{obj},
	}
}

func (q *query) withRange(r IndexRange) *query {
	if r.complete() {
		q.Objects[0].IndexRange = &indexRange{StartIndex: r.Start, EndIndex: r.End}
	}
	return q
}

func (q *query) String() string {
	b, err := xml.Marshal(q)
	if err != nil {
		// Only strings and fixed names are marshaled.
		panic(err)
	}
	return xml.Header + string(b)
}
