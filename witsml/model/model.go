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

// Package model defines the canonical WITSML records produced by the
// processor.
//
// Records are values: they are built fresh on every processing run and never
// mutated afterwards. Parent relationships are references by uid only.
package model

import (
	"time"

	"github.com/archishmannag/well-log-rag/witsml/xmltree"
)

// DataType classifies a processed payload.
type DataType string

const (
	DataTypeWell     DataType = "well"
	DataTypeWellbore DataType = "wellbore"
	DataTypeLog      DataType = "log"
	DataTypeMessages DataType = "messages"
	DataTypeMudLog   DataType = "mudLog"
	DataTypeUnknown  DataType = "unknown"
)

// IndexType is the ordering dimension of a log.
type IndexType string

const (
	IndexMeasuredDepth IndexType = "measured depth"
	IndexTime          IndexType = "time"
	IndexDateTime      IndexType = "date time"
	IndexVerticalDepth IndexType = "vertical depth"
	IndexElapsedTime   IndexType = "elapsed time"
	IndexOther         IndexType = "other"
)

// Measure is a value with an optional unit of measure.
//
// The value is kept as text as it appeared in the payload.
type Measure struct {
	Value string `json:"value"`
	UOM   string `json:"uom,omitempty"`
}

// Well is a top-level WITSML well.
type Well struct {
	UID        string  `json:"uid"`
	Name       *string `json:"name,omitempty"`
	Field      *string `json:"field,omitempty"`
	Country    *string `json:"country,omitempty"`
	Operator   *string `json:"operator,omitempty"`
	NumLicense *string `json:"numLicense,omitempty"`
	TimeZone   *string `json:"timeZone,omitempty"`
}

// Wellbore belongs to a well.
type Wellbore struct {
	UID       string  `json:"uid"`
	Name      *string `json:"name,omitempty"`
	WellUID   *string `json:"wellUid,omitempty"`
	Number    *string `json:"number,omitempty"`
	SuffixAPI *string `json:"suffixAPI,omitempty"`
	NumGovt   *string `json:"numGovt,omitempty"`
}

// CurveInfo describes one channel of a log.
type CurveInfo struct {
	Mnemonic    string  `json:"mnemonic"`
	Unit        *string `json:"unit,omitempty"`
	Description *string `json:"description,omitempty"`
	IsIndex     bool    `json:"isIndex,omitempty"`
}

// LogData is the bulk data of a log.
//
// Every row has exactly as many cells as the log has curves, in curve order.
// Cells are text; no numeric coercion is applied.
type LogData struct {
	MnemonicList []string   `json:"mnemonicList,omitempty"`
	UnitList     []string   `json:"unitList,omitempty"`
	Rows         [][]string `json:"rows"`
}

// Log is a set of curves recorded against an index.
type Log struct {
	UID         string      `json:"uid"`
	Name        *string     `json:"name,omitempty"`
	WellUID     *string     `json:"wellUid,omitempty"`
	WellboreUID *string     `json:"wellboreUid,omitempty"`
	IndexType   *IndexType  `json:"indexType,omitempty"`
	IndexCurve  *string     `json:"indexCurve,omitempty"`
	StartIndex  *Measure    `json:"startIndex,omitempty"`
	EndIndex    *Measure    `json:"endIndex,omitempty"`
	Curves      []CurveInfo `json:"curves,omitempty"`
	Data        *LogData    `json:"data,omitempty"`
}

// Message is a WITSML message, optionally scoped to a well or wellbore.
type Message struct {
	UID         string     `json:"uid"`
	WellUID     string     `json:"wellUid,omitempty"`
	WellboreUID string     `json:"wellboreUid,omitempty"`
	Name        *string    `json:"name,omitempty"`
	Source      *string    `json:"source,omitempty"`
	MessageType *string    `json:"messageType,omitempty"`
	Text        *string    `json:"text,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`

	// Extra holds the remaining content of the message.
	Extra *xmltree.Map `json:"extra,omitempty"`
}

// GeologicalInterval is one described interval of a mud log. Top <= Base.
type GeologicalInterval struct {
	Top         *Measure `json:"mdTop,omitempty"`
	Base        *Measure `json:"mdBottom,omitempty"`
	Lithology   *string  `json:"lithology,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// MudLog is a geological description of a wellbore.
type MudLog struct {
	UID         string               `json:"uid"`
	Name        *string              `json:"name,omitempty"`
	WellUID     *string              `json:"wellUid,omitempty"`
	WellboreUID *string              `json:"wellboreUid,omitempty"`
	Intervals   []GeologicalInterval `json:"intervals,omitempty"`
}

// Collections of records, keyed by uid.
type (
	Wells     = Set[*Well]
	Wellbores = Set[*Wellbore]
	Logs      = Set[*Log]
	MudLogs   = Set[*MudLog]
)
