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

package processor

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/xmltree"
)

func wells(tree *xmltree.Map) *model.Wells {
	out := &model.Wells{}
	for uid, m := range members(tree, "well") {
		out.Put(uid, &model.Well{
			UID:        uid,
			Name:       text(m, "name"),
			Field:      text(m, "field"),
			Country:    text(m, "country"),
			Operator:   text(m, "operator"),
			NumLicense: text(m, "numLicense"),
			TimeZone:   text(m, "timeZone"),
		})
	}
	return out
}

func wellbores(tree *xmltree.Map) *model.Wellbores {
	out := &model.Wellbores{}
	for uid, m := range members(tree, "wellbore") {
		out.Put(uid, &model.Wellbore{
			UID:       uid,
			Name:      text(m, "name"),
			WellUID:   parent(m, "uidWell", "wellUid"),
			Number:    text(m, "number"),
			SuffixAPI: text(m, "suffixAPI"),
			NumGovt:   text(m, "numGovt"),
		})
	}
	return out
}

func logs(tree *xmltree.Map) (*model.Logs, error) {
	out := &model.Logs{}
	for uid, m := range members(tree, "log") {
		l := &model.Log{
			UID:         uid,
			Name:        text(m, "name"),
			WellUID:     parent(m, "uidWell", "wellUid"),
			WellboreUID: parent(m, "uidWellbore", "wellboreUid"),
			IndexCurve:  text(m, "indexCurve"),
			StartIndex:  firstMeasure(m, "startIndex", "startDateTimeIndex"),
			EndIndex:    firstMeasure(m, "endIndex", "endDateTimeIndex"),
			Data:        logData(m),
		}
		if it := text(m, "indexType"); it != nil {
			t := model.IndexType(*it)
			l.IndexType = &t
		}
		l.Curves = curves(m, l.IndexCurve, l.Data)

		if n := len(l.Curves); n > 0 && l.Data != nil {
			for i, row := range l.Data.Rows {
				if len(row) != n {
					return nil, &IntegrityError{
						DataType: model.DataTypeLog,
						UID:      uid,
						Reason:   fmt.Sprintf("data row %d has %d values, log has %d curves", i, len(row), n),
					}
				}
			}
		}
		out.Put(uid, l)
	}
	return out, nil
}

// curves reads logCurveInfo, which may occur once or many times. A log
// without it takes its curves from the data's mnemonic and unit lists.
func curves(m *xmltree.Map, indexCurve *string, data *model.LogData) []model.CurveInfo {
	var out []model.CurveInfo
	for _, n := range xmltree.Items(get(m, "logCurveInfo")) {
		c, ok := n.(*xmltree.Map)
		if !ok {
			continue
		}
		ci := model.CurveInfo{
			Mnemonic:    deref(text(c, "mnemonic")),
			Unit:        text(c, "unit"),
			Description: text(c, "curveDescription"),
		}
		ci.IsIndex = indexCurve != nil && *indexCurve == ci.Mnemonic
		out = append(out, ci)
	}
	if len(out) > 0 || data == nil {
		return out
	}

	for i, mn := range data.MnemonicList {
		ci := model.CurveInfo{
			Mnemonic: mn,
			IsIndex:  indexCurve != nil && *indexCurve == mn,
		}
		if i < len(data.UnitList) && data.UnitList[i] != "" {
			u := data.UnitList[i]
			ci.Unit = &u
		}
		out = append(out, ci)
	}
	return out
}

// logData reads the first logData block. Only rows encoded as comma
// separated text are kept; cells are not coerced.
func logData(m *xmltree.Map) *model.LogData {
	items := xmltree.Items(get(m, "logData"))
	if len(items) == 0 {
		return nil
	}
	d, ok := items[0].(*xmltree.Map)
	if !ok {
		return &model.LogData{Rows: [][]string{}}
	}
	out := &model.LogData{
		MnemonicList: splitList(text(d, "mnemonicList")),
		UnitList:     splitList(text(d, "unitList")),
		Rows:         [][]string{},
	}
	for _, n := range xmltree.Items(get(d, "data")) {
		if s, ok := n.(xmltree.Scalar); ok {
			out.Rows = append(out.Rows, strings.Split(string(s), ","))
		}
	}
	return out
}

func splitList(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	parts := strings.Split(*s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func messages(tree *xmltree.Map) []*model.Message {
	out := []*model.Message{}
	for _, n := range xmltree.Items(get(tree, "messages")) {
		e, ok := n.(*xmltree.Map)
		if !ok {
			continue
		}
		msg := &model.Message{
			UID:         deref(text(e, "uid")),
			WellUID:     deref(text(e, "uidWell")),
			WellboreUID: deref(text(e, "uidWellbore")),
		}

		content, _ := e.Map("content")
		extra := xmltree.NewMap()
		for _, k := range content.Keys() {
			v, _ := content.Get(k)
			switch k {
			case xmltree.AttributesKey:
			case "name":
				msg.Name = text(content, k)
			case "typeMessage":
				msg.MessageType = text(content, k)
			case "messageText":
				msg.Text = text(content, k)
			case "dTim":
				ts, err := time.Parse(time.RFC3339, deref(text(content, k)))
				if err != nil {
					extra.Set(k, v)
					continue
				}
				ts = ts.UTC()
				msg.Timestamp = &ts
			case "commonData":
				if cd, ok := content.Map(k); ok {
					msg.Source = text(cd, "sourceName")
				}
				extra.Set(k, v)
			default:
				extra.Set(k, v)
			}
		}
		if extra.Len() > 0 {
			msg.Extra = extra
		}
		out = append(out, msg)
	}
	return out
}

func mudLogs(tree *xmltree.Map) (*model.MudLogs, error) {
	out := &model.MudLogs{}
	for uid, m := range members(tree, "mudLog") {
		ml := &model.MudLog{
			UID:         uid,
			Name:        text(m, "name"),
			WellUID:     parent(m, "uidWell", "wellUid"),
			WellboreUID: parent(m, "uidWellbore", "wellboreUid"),
		}
		for _, set := range xmltree.Items(get(m, "geologicalIntervalSet")) {
			sm, ok := set.(*xmltree.Map)
			if !ok {
				continue
			}
			for _, n := range xmltree.Items(get(sm, "geologicalInterval")) {
				im, ok := n.(*xmltree.Map)
				if !ok {
					continue
				}
				gi := model.GeologicalInterval{
					Top:         measure(im, "mdTop"),
					Base:        measure(im, "mdBottom"),
					Lithology:   lithology(im),
					Description: text(im, "description"),
				}
				if inverted(gi.Top, gi.Base) {
					return nil, &IntegrityError{
						DataType: model.DataTypeMudLog,
						UID:      uid,
						Reason:   fmt.Sprintf("interval %d: mdTop %s is below mdBottom %s", len(ml.Intervals), gi.Top.Value, gi.Base.Value),
					}
				}
				ml.Intervals = append(ml.Intervals, gi)
			}
		}
		out.Put(uid, ml)
	}
	return out, nil
}

// inverted is true if both depths are numeric in the same unit and top is
// deeper than base.
func inverted(top, base *model.Measure) bool {
	if top == nil || base == nil || top.UOM != base.UOM {
		return false
	}
	t, err := strconv.ParseFloat(top.Value, 64)
	if err != nil {
		return false
	}
	b, err := strconv.ParseFloat(base.Value, 64)
	if err != nil {
		return false
	}
	return t > b
}

func lithology(m *xmltree.Map) *string {
	items := xmltree.Items(get(m, "lithology"))
	if len(items) == 0 {
		return nil
	}
	if s, ok := xmltree.TextOf(items[0]); ok {
		return &s
	}
	if lm, ok := items[0].(*xmltree.Map); ok {
		if t := text(lm, "type"); t != nil {
			return t
		}
	}
	s := ""
	return &s
}

// members iterates over the uid-keyed objects of a collection.
func members(tree *xmltree.Map, key string) iter.Seq2[string, *xmltree.Map] {
	return func(yield func(string, *xmltree.Map) bool) {
		byUID, ok := tree.Map(key)
		if !ok {
			return
		}
		for _, uid := range byUID.Keys() {
			m, ok := byUID.Map(uid)
			if !ok {
				// An object with only text converts to a scalar.
				m = xmltree.NewMap()
			}
			if !yield(uid, m) {
				return
			}
		}
	}
}

func get(m *xmltree.Map, key string) xmltree.Node {
	v, _ := m.Get(key)
	return v
}

// text returns the text of the first node under key, or nil if key is absent.
// A present element without text yields an empty string.
func text(m *xmltree.Map, key string) *string {
	items := xmltree.Items(get(m, key))
	if len(items) == 0 {
		return nil
	}
	s, _ := xmltree.TextOf(items[0])
	return &s
}

func measure(m *xmltree.Map, key string) *model.Measure {
	items := xmltree.Items(get(m, key))
	if len(items) == 0 {
		return nil
	}
	v, _ := xmltree.TextOf(items[0])
	out := &model.Measure{Value: v}
	if mm, ok := items[0].(*xmltree.Map); ok {
		out.UOM, _ = mm.Attr("uom")
	}
	return out
}

func firstMeasure(m *xmltree.Map, keys ...string) *model.Measure {
	for _, k := range keys {
		if v := measure(m, k); v != nil {
			return v
		}
	}
	return nil
}

// parent reads a parent reference from an attribute, falling back to a child
// element.
func parent(m *xmltree.Map, attr, child string) *string {
	if v, ok := m.Attr(attr); ok {
		return &v
	}
	return text(m, child)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
