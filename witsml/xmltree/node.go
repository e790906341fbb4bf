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

package xmltree

import (
	"bytes"
	"encoding/json"
)

// Node is a value in a parsed tree.
//
// It is one of Scalar, *Map or List. Code consuming a tree is expected to
// type-switch over these three cases.
type Node interface {
	isNode()
}

// Scalar is the trimmed text of an element that has no children and no
// attributes, or an attribute value.
type Scalar string

// List holds the converted forms of a tag that occurred more than once under
// the same parent, in document order.
type List []Node

func (Scalar) isNode() {}
func (List) isNode()   {}
func (*Map) isNode()   {}

// Map is an insertion-ordered string-keyed map of nodes.
//
// The zero value is ready to use.
type Map struct {
	keys []string
	vals map[string]Node

	// failure is set on the degraded result of Parse.
	failure *ParseError
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{}
}

// Set stores v under key.
//
// Replacing an existing key keeps its original position.
func (m *Map) Set(key string, v Node) {
	if m.vals == nil {
		m.vals = make(map[string]Node)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the node stored under key.
func (m *Map) Get(key string) (Node, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Has is true if key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Map returns the node stored under key if it is a *Map.
func (m *Map) Map(key string) (*Map, bool) {
	v, _ := m.Get(key)
	sub, ok := v.(*Map)
	return sub, ok
}

// Text returns the text of the node stored under key, see TextOf.
func (m *Map) Text(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return TextOf(v)
}

// Attr returns the value of an attribute of the element this map was
// converted from.
func (m *Map) Attr(name string) (string, bool) {
	attrs, ok := m.Map(AttributesKey)
	if !ok {
		return "", false
	}
	return attrs.Text(name)
}

// Keys returns keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len is the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Equal reports whether two maps have the same keys in the same order with
// equal values.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, k := range m.Keys() {
		if o.keys[i] != k {
			return false
		}
		if !Equal(m.vals[k], o.vals[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the map as a JSON object with keys in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Equal compares two nodes structurally.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case Scalar:
		b, ok := b.(Scalar)
		return ok && a == b
	case *Map:
		b, ok := b.(*Map)
		return ok && a.Equal(b)
	case List:
		b, ok := b.(List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return false
}

// TextOf extracts text from a node.
//
// A Scalar is its own text. A *Map has text only if it carries a "_text" key,
// which is how an element with attributes or children keeps its character
// data.
func TextOf(n Node) (string, bool) {
	switch n := n.(type) {
	case Scalar:
		return string(n), true
	case *Map:
		if t, ok := n.Get(TextKey); ok {
			if s, ok := t.(Scalar); ok {
				return string(s), true
			}
		}
	}
	return "", false
}

// Items normalizes a node that the protocol may return either once or many
// times: a List yields its elements, nil yields nothing and any other node is
// a list of one.
func Items(n Node) List {
	switch n := n.(type) {
	case nil:
		return nil
	case List:
		return n
	default:
		return List{n}
	}
}
