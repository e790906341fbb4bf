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
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

const (
	// AttributesKey holds the attributes of an element.
	AttributesKey = "attributes"
	// TextKey holds the text of an element that also has children or
	// attributes.
	TextKey = "_text"

	// ErrorKey and RawContentKey make up a degraded parse result.
	ErrorKey      = "error"
	RawContentKey = "raw_content"

	// rawContentLimit is how many characters of a failed input are kept in a
	// degraded result.
	rawContentLimit = 200
)

// collections maps a collection root tag to the per-object tag and the key
// the objects are stored under.
var collections = map[string]string{
	"wells":     "well",
	"wellbores": "wellbore",
	"logs":      "log",
	"mudLogs":   "mudLog",
}

// ParseError describes a payload that could not be parsed.
//
// Parse never returns it; it is recovered from a degraded tree by Degraded so
// that callers which need a typed result can surface it.
type ParseError struct {
	Message    string
	RawContent string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse WITSML payload: %s", e.Message)
}

// Degraded returns the ParseError carried by a degraded tree.
//
// Only trees produced by a failed Parse are degraded. A document that happens
// to have "error" and "raw_content" elements is not.
func Degraded(m *Map) (*ParseError, bool) {
	if m == nil || m.failure == nil {
		return nil, false
	}
	return m.failure, true
}

// Parse converts a WITSML payload into a tree.
//
// Collection roots are dispatched: "messages" produces a List under the
// "messages" key, "wells", "wellbores", "logs" and "mudLogs" produce a Map
// keyed by each object's uid attribute ("unknown" if absent) under "well",
// "wellbore", "log" and "mudLog". Any other root is converted as is.
//
// Parse never fails. A payload that cannot be parsed yields a degraded tree
// with "error" and "raw_content" keys, see Degraded.
func Parse(ctx context.Context, raw string) *Map {
	root, err := decode(raw)
	if err != nil {
		logging.WithError(err).Errorf(ctx, "Error parsing WITSML XML")
		perr := &ParseError{Message: err.Error(), RawContent: truncate(raw, rawContentLimit)}
		out := NewMap()
		out.Set(ErrorKey, Scalar(perr.Message))
		out.Set(RawContentKey, Scalar(perr.RawContent))
		out.failure = perr
		return out
	}
	return dispatch(root)
}

func dispatch(root *element) *Map {
	if root.name == "messages" {
		msgs := List{}
		for _, e := range root.descendants("message") {
			m := NewMap()
			m.Set("uid", Scalar(e.attr("uid")))
			m.Set("uidWellbore", Scalar(e.attr("uidWellbore")))
			m.Set("uidWell", Scalar(e.attr("uidWell")))
			m.Set("content", convert(e, ""))
			msgs = append(msgs, m)
		}
		out := NewMap()
		out.Set("messages", msgs)
		return out
	}

	if tag, ok := collections[root.name]; ok {
		byUID := NewMap()
		for _, e := range root.descendants(tag) {
			uid := "unknown"
			if v, ok := e.attrValue("uid"); ok {
				uid = v
			}
			byUID.Set(uid, convertObject(e))
		}
		out := NewMap()
		out.Set(tag, byUID)
		return out
	}

	// A generic root is returned in its converted form; only a root with text
	// and nothing else converts to a Scalar, which gets wrapped.
	switch n := convert(root, "").(type) {
	case *Map:
		return n
	default:
		out := NewMap()
		out.Set(root.name, n)
		return out
	}
}

// convertObject converts a member of a collection. Its uid attribute is
// already the key it is stored under, so it is not repeated in the
// attributes.
func convertObject(e *element) Node {
	return convert(e, "uid")
}

// convert turns an element into a Node, leaving out the attribute named skip.
func convert(e *element, skip string) Node {
	m := NewMap()
	attrs := NewMap()
	for _, a := range e.attrs {
		if a.name != skip {
			attrs.Set(a.name, Scalar(a.value))
		}
	}
	if attrs.Len() > 0 {
		m.Set(AttributesKey, attrs)
	}

	promoted := map[string]bool{}
	for _, c := range e.children {
		v := convert(c, "")
		key := childKey(c.name)
		prev, ok := m.Get(key)
		switch {
		case !ok:
			m.Set(key, v)
		case promoted[key]:
			m.Set(key, append(prev.(List), v))
		default:
			promoted[key] = true
			m.Set(key, List{prev, v})
		}
	}

	text := strings.TrimSpace(e.text.String())
	switch {
	case text != "" && m.Len() == 0:
		return Scalar(text)
	case text != "":
		m.Set(TextKey, Scalar(text))
	}
	return m
}

// childKey is the key a child element is stored under. Elements named like
// the reserved keys get a "_" prefix so they cannot pass for attributes or
// text.
func childKey(name string) string {
	if name == AttributesKey || name == TextKey {
		return "_" + name
	}
	return name
}

type attr struct {
	name  string
	value string
}

// element is the intermediate form of a decoded XML element.
type element struct {
	name     string
	attrs    []attr
	text     strings.Builder
	children []*element
}

func (e *element) attrValue(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

func (e *element) attr(name string) string {
	v, _ := e.attrValue(name)
	return v
}

// descendants returns all elements below e (not e itself) named tag, in
// document order.
func (e *element) descendants(tag string) []*element {
	var out []*element
	var walk func(*element)
	walk = func(p *element) {
		for _, c := range p.children {
			if c.name == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// stripProlog removes a leading byte order mark and XML declaration.
//
// The declaration is dropped rather than honored because the payload is
// already decoded text; a stale encoding label would only make the decoder
// refuse it.
func stripProlog(raw string) string {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = strings.TrimLeft(s, " \t\r\n")
	if strings.HasPrefix(s, "<?xml") {
		if i := strings.Index(s, "?>"); i >= 0 {
			s = strings.TrimSpace(s[i+2:])
		}
	}
	return s
}

func decode(raw string) (*element, error) {
	d := xml.NewDecoder(strings.NewReader(stripProlog(raw)))
	d.Strict = true

	var root *element
	var stack []*element
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, errors.New("junk after document element")
			}
			e := &element{name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				e.attrs = append(e.attrs, attr{name: a.Name.Local, value: a.Value})
			}
			if len(stack) == 0 {
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				// Only text ahead of the first child is the element's own text.
				if cur := stack[len(stack)-1]; len(cur.children) == 0 {
					cur.text.Write(t)
				}
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, errors.New("text outside of document element")
			}
		}
	}
	if root == nil {
		return nil, errors.New("no document element")
	}
	return root, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}
