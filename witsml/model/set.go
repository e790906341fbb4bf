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

package model

import (
	"bytes"
	"encoding/json"
	"iter"
)

// Set is a uid-keyed collection that remembers the order uids were first
// added in.
//
// The zero value is an empty set.
type Set[T any] struct {
	uids  []string
	items map[string]T
}

// Put stores v under uid, replacing any previous value in place.
func (s *Set[T]) Put(uid string, v T) {
	if s.items == nil {
		s.items = make(map[string]T)
	}
	if _, ok := s.items[uid]; !ok {
		s.uids = append(s.uids, uid)
	}
	s.items[uid] = v
}

// Get returns the record stored under uid.
func (s *Set[T]) Get(uid string) (v T, ok bool) {
	if s == nil {
		return v, false
	}
	v, ok = s.items[uid]
	return
}

// UIDs returns the uids in insertion order.
func (s *Set[T]) UIDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.uids...)
}

// Len is the number of records.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.uids)
}

// First returns the first record added.
func (s *Set[T]) First() (v T, ok bool) {
	if s.Len() == 0 {
		return v, false
	}
	return s.items[s.uids[0]], true
}

// All iterates over (uid, record) pairs in insertion order.
func (s *Set[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		if s == nil {
			return
		}
		for _, uid := range s.uids {
			if !yield(uid, s.items[uid]) {
				return
			}
		}
	}
}

// MarshalJSON renders the set as an object keyed by uid, in insertion order.
func (s *Set[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for uid, v := range s.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		kb, err := json.Marshal(uid)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
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
