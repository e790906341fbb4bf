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

// Package files implements the file service: imported WITSML documents kept
// in a filestore, listed, queried and served in processed form.
package files

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"go.chromium.org/luci/common/data/caching/lru"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/archishmannag/well-log-rag/internal/filestore"
	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/processor"
)

// CacheTTL is how long listings and processed files are cached.
const CacheTTL = 300 * time.Second

const cacheSize = 256

// NameKey is the metadata key holding the name a file was imported under.
const NameKey = "name"

// ErrNotFound is returned for a file that does not exist.
var ErrNotFound = filestore.ErrNotFound

// Header describes how a stored file was read.
type Header struct {
	FileName string `json:"file_name"`
	Error    string `json:"error,omitempty"`
}

// Content is a stored file in processed form.
type Content struct {
	Header Header              `json:"header"`
	Data   *processor.Envelope `json:"data,omitempty"`
}

// File is a stored file with its processed content.
type File struct {
	Info    *filestore.Record `json:"info"`
	Content Content           `json:"content"`
}

// DateRange bounds the creation time of queried files. Either end may be
// nil.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// FileQuery selects files. Empty fields do not restrict the result.
type FileQuery struct {
	WellNames       []string          `json:"well_names,omitempty"`
	FileTypes       []string          `json:"file_types,omitempty"`
	DateRange       *DateRange        `json:"date_range,omitempty"`
	MetadataFilters map[string]string `json:"metadata_filters,omitempty"`
}

// Service serves files from a store.
type Service struct {
	store *filestore.Store
	cache *lru.Cache[string, any]
}

// New returns a Service over store.
func New(store *filestore.Store) *Service {
	return &Service{store: store, cache: lru.New[string, any](cacheSize)}
}

// ClearCache drops cached listings and files.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Reset()
	logging.Infof(ctx, "File service cache cleared")
}

// List returns the files of a well and type. Empty arguments match all.
func (s *Service) List(ctx context.Context, wellName, fileType string) ([]*filestore.Record, error) {
	key := fmt.Sprintf("list_files:%s:%s", wellName, fileType)
	v, err := s.cached(ctx, key, func() (any, error) {
		var conds []filestore.Cond
		if wellName != "" {
			conds = append(conds, filestore.Eq("well_name", wellName))
		}
		if fileType != "" {
			conds = append(conds, filestore.Eq("file_type", fileType))
		}
		return s.store.Query(ctx, conds...)
	})
	if err != nil {
		logging.WithError(err).Errorf(ctx, "Error listing files")
		return nil, err
	}
	return v.([]*filestore.Record), nil
}

// Get returns a file with its processed content.
//
// A file whose payload no longer processes is returned with the failure in
// its header and no data.
func (s *Service) Get(ctx context.Context, id string) (*File, error) {
	v, err := s.cached(ctx, "get_file:"+id, func() (any, error) {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		raw, err := s.store.Content(ctx, id)
		if err != nil {
			return nil, err
		}
		f := &File{Info: rec, Content: Content{Header: Header{FileName: rec.Metadata[NameKey]}}}
		if f.Content.Data, err = processor.ProcessXML(ctx, string(raw)); err != nil {
			f.Content.Header.Error = err.Error()
		}
		return f, nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, err
	case err != nil:
		logging.WithError(err).Errorf(ctx, "Error retrieving file %s", id)
		return nil, err
	}
	return v.(*File), nil
}

// Query returns the files matching q, oldest first.
func (s *Service) Query(ctx context.Context, q FileQuery) ([]*filestore.Record, error) {
	var conds []filestore.Cond
	if len(q.WellNames) > 0 {
		conds = append(conds, filestore.In("well_name", anys(q.WellNames)...))
	}
	if len(q.FileTypes) > 0 {
		conds = append(conds, filestore.In("file_type", anys(q.FileTypes)...))
	}
	if r := q.DateRange; r != nil {
		if r.Start != nil {
			conds = append(conds, filestore.Gte("created_at", *r.Start))
		}
		if r.End != nil {
			conds = append(conds, filestore.Lte("created_at", *r.End))
		}
	}
	for k, v := range q.MetadataFilters {
		conds = append(conds, filestore.Eq(filestore.MetadataPrefix+k, v))
	}
	recs, err := s.store.Query(ctx, conds...)
	if err != nil {
		logging.WithError(err).Errorf(ctx, "Error querying files")
		return nil, err
	}
	return recs, nil
}

// Import processes a WITSML document and stores it.
//
// The well name and type of the file are taken from the processed payload,
// and the payload metadata becomes the file metadata. A payload that fails
// processing is not stored.
func (s *Service) Import(ctx context.Context, name string, raw []byte) (*filestore.Record, error) {
	env, err := processor.ProcessXML(ctx, string(raw))
	if err != nil {
		return nil, errors.Fmt("importing %q: %w", name, err)
	}

	rec := &filestore.Record{
		WellName: wellName(env),
		FileType: string(env.DataType),
		Metadata: metadata(env, name),
	}
	if err := s.store.Put(ctx, rec, raw); err != nil {
		return nil, err
	}
	s.cache.Reset()

	logging.Fields{
		"id":   rec.ID,
		"type": rec.FileType,
		"well": rec.WellName,
	}.Infof(ctx, "Imported %q (%s)", name, humanize.Bytes(uint64(rec.Size)))
	return rec, nil
}

// Delete removes a file.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Reset()
	return nil
}

// Log returns the first log of a stored log file.
func (s *Service) Log(ctx context.Context, id string) (*File, *model.Log, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.Content.Data == nil || f.Content.Data.DataType != model.DataTypeLog {
		return f, nil, errors.Fmt("file %s is not a log file", id)
	}
	l, ok := f.Content.Data.Content.Logs.First()
	if !ok {
		return f, nil, errors.Fmt("file %s has no log", id)
	}
	return f, l, nil
}

func (s *Service) cached(ctx context.Context, key string, cb func() (any, error)) (any, error) {
	miss := false
	v, err := s.cache.GetOrCreate(ctx, key, func() (any, time.Duration, error) {
		miss = true
		v, err := cb()
		return v, CacheTTL, err
	})
	if err == nil && !miss {
		logging.Debugf(ctx, "Cache hit for %s", key)
	}
	return v, err
}

func wellName(env *processor.Envelope) string {
	md := env.Metadata
	switch {
	case md.WellName != nil && *md.WellName != "":
		return *md.WellName
	case md.WellUID != nil && *md.WellUID != "":
		return *md.WellUID
	}
	var parent *string
	c := env.Content
	if v, ok := c.Logs.First(); ok {
		parent = v.WellUID
	} else if v, ok := c.Wellbores.First(); ok {
		parent = v.WellUID
	} else if v, ok := c.MudLogs.First(); ok {
		parent = v.WellUID
	}
	if parent != nil && *parent != "" {
		return *parent
	}
	return "unknown"
}

func metadata(env *processor.Envelope, name string) map[string]string {
	md := env.Metadata
	out := map[string]string{
		"type":    string(md.Type),
		"version": md.Version,
	}
	if name != "" {
		out[NameKey] = name
	}
	if md.Count != nil {
		out["count"] = fmt.Sprint(*md.Count)
	}
	for k, v := range map[string]*string{
		"wellUid":     md.WellUID,
		"wellboreUid": md.WellboreUID,
		"wellName":    md.WellName,
		"field":       md.Field,
		"logName":     md.LogName,
		"indexType":   md.IndexType,
	} {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}

func anys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
