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

package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/server/router"

	"github.com/archishmannag/well-log-rag/internal/files"
	"github.com/archishmannag/well-log-rag/internal/filestore"
	"github.com/archishmannag/well-log-rag/internal/stream"
	"github.com/archishmannag/well-log-rag/witsml/processor"
)

// maxUpload bounds the size of an imported document.
const maxUpload = 64 << 20

type fileList struct {
	Files []*filestore.Record `json:"files"`
	Count int                 `json:"count"`
}

func writeFiles(c *router.Context, recs []*filestore.Record) {
	if recs == nil {
		recs = []*filestore.Record{}
	}
	writeJSON(c, http.StatusOK, &fileList{Files: recs, Count: len(recs)})
}

func (s *Server) listFiles(c *router.Context) {
	q := c.Request.URL.Query()
	recs, err := s.Files.List(c.Request.Context(), q.Get("well_name"), q.Get("file_type"))
	if err != nil {
		writeError(c, "Failed to retrieve files", err)
		return
	}
	writeFiles(c, recs)
}

func (s *Server) queryFiles(c *router.Context) {
	var q files.FileQuery
	if err := json.NewDecoder(c.Request.Body).Decode(&q); err != nil {
		writeError(c, "Failed to query files", badRequestf("decoding body: %s", err))
		return
	}
	recs, err := s.Files.Query(c.Request.Context(), q)
	if err != nil {
		writeError(c, "Failed to query files", err)
		return
	}
	writeFiles(c, recs)
}

func (s *Server) getFile(c *router.Context) {
	id := c.Params.ByName("id")
	f, err := s.Files.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "Failed to retrieve file "+id, err)
		return
	}
	writeJSON(c, http.StatusOK, f)
}

// importFile stores the request body as a WITSML document. The "name" query
// parameter names it.
func (s *Server) importFile(c *router.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload))
	if err != nil {
		writeError(c, "Failed to import file", badRequestf("reading body: %s", err))
		return
	}
	if len(body) == 0 {
		writeError(c, "Failed to import file", badRequestf("empty document"))
		return
	}
	rec, err := s.Files.Import(c.Request.Context(), c.Request.URL.Query().Get("name"), body)
	var integ *processor.IntegrityError
	if errors.As(err, &integ) {
		err = &badRequest{err}
	}
	if err != nil {
		writeError(c, "Failed to import file", err)
		return
	}
	writeJSON(c, http.StatusCreated, rec)
}

func (s *Server) deleteFile(c *router.Context) {
	id := c.Params.ByName("id")
	if err := s.Files.Delete(c.Request.Context(), id); err != nil {
		writeError(c, "Failed to delete file "+id, err)
		return
	}
	c.Writer.WriteHeader(http.StatusNoContent)
}

func (s *Server) fileStream(c *router.Context) {
	id := c.Params.ByName("id")
	interval, err := s.interval(c)
	if err != nil {
		writeError(c, "Bad stream request", err)
		return
	}
	f, l, err := s.Files.Log(c.Request.Context(), id)
	switch {
	case f != nil && err != nil:
		writeError(c, "Only log files can be streamed", &badRequest{err})
		return
	case err != nil:
		writeError(c, "Failed to retrieve file "+id, err)
		return
	}
	md := stream.Metadata{
		FileName: f.Content.Header.FileName,
		WellName: f.Info.WellName,
	}
	s.serveStream(c, md, l, interval)
}
