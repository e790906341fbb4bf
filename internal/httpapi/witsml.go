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
	"net/http"
	"strconv"
	"time"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/server/router"

	"github.com/archishmannag/well-log-rag/internal/stream"
	"github.com/archishmannag/well-log-rag/witsml/client"
	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/pool"
)

// maxBatch bounds the number of uids of a batch request.
const maxBatch = 100

func (s *Server) status(c *router.Context) {
	st := pool.StatusDisconnected
	if s.WITSML.CheckConnection(c.Request.Context()) {
		st = pool.StatusConnected
	}
	writeJSON(c, http.StatusOK, map[string]string{
		"status":     st,
		"server_url": s.ServerURL,
	})
}

func (s *Server) info(c *router.Context) {
	info, err := s.WITSML.ServerInfo(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to retrieve WITSML server information", err)
		return
	}
	writeJSON(c, http.StatusOK, info)
}

func (s *Server) wells(c *router.Context) {
	wells, err := s.WITSML.Wells(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to retrieve wells", err)
		return
	}
	writeJSON(c, http.StatusOK, wells)
}

func (s *Server) well(c *router.Context) {
	p := pathOf(c.Params)
	w, err := s.WITSML.Well(c.Request.Context(), p.well)
	if err != nil {
		writeError(c, "Failed to retrieve well "+p.well, err)
		return
	}
	writeJSON(c, http.StatusOK, w)
}

type batchRequest struct {
	UIDs []string `json:"uids"`
}

type batchResponse struct {
	Wells   map[string]*model.Well `json:"wells"`
	Missing []string               `json:"missing"`
}

func (s *Server) wellsBatch(c *router.Context) {
	var req batchRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		writeError(c, "Bad batch request", badRequestf("decoding body: %s", err))
		return
	}
	if len(req.UIDs) > maxBatch {
		writeError(c, "Bad batch request", badRequestf("at most %d uids per batch, got %d", maxBatch, len(req.UIDs)))
		return
	}

	found, err := s.WITSML.WellsBatch(c.Request.Context(), req.UIDs)
	if err != nil {
		writeError(c, "Failed to retrieve wells", err)
		return
	}

	missing := stringset.NewFromSlice(req.UIDs...)
	for uid := range found {
		missing.Del(uid)
	}
	writeJSON(c, http.StatusOK, &batchResponse{Wells: found, Missing: missing.ToSortedSlice()})
}

func (s *Server) allWellbores(c *router.Context) {
	s.serveWellbores(c, "")
}

func (s *Server) wellbores(c *router.Context) {
	s.serveWellbores(c, pathOf(c.Params).well)
}

func (s *Server) serveWellbores(c *router.Context, wellUID string) {
	wbs, err := s.WITSML.Wellbores(c.Request.Context(), wellUID)
	if err != nil {
		writeError(c, "Failed to retrieve wellbores", err)
		return
	}
	writeJSON(c, http.StatusOK, wbs)
}

func (s *Server) logs(c *router.Context) {
	p := pathOf(c.Params)
	logs, err := s.WITSML.Logs(c.Request.Context(), p.well, p.wellbore)
	if err != nil {
		writeError(c, "Failed to retrieve logs", err)
		return
	}
	writeJSON(c, http.StatusOK, logs)
}

func (s *Server) fetchLog(c *router.Context) (*model.Log, bool) {
	p := pathOf(c.Params)
	q := c.Request.URL.Query()
	r := client.IndexRange{Start: q.Get("start_index"), End: q.Get("end_index")}
	l, err := s.WITSML.LogData(c.Request.Context(), p.well, p.wellbore, p.log, r)
	if err != nil {
		writeError(c, "Failed to retrieve log data for log "+p.log, err)
		return nil, false
	}
	return l, true
}

func (s *Server) logData(c *router.Context) {
	if l, ok := s.fetchLog(c); ok {
		writeJSON(c, http.StatusOK, l)
	}
}

func (s *Server) logStream(c *router.Context) {
	interval, err := s.interval(c)
	if err != nil {
		writeError(c, "Bad stream request", err)
		return
	}
	l, ok := s.fetchLog(c)
	if !ok {
		return
	}
	s.serveStream(c, stream.Metadata{WellName: pathOf(c.Params).well}, l, interval)
}

func (s *Server) clearCache(c *router.Context) {
	ctx := c.Request.Context()
	s.WITSML.ClearCache(ctx)
	if s.ClearShared != nil {
		if err := s.ClearShared(ctx); err != nil {
			writeError(c, "Failed to clear WITSML cache", err)
			return
		}
	}
	c.Writer.WriteHeader(http.StatusNoContent)
}

// interval reads the "delay" query parameter, in milliseconds.
func (s *Server) interval(c *router.Context) (time.Duration, error) {
	v := c.Request.URL.Query().Get("delay")
	if v == "" {
		if s.StreamInterval > 0 {
			return s.StreamInterval, nil
		}
		return stream.DefaultInterval, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return 0, badRequestf("bad delay %q", v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (s *Server) serveStream(c *router.Context, md stream.Metadata, l *model.Log, interval time.Duration) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	var flush func()
	if f, ok := c.Writer.(http.Flusher); ok {
		flush = f.Flush
	}
	ctx := c.Request.Context()
	if err := stream.Serve(ctx, stream.NewWriter(c.Writer, flush), md, l, interval); err != nil {
		logging.WithError(err).Warningf(ctx, "Stream of log %s ended early", l.UID)
	}
}
