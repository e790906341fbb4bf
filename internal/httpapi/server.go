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

// Package httpapi exposes the WITSML pipeline and the file service over
// HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/tsmon/distribution"
	"go.chromium.org/luci/common/tsmon/field"
	"go.chromium.org/luci/common/tsmon/metric"
	"go.chromium.org/luci/common/tsmon/types"
	"go.chromium.org/luci/server/router"

	"github.com/archishmannag/well-log-rag/internal/files"
	"github.com/archishmannag/well-log-rag/witsml/client"
	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/pool"
)

var (
	requestCounter = metric.NewCounter(
		"witsml/http/requests",
		"Count of HTTP API requests by route and status code",
		nil,
		field.String("method"),
		field.String("route"),
		field.Int("code"),
	)

	requestDuration = metric.NewCumulativeDistribution(
		"witsml/http/duration",
		"Duration of HTTP API requests",
		&types.MetricMetadata{Units: types.Milliseconds},
		distribution.DefaultBucketer,
		field.String("method"),
		field.String("route"),
	)
)

// WITSML is the store-facing surface the API serves, implemented by
// *pool.Service.
type WITSML interface {
	Wells(ctx context.Context) (*model.Wells, error)
	Well(ctx context.Context, uid string) (*model.Well, error)
	WellsBatch(ctx context.Context, uids []string) (map[string]*model.Well, error)
	Wellbores(ctx context.Context, wellUID string) (*model.Wellbores, error)
	Logs(ctx context.Context, wellUID, wellboreUID string) (*model.Logs, error)
	LogData(ctx context.Context, wellUID, wellboreUID, logUID string, r client.IndexRange) (*model.Log, error)
	CheckConnection(ctx context.Context) bool
	ServerInfo(ctx context.Context) (*pool.ServerInfo, error)
	ClearCache(ctx context.Context)
}

var _ WITSML = (*pool.Service)(nil)

// Server holds the API handlers.
type Server struct {
	// WITSML serves the /witsml routes.
	WITSML WITSML
	// ServerURL is reported by the status route.
	ServerURL string
	// Files serves the /files routes. They are not installed if nil.
	Files *files.Service
	// ClearShared, if set, is called by the cache clearing route after the
	// per-client caches are cleared.
	ClearShared func(ctx context.Context) error
	// StreamInterval is the default delay between streamed rows,
	// stream.DefaultInterval if zero.
	StreamInterval time.Duration
}

// InstallHandlers installs the API routes into r.
func (s *Server) InstallHandlers(r *router.Router) {
	install := map[string]func(string, router.MiddlewareChain, router.Handler){
		"GET":    r.GET,
		"POST":   r.POST,
		"DELETE": r.DELETE,
	}
	route := func(method, path string, h router.Handler) {
		install[method](path, router.NewMiddlewareChain(instrument(method, path)), h)
	}

	route("GET", "/health", s.health)

	route("GET", "/witsml/status", s.status)
	route("GET", "/witsml/info", s.info)
	route("GET", "/witsml/wells", s.wells)
	route("GET", "/witsml/wells/:well", s.well)
	route("POST", "/witsml/wells/batch", s.wellsBatch)
	route("GET", "/witsml/wellbores", s.allWellbores)
	route("GET", "/witsml/wells/:well/wellbores", s.wellbores)
	route("GET", "/witsml/wells/:well/wellbores/:wellbore/logs", s.logs)
	route("GET", "/witsml/wells/:well/wellbores/:wellbore/logs/:log/data", s.logData)
	route("GET", "/witsml/wells/:well/wellbores/:wellbore/logs/:log/stream", s.logStream)
	route("POST", "/witsml/clear-cache", s.clearCache)

	if s.Files != nil {
		route("GET", "/files", s.listFiles)
		route("POST", "/files", s.importFile)
		route("POST", "/files/query", s.queryFiles)
		route("GET", "/files/:id", s.getFile)
		route("DELETE", "/files/:id", s.deleteFile)
		route("GET", "/files/:id/stream", s.fileStream)
	}
}

// statusWriter records the status code of a response.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument counts and times requests to a route.
func instrument(method, path string) router.Middleware {
	return func(c *router.Context, next router.Handler) {
		ctx := c.Request.Context()
		start := clock.Now(ctx)
		sw := &statusWriter{ResponseWriter: c.Writer, code: http.StatusOK}
		c.Writer = sw
		next(c)

		d := clock.Since(ctx, start)
		requestCounter.Add(ctx, 1, method, path, int64(sw.code))
		requestDuration.Add(ctx, float64(d.Milliseconds()), method, path)
		logging.Fields{
			"method":   method,
			"path":     c.Request.URL.Path,
			"status":   sw.code,
			"duration": d,
		}.Debugf(ctx, "%s %s", method, c.Request.URL.Path)
	}
}

// objectPath holds the uids addressed by a route.
type objectPath struct {
	well, wellbore, log string
}

func pathOf(p httprouter.Params) objectPath {
	return objectPath{
		well:     p.ByName("well"),
		wellbore: p.ByName("wellbore"),
		log:      p.ByName("log"),
	}
}

func (s *Server) health(c *router.Context) {
	writeJSON(c, http.StatusOK, map[string]any{
		"status":           "healthy",
		"witsml_connected": s.WITSML.CheckConnection(c.Request.Context()),
	})
}
