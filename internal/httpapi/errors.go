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
	"fmt"
	"net/http"
	"strconv"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/server/router"

	"github.com/archishmannag/well-log-rag/internal/files"
	"github.com/archishmannag/well-log-rag/witsml/client"
	"github.com/archishmannag/well-log-rag/witsml/connector"
	"github.com/archishmannag/well-log-rag/witsml/processor"
	"github.com/archishmannag/well-log-rag/witsml/xmltree"
)

// errorResponse is the body of a failed request.
type errorResponse struct {
	Detail    string `json:"detail"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// badRequest marks an error caused by the request itself.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func badRequestf(format string, args ...any) error {
	return &badRequest{fmt.Errorf(format, args...)}
}

// statusOf maps an error to an HTTP status code and a short name of its
// kind.
func statusOf(err error) (int, string) {
	var (
		bad   *badRequest
		proto *connector.ProtocolError
		fault *connector.FaultError
		trans *connector.TransportError
		conf  *connector.ConfigurationError
		parse *xmltree.ParseError
		integ *processor.IntegrityError
		unexp *client.UnexpectedPayloadError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "BadRequest"
	case errors.Is(err, client.ErrNotFound), errors.Is(err, files.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.As(err, &proto):
		return http.StatusBadGateway, "ProtocolError"
	case errors.As(err, &fault):
		return http.StatusBadGateway, "FaultError"
	case errors.As(err, &trans):
		return http.StatusBadGateway, "TransportError"
	case errors.As(err, &parse):
		return http.StatusBadGateway, "ParseError"
	case errors.As(err, &integ):
		return http.StatusBadGateway, "IntegrityError"
	case errors.As(err, &unexp):
		return http.StatusBadGateway, "UnexpectedPayloadError"
	case errors.As(err, &conf):
		return http.StatusServiceUnavailable, "ConfigurationError"
	}
	return http.StatusInternalServerError, "InternalError"
}

// writeError reports err with detail as the message.
func writeError(c *router.Context, detail string, err error) {
	ctx := c.Request.Context()
	code, kind := statusOf(err)
	if code >= 500 {
		logging.WithError(err).Errorf(ctx, "%s", detail)
	} else {
		logging.WithError(err).Warningf(ctx, "%s", detail)
	}
	writeJSON(c, code, &errorResponse{
		Detail:    detail,
		Error:     err.Error(),
		ErrorType: kind,
		Code:      strconv.Itoa(code),
		Timestamp: clock.Now(ctx).UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func writeJSON(c *router.Context, code int, v any) {
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.Writer.WriteHeader(code)
	if err := json.NewEncoder(c.Writer).Encode(v); err != nil {
		logging.WithError(err).Errorf(c.Request.Context(), "Failed to write response")
	}
}
