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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
	"go.chromium.org/luci/common/tsmon"
	"go.chromium.org/luci/server/router"

	"github.com/archishmannag/well-log-rag/internal/files"
	"github.com/archishmannag/well-log-rag/internal/filestore"
	"github.com/archishmannag/well-log-rag/witsml/client"
	"github.com/archishmannag/well-log-rag/witsml/connector"
	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/pool"
	"github.com/archishmannag/well-log-rag/witsml/xmltree"
)

func ptr[T any](v T) *T { return &v }

// fakeWITSML serves fixed records.
type fakeWITSML struct {
	err       error
	connected bool
	cleared   int
	lastRange client.IndexRange
}

func (f *fakeWITSML) Wells(ctx context.Context) (*model.Wells, error) {
	if f.err != nil {
		return nil, f.err
	}
	ws := &model.Wells{}
	ws.Put("w1", &model.Well{UID: "w1", Name: ptr("Alpha")})
	return ws, nil
}

func (f *fakeWITSML) Well(ctx context.Context, uid string) (*model.Well, error) {
	if uid != "w1" {
		return nil, client.ErrNotFound
	}
	return &model.Well{UID: "w1", Name: ptr("Alpha")}, nil
}

func (f *fakeWITSML) WellsBatch(ctx context.Context, uids []string) (map[string]*model.Well, error) {
	out := map[string]*model.Well{}
	for _, uid := range uids {
		if uid == "w1" {
			out[uid] = &model.Well{UID: "w1", Name: ptr("Alpha")}
		}
	}
	return out, f.err
}

func (f *fakeWITSML) Wellbores(ctx context.Context, wellUID string) (*model.Wellbores, error) {
	wbs := &model.Wellbores{}
	wbs.Put("b1", &model.Wellbore{UID: "b1", WellUID: ptr("w1")})
	if wellUID == "" {
		wbs.Put("b2", &model.Wellbore{UID: "b2", WellUID: ptr("w2")})
	}
	return wbs, nil
}

func (f *fakeWITSML) Logs(ctx context.Context, wellUID, wellboreUID string) (*model.Logs, error) {
	ls := &model.Logs{}
	ls.Put("l1", &model.Log{UID: "l1", WellUID: ptr(wellUID), WellboreUID: ptr(wellboreUID)})
	return ls, nil
}

func (f *fakeWITSML) LogData(ctx context.Context, wellUID, wellboreUID, logUID string, r client.IndexRange) (*model.Log, error) {
	f.lastRange = r
	if f.err != nil {
		return nil, f.err
	}
	return &model.Log{
		UID:    logUID,
		Curves: []model.CurveInfo{{Mnemonic: "DEPT"}, {Mnemonic: "GR"}},
		Data:   &model.LogData{Rows: [][]string{{"1000", "45.2"}, {"1001", "47.9"}}},
	}, nil
}

func (f *fakeWITSML) CheckConnection(ctx context.Context) bool { return f.connected }

func (f *fakeWITSML) ServerInfo(ctx context.Context) (*pool.ServerInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pool.ServerInfo{Version: "1.4.1.1", Capabilities: xmltree.NewMap(), URL: "http://store", Status: pool.StatusConnected}, nil
}

func (f *fakeWITSML) ClearCache(ctx context.Context) { f.cleared++ }

const logDoc = `<logs><log uid="l1" uidWell="w1">
	<name>Gamma</name>
	<logCurveInfo><mnemonic>DEPT</mnemonic></logCurveInfo>
	<logCurveInfo><mnemonic>GR</mnemonic></logCurveInfo>
	<logData><data>1000,45.2</data></logData>
</log></logs>`

func TestServer(t *testing.T) {
	t.Parallel()

	ftt.Run("Server", t, func(t *ftt.Test) {
		ctx, _ := tsmon.WithDummyInMemory(context.Background())

		store, err := filestore.Open(ctx, ":memory:")
		assert.Loosely(t, err, should.BeNil)
		defer store.Close()

		backend := &fakeWITSML{connected: true}
		sharedCleared := 0
		srv := &Server{
			WITSML:    backend,
			ServerURL: "http://store",
			Files:     files.New(store),
			ClearShared: func(context.Context) error {
				sharedCleared++
				return nil
			},
		}
		r := router.New()
		srv.InstallHandlers(r)

		call := func(method, url, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, url, strings.NewReader(body)).WithContext(ctx)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			return rec
		}
		decode := func(rec *httptest.ResponseRecorder) map[string]any {
			var out map[string]any
			assert.Loosely(t, json.Unmarshal(rec.Body.Bytes(), &out), should.BeNil)
			return out
		}

		t.Run("health and status", func(t *ftt.Test) {
			rec := call("GET", "/health", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			assert.Loosely(t, decode(rec)["witsml_connected"], should.Equal(true))

			backend.connected = false
			rec = call("GET", "/witsml/status", "")
			assert.Loosely(t, decode(rec), should.Match(map[string]any{
				"status":     "disconnected",
				"server_url": "http://store",
			}))

			assert.Loosely(t, requestCounter.Get(ctx, "GET", "/witsml/status", int64(200)), should.Equal(int64(1)))
		})

		t.Run("wells", func(t *ftt.Test) {
			rec := call("GET", "/witsml/wells", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			assert.Loosely(t, strings.TrimSpace(rec.Body.String()), should.Equal(`{"w1":{"uid":"w1","name":"Alpha"}}`))

			rec = call("GET", "/witsml/wells/w1", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))

			rec = call("GET", "/witsml/wells/nope", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusNotFound))
			assert.Loosely(t, decode(rec)["error_type"], should.Equal("NotFound"))
		})

		t.Run("batch", func(t *ftt.Test) {
			rec := call("POST", "/witsml/wells/batch", `{"uids":["w1","w9","w1"]}`)
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			out := decode(rec)
			assert.Loosely(t, out["missing"], should.Match([]any{"w9"}))
			assert.Loosely(t, out["wells"], should.HaveLength(1))

			rec = call("POST", "/witsml/wells/batch", `{"uids":`)
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadRequest))
		})

		t.Run("wellbores and logs", func(t *ftt.Test) {
			rec := call("GET", "/witsml/wellbores", "")
			assert.Loosely(t, decode(rec), should.HaveLength(2))
			rec = call("GET", "/witsml/wells/w1/wellbores", "")
			assert.Loosely(t, decode(rec), should.HaveLength(1))
			rec = call("GET", "/witsml/wells/w1/wellbores/b1/logs", "")
			assert.Loosely(t, strings.TrimSpace(rec.Body.String()), should.Equal(`{"l1":{"uid":"l1","wellUid":"w1","wellboreUid":"b1"}}`))
		})

		t.Run("log data", func(t *ftt.Test) {
			rec := call("GET", "/witsml/wells/w1/wellbores/b1/logs/l1/data?start_index=1000&end_index=1001", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			assert.Loosely(t, backend.lastRange, should.Match(client.IndexRange{Start: "1000", End: "1001"}))
			assert.Loosely(t, rec.Body.String(), should.ContainSubstring(`"rows":[["1000","45.2"],["1001","47.9"]]`))
		})

		t.Run("store failures are bad gateway", func(t *ftt.Test) {
			backend.err = &connector.ProtocolError{Procedure: connector.ProcGetFromStore, Code: -401, Message: "bad query"}
			rec := call("GET", "/witsml/wells", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadGateway))
			out := decode(rec)
			assert.Loosely(t, out["error_type"], should.Equal("ProtocolError"))
			assert.Loosely(t, out["code"], should.Equal("502"))

			backend.err = &connector.TransportError{Procedure: connector.ProcGetFromStore, Err: errors.New("refused")}
			rec = call("GET", "/witsml/info", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadGateway))

			backend.err = &xmltree.ParseError{Message: "bad", RawContent: "<"}
			rec = call("GET", "/witsml/wells/w1/wellbores/b1/logs/l1/data", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadGateway))
		})

		t.Run("clear cache", func(t *ftt.Test) {
			rec := call("POST", "/witsml/clear-cache", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusNoContent))
			assert.Loosely(t, backend.cleared, should.Equal(1))
			assert.Loosely(t, sharedCleared, should.Equal(1))
		})

		t.Run("log stream", func(t *ftt.Test) {
			rec := call("GET", "/witsml/wells/w1/wellbores/b1/logs/l1/stream?delay=0", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			assert.Loosely(t, rec.Header().Get("Content-Type"), should.Equal("text/event-stream"))
			body := rec.Body.String()
			assert.Loosely(t, strings.Count(body, "event: data\n"), should.Equal(2))
			assert.Loosely(t, body, should.ContainSubstring("event: end\n"))

			rec = call("GET", "/witsml/wells/w1/wellbores/b1/logs/l1/stream?delay=soon", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadRequest))
		})

		t.Run("files", func(t *ftt.Test) {
			rec := call("POST", "/files?name=gamma.xml", logDoc)
			assert.Loosely(t, rec.Code, should.Equal(http.StatusCreated))
			id := decode(rec)["file_id"].(string)

			rec = call("POST", "/files?name=wells.xml", `<wells><well uid="w2"><name>Beta</name></well></wells>`)
			assert.Loosely(t, rec.Code, should.Equal(http.StatusCreated))
			wellsID := decode(rec)["file_id"].(string)

			rec = call("GET", "/files", "")
			assert.Loosely(t, decode(rec)["count"], should.Equal(2.0))

			rec = call("GET", "/files?file_type=log", "")
			assert.Loosely(t, decode(rec)["count"], should.Equal(1.0))

			rec = call("POST", "/files/query", `{"well_names":["Beta"]}`)
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			assert.Loosely(t, decode(rec)["count"], should.Equal(1.0))

			rec = call("GET", "/files/"+id, "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			assert.Loosely(t, rec.Body.String(), should.ContainSubstring(`"file_name":"gamma.xml"`))

			rec = call("GET", "/files/"+id+"/stream?delay=0", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusOK))
			assert.Loosely(t, strings.Count(rec.Body.String(), "event: data\n"), should.Equal(1))
			assert.Loosely(t, rec.Body.String(), should.ContainSubstring(`"well_name":"w1"`))

			rec = call("GET", "/files/"+wellsID+"/stream", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadRequest))

			rec = call("DELETE", "/files/"+id, "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusNoContent))
			rec = call("GET", "/files/"+id, "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusNotFound))
		})

		t.Run("bad imports", func(t *ftt.Test) {
			rec := call("POST", "/files", "")
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadRequest))

			rec = call("POST", "/files", `<logs><log uid="l1">
				<logCurveInfo><mnemonic>A</mnemonic></logCurveInfo>
				<logData><data>1,2</data></logData>
			</log></logs>`)
			assert.Loosely(t, rec.Code, should.Equal(http.StatusBadRequest))
			assert.Loosely(t, decode(rec)["error"].(string), should.ContainSubstring("curves"))
		})
	})
}
