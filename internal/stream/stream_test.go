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

package stream

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/clock/testclock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"github.com/archishmannag/well-log-rag/witsml/model"
)

func testLog() *model.Log {
	return &model.Log{
		UID:    "l1",
		Curves: []model.CurveInfo{{Mnemonic: "DEPT", IsIndex: true}, {Mnemonic: "GR"}},
		Data: &model.LogData{Rows: [][]string{
			{"1000", "45.2"},
			{"1001", "47.9"},
			{"1002", "51.0"},
		}},
	}
}

func TestRows(t *testing.T) {
	t.Parallel()

	ftt.Run("Rows", t, func(t *ftt.Test) {
		ctx, tc := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)

		var m sync.Mutex
		var sleeps []time.Duration
		tc.SetTimerCallback(func(d time.Duration, _ clock.Timer) {
			m.Lock()
			sleeps = append(sleeps, d)
			m.Unlock()
			tc.Add(d)
		})

		t.Run("emits every row with the interval between them", func(t *ftt.Test) {
			var got []*Row
			err := Rows(ctx, testLog(), 500*time.Millisecond, func(r *Row) error {
				got = append(got, r)
				return nil
			})
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, got, should.HaveLength(3))
			assert.Loosely(t, got[2].Index, should.Equal(2))
			assert.Loosely(t, got[2].Values, should.Match([]string{"1002", "51.0"}))
			assert.Loosely(t, got[2].Timestamp.Sub(got[0].Timestamp), should.Equal(time.Second))
			m.Lock()
			defer m.Unlock()
			assert.Loosely(t, sleeps, should.Match([]time.Duration{500 * time.Millisecond, 500 * time.Millisecond}))
		})

		t.Run("stops on emit error", func(t *ftt.Test) {
			boom := errors.New("boom")
			n := 0
			err := Rows(ctx, testLog(), time.Second, func(r *Row) error {
				n++
				return boom
			})
			assert.Loosely(t, err, should.Equal(boom))
			assert.Loosely(t, n, should.Equal(1))
		})

		t.Run("log without data", func(t *ftt.Test) {
			err := Rows(ctx, &model.Log{UID: "x"}, time.Second, func(*Row) error {
				panic("unexpected row")
			})
			assert.Loosely(t, err, should.BeNil)
		})
	})

	ftt.Run("Rows stops when the context is done", t, func(t *ftt.Test) {
		ctx, _ := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)
		ctx, cancel := context.WithCancel(ctx)
		n := 0
		err := Rows(ctx, testLog(), time.Hour, func(*Row) error {
			n++
			cancel()
			return nil
		})
		assert.Loosely(t, err, should.Equal(context.Canceled))
		assert.Loosely(t, n, should.Equal(1))
	})
}

func TestServe(t *testing.T) {
	t.Parallel()

	ftt.Run("Serve", t, func(t *ftt.Test) {
		ctx, tc := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)
		tc.SetTimerCallback(func(d time.Duration, _ clock.Timer) { tc.Add(d) })

		var buf bytes.Buffer
		flushes := 0
		w := NewWriter(&buf, func() { flushes++ })

		t.Run("full sequence", func(t *ftt.Test) {
			err := Serve(ctx, w, Metadata{FileName: "gamma.xml", WellName: "Alpha"}, testLog(), time.Millisecond)
			assert.Loosely(t, err, should.BeNil)

			out := buf.String()
			var events []string
			for _, line := range strings.Split(out, "\n") {
				if ev, ok := strings.CutPrefix(line, "event: "); ok {
					events = append(events, ev)
				}
			}
			assert.Loosely(t, events, should.Match([]string{"metadata", "schema", "data", "data", "data", "end"}))
			assert.Loosely(t, flushes, should.Equal(6))
			assert.Loosely(t, out, should.ContainSubstring(`"file_name":"gamma.xml","well_name":"Alpha"`))
			assert.Loosely(t, out, should.ContainSubstring(`data: {"log_uid":"l1","curves":[{"mnemonic":"DEPT","isIndex":true},{"mnemonic":"GR"}]}`))
			assert.Loosely(t, out, should.ContainSubstring(`"index":1,`))
			assert.Loosely(t, strings.HasSuffix(out, "event: end\ndata: {\"type\":\"end\",\"message\":\"Stream complete\"}\n\n"), should.BeTrue)
		})

		t.Run("no data", func(t *ftt.Test) {
			err := Serve(ctx, w, Metadata{}, &model.Log{UID: "x"}, time.Millisecond)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, buf.String(), should.ContainSubstring("event: error\n"))
			assert.Loosely(t, buf.String(), should.ContainSubstring("No log data available"))
		})
	})
}
