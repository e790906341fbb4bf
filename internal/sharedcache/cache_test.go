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

package sharedcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"

	"go.chromium.org/luci/common/clock/testclock"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
	"go.chromium.org/luci/server/redisconn"

	"github.com/archishmannag/well-log-rag/witsml/connector"
)

// countingStore answers GetFromStore with a fixed reply and counts calls.
type countingStore struct {
	connector.Store // nil, only GetFromStore is used

	reply connector.Reply
	err   error
	calls int
}

func (s *countingStore) GetFromStore(ctx context.Context, objectType, query, options string) (connector.Reply, error) {
	s.calls++
	return s.reply, s.err
}

func TestStore(t *testing.T) {
	t.Parallel()

	ftt.Run("Store", t, func(t *ftt.Test) {
		s, err := miniredis.Run()
		assert.Loosely(t, err, should.BeNil)
		defer s.Close()

		ctx, _ := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)
		ctx = redisconn.UsePool(ctx, &redis.Pool{
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", s.Addr())
			},
		})

		inner := &countingStore{reply: connector.Reply{Code: connector.SuccessCode, XML: "<wells/>"}}
		dial := Dialer(func(context.Context, connector.Options) (connector.Store, error) {
			return inner, nil
		}, time.Minute)
		store, err := dial(ctx, connector.Options{})
		assert.Loosely(t, err, should.BeNil)

		t.Run("second call is served from Redis", func(t *ftt.Test) {
			r, err := store.GetFromStore(ctx, "well", "<wells/>", "returnElements=all")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, r.XML, should.Equal("<wells/>"))
			r, err = store.GetFromStore(ctx, "well", "<wells/>", "returnElements=all")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, r.Code, should.Equal(connector.SuccessCode))
			assert.Loosely(t, r.XML, should.Equal("<wells/>"))
			assert.Loosely(t, inner.calls, should.Equal(1))

			key := Key("well", "<wells/>", "returnElements=all")
			assert.Loosely(t, s.Exists(key), should.BeTrue)
			assert.Loosely(t, s.TTL(key), should.Equal(time.Minute))
		})

		t.Run("arguments are part of the key", func(t *ftt.Test) {
			_, _ = store.GetFromStore(ctx, "well", "<wells/>", "")
			_, _ = store.GetFromStore(ctx, "log", "<wells/>", "")
			assert.Loosely(t, inner.calls, should.Equal(2))
			assert.Loosely(t, Key("a", "b|c", ""), should.NotEqual(Key("a|b", "c", "")))
		})

		t.Run("entries expire", func(t *ftt.Test) {
			_, _ = store.GetFromStore(ctx, "well", "q", "")
			s.FastForward(2 * time.Minute)
			_, _ = store.GetFromStore(ctx, "well", "q", "")
			assert.Loosely(t, inner.calls, should.Equal(2))
		})

		t.Run("failed replies are not cached", func(t *ftt.Test) {
			inner.reply = connector.Reply{Code: -401, SuppMsg: "bad query"}
			r, err := store.GetFromStore(ctx, "well", "q", "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, r.Code, should.Equal(-401))
			_, _ = store.GetFromStore(ctx, "well", "q", "")
			assert.Loosely(t, inner.calls, should.Equal(2))
			assert.Loosely(t, s.Keys(), should.HaveLength(0))
		})

		t.Run("Redis failures fall back to the store", func(t *ftt.Test) {
			s.Close()
			r, err := store.GetFromStore(ctx, "well", "q", "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, r.XML, should.Equal("<wells/>"))
			assert.Loosely(t, inner.calls, should.Equal(1))
		})

		t.Run("without Redis", func(t *ftt.Test) {
			store, err := dial(context.Background(), connector.Options{})
			assert.Loosely(t, err, should.BeNil)
			_, _ = store.GetFromStore(context.Background(), "well", "q", "")
			_, _ = store.GetFromStore(context.Background(), "well", "q", "")
			assert.Loosely(t, inner.calls, should.Equal(2))
		})

		t.Run("Purge", func(t *ftt.Test) {
			_, _ = store.GetFromStore(ctx, "well", "a", "")
			_, _ = store.GetFromStore(ctx, "well", "b", "")
			assert.NoErr(t, s.Set("unrelated", "x"))
			n, err := Purge(ctx)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, n, should.Equal(2))
			assert.Loosely(t, s.Keys(), should.Match([]string{"unrelated"}))
		})
	})
}
