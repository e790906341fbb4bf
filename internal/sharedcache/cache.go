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

// Package sharedcache keeps store responses in Redis so that several service
// instances can reuse them.
//
// Only successful GetFromStore replies are cached. Entries are written with
// SET EX, so the last writer wins and no further coordination between
// instances exists. Redis is optional: without a pool in the context, or when
// Redis fails, calls go straight to the store.
package sharedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/vmihailenco/msgpack/v5"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/server/redisconn"

	"github.com/archishmannag/well-log-rag/witsml/connector"
)

// keyPrefix namespaces cache keys in a shared Redis.
const keyPrefix = "witsml:getfromstore:"

// entry is the stored form of a reply.
type entry struct {
	Code     int       `msgpack:"code"`
	XML      string    `msgpack:"xml"`
	StoredAt time.Time `msgpack:"storedAt"`
}

// errMiss is returned by read for an absent entry.
var errMiss = errors.New("not cached")

// Key returns the Redis key of a GetFromStore call.
func Key(objectType, query, options string) string {
	h := sha256.New()
	h.Write([]byte(objectType))
	h.Write([]byte{'|'})
	h.Write([]byte(query))
	h.Write([]byte{'|'})
	h.Write([]byte(options))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Dialer wraps dial so that the stores it opens read through the cache.
//
// The Redis pool is taken from the context of each call, see
// redisconn.UsePool.
func Dialer(dial connector.Dialer, ttl time.Duration) connector.Dialer {
	if dial == nil {
		dial = connector.DialSOAP
	}
	return func(ctx context.Context, opts connector.Options) (connector.Store, error) {
		s, err := dial(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &Store{Store: s, ttl: ttl}, nil
	}
}

// Store is a connector.Store whose GetFromStore is cached in Redis.
type Store struct {
	connector.Store
	ttl time.Duration
}

// GetFromStore implements connector.Store.
func (s *Store) GetFromStore(ctx context.Context, objectType, query, options string) (connector.Reply, error) {
	key := Key(objectType, query, options)
	switch e, err := read(ctx, key); {
	case err == nil:
		logging.Debugf(ctx, "Shared cache hit for %s (stored %s)", objectType, e.StoredAt)
		return connector.Reply{Code: e.Code, XML: e.XML}, nil
	case err != errMiss && err != redisconn.ErrNotConfigured:
		logging.Warningf(ctx, "Shared cache: failed to read %s: %s", key, err)
	}

	reply, err := s.Store.GetFromStore(ctx, objectType, query, options)
	if err != nil || reply.Code != connector.SuccessCode {
		return reply, err
	}
	s.tryWrite(ctx, key, &entry{Code: reply.Code, XML: reply.XML, StoredAt: clock.Now(ctx).UTC()})
	return reply, nil
}

func (s *Store) tryWrite(ctx context.Context, key string, e *entry) {
	switch err := write(ctx, key, e, s.ttl); {
	case err == redisconn.ErrNotConfigured:

	case err != nil:
		logging.Warningf(ctx, "Shared cache: failed to write %s: %s", key, err)
	}
}

func read(ctx context.Context, key string) (*entry, error) {
	conn, err := redisconn.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	blob, err := redis.Bytes(conn.Do("GET", key))
	switch {
	case err == redis.ErrNil:
		return nil, errMiss
	case err != nil:
		return nil, err
	}
	e := &entry{}
	if err := msgpack.Unmarshal(blob, e); err != nil {
		return nil, errors.Fmt("decoding entry: %w", err)
	}
	return e, nil
}

func write(ctx context.Context, key string, e *entry, ttl time.Duration) error {
	conn, err := redisconn.Get(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	blob, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}
	secs := int(ttl.Seconds())
	if secs < 1 {
		secs = 1
	}
	_, err = conn.Do("SET", key, blob, "EX", secs)
	return err
}

// Purge removes every cached response.
func Purge(ctx context.Context) (int, error) {
	conn, err := redisconn.Get(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	keys, err := redis.Strings(conn.Do("KEYS", keyPrefix+"*"))
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	args := redis.Args{}.AddFlat(keys)
	return redis.Int(conn.Do("DEL", args...))
}
