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

package client

import (
	"context"
	"fmt"
	"time"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/tsmon/field"
	"go.chromium.org/luci/common/tsmon/metric"
)

// Cache lifetimes per operation.
const (
	VersionTTL      = time.Hour
	CapabilitiesTTL = time.Hour
	WellsTTL        = 10 * time.Minute
	WellboresTTL    = 10 * time.Minute
	LogsTTL         = 5 * time.Minute
	LogDataTTL      = 5 * time.Minute
)

// cacheSize bounds the number of results a single client keeps. Past it the
// least recently used result is dropped before its TTL runs out.
const cacheSize = 1024

var cacheCounter = metric.NewCounter(
	"witsml/client/cache",
	"Count of cached WITSML client operations by outcome",
	nil,
	field.String("operation"),
	field.String("result"), // hit | miss
)

// memoize returns the result of cb for (op, args), calling it only if there
// is no live cached result. Errors are not cached.
func memoize[T any](ctx context.Context, c *Client, op string, ttl time.Duration, args []string, cb func() (T, error)) (T, error) {
	key := fmt.Sprintf("%s%q", op, args)
	miss := false
	v, err := c.cache.GetOrCreate(ctx, key, func() (any, time.Duration, error) {
		miss = true
		v, err := cb()
		return v, ttl, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if miss {
		cacheCounter.Add(ctx, 1, op, "miss")
	} else {
		cacheCounter.Add(ctx, 1, op, "hit")
		logging.Debugf(ctx, "Cache hit for %s", key)
	}
	return v.(T), nil
}
