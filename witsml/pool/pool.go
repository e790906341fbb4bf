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

// Package pool manages a bounded set of WITSML clients and fans out
// independent requests across them.
package pool

import (
	"context"
	"sync"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/parallel"

	"github.com/archishmannag/well-log-rag/witsml/client"
	"github.com/archishmannag/well-log-rag/witsml/model"
)

// DefaultCapacity is the number of idle clients a pool keeps by default.
const DefaultCapacity = 5

// Factory creates a client.
type Factory func() (*client.Client, error)

// Pool hands out clients for exclusive use.
//
// Acquire never blocks on the pool: when no client is idle a new one is
// created, so more than Capacity clients may be in use at once. Only
// Capacity of them are kept when released.
type Pool struct {
	newClient Factory
	capacity  int

	m    sync.Mutex
	idle []*client.Client
}

// New creates a pool holding one client. It fails if that client can't be
// created.
func New(capacity int, f Factory) (*Pool, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := f()
	if err != nil {
		return nil, err
	}
	return &Pool{
		newClient: f,
		capacity:  capacity,
		idle:      []*client.Client{c},
	}, nil
}

// Capacity is the maximum number of idle clients.
func (p *Pool) Capacity() int { return p.capacity }

// Size is the number of idle clients.
func (p *Pool) Size() int {
	p.m.Lock()
	defer p.m.Unlock()
	return len(p.idle)
}

// Acquire returns an idle client, or a new one if there is none.
func (p *Pool) Acquire(ctx context.Context) (*client.Client, error) {
	p.m.Lock()
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.m.Unlock()
		return c, nil
	}
	p.m.Unlock()

	c, err := p.newClient()
	if err != nil {
		return nil, errors.Fmt("creating WITSML client: %w", err)
	}
	logging.Debugf(ctx, "Created a WITSML client, pool is empty")
	return c, nil
}

// Release returns c to the pool. If the pool is full c is disconnected and
// dropped.
func (p *Pool) Release(ctx context.Context, c *client.Client) {
	p.m.Lock()
	if len(p.idle) < p.capacity {
		p.idle = append(p.idle, c)
		p.m.Unlock()
		return
	}
	p.m.Unlock()

	if err := c.Connector().Disconnect(ctx); err != nil {
		logging.WithError(err).Warningf(ctx, "Failed to disconnect a surplus WITSML client")
	}
}

// WithClient runs cb with a client that is released when cb returns.
func (p *Pool) WithClient(ctx context.Context, cb func(*client.Client) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(ctx, c)
	return cb(c)
}

// Close disconnects and drops every idle client. Clients in use are
// disconnected when released to a full pool, or stay open.
func (p *Pool) Close(ctx context.Context) {
	p.m.Lock()
	idle := p.idle
	p.idle = nil
	p.m.Unlock()

	for _, c := range idle {
		if err := c.Connector().Disconnect(ctx); err != nil {
			logging.WithError(err).Warningf(ctx, "Failed to disconnect a WITSML client")
		}
	}
}

// ClearCache clears the cache of every idle client. Clients in use keep
// theirs.
func (p *Pool) ClearCache(ctx context.Context) {
	p.m.Lock()
	defer p.m.Unlock()
	for _, c := range p.idle {
		c.ClearCache(ctx)
	}
	logging.Infof(ctx, "Cleared cache on %d idle WITSML clients", len(p.idle))
}

// WellsBatch fetches wells by uid in parallel, on at most
// min(len(uids), Capacity) clients at a time.
//
// Wells that don't exist are left out of the result. If some fetches fail,
// the wells that were found are returned with the first error.
func (p *Pool) WellsBatch(ctx context.Context, uids []string) (map[string]*model.Well, error) {
	seen := stringset.New(len(uids))
	var todo []string
	for _, uid := range uids {
		if seen.Add(uid) {
			todo = append(todo, uid)
		}
	}
	found := make(map[string]*model.Well, len(todo))
	if len(todo) == 0 {
		return found, nil
	}

	var m sync.Mutex
	err := parallel.WorkPool(min(len(todo), p.capacity), func(work chan<- func() error) {
		for _, uid := range todo {
			work <- func() error {
				return p.WithClient(ctx, func(c *client.Client) error {
					w, err := c.Well(ctx, uid)
					switch {
					case errors.Is(err, client.ErrNotFound):
						return nil
					case err != nil:
						return err
					}
					m.Lock()
					found[uid] = w
					m.Unlock()
					return nil
				})
			}
		}
	})

	var merr errors.MultiError
	if errors.As(err, &merr) {
		err = merr.First()
	}
	if err != nil {
		logging.WithError(err).Warningf(ctx, "Batch fetch of %d wells found %d", len(todo), len(found))
	}
	return found, err
}
