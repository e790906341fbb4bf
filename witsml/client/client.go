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

// Package client is a caching facade over a WITSML store.
//
// A Client runs the connector, the parser and the processor for each typed
// read operation and memoizes the results for a per-operation TTL. Every
// Client owns its cache; nothing is shared between instances.
package client

import (
	"context"

	"go.chromium.org/luci/common/data/caching/lru"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/archishmannag/well-log-rag/witsml/connector"
	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/processor"
	"github.com/archishmannag/well-log-rag/witsml/xmltree"
)

// ErrNotFound is returned when a requested object is not in the store.
var ErrNotFound = errors.New("not found in WITSML store")

// UnexpectedPayloadError is returned when the store answers a query with a
// document of another type.
type UnexpectedPayloadError struct {
	Want model.DataType
	Got  model.DataType
}

func (e *UnexpectedPayloadError) Error() string {
	return "expected a " + string(e.Want) + " payload, got " + string(e.Got)
}

// Client runs typed, cached queries against one store.
type Client struct {
	conn  *connector.Connector
	cache *lru.Cache[string, any]
}

// New returns a Client over conn.
func New(conn *connector.Connector) *Client {
	return &Client{
		conn:  conn,
		cache: lru.New[string, any](cacheSize),
	}
}

// Dial validates opts and returns a Client with its own connector.
func Dial(opts connector.Options) (*Client, error) {
	conn, err := connector.New(opts)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Connector is the connector the client issues calls through.
func (c *Client) Connector() *connector.Connector { return c.conn }

// ClearCache drops all cached results.
func (c *Client) ClearCache(ctx context.Context) {
	c.cache.Reset()
	logging.Infof(ctx, "WITSML client cache cleared")
}

// CheckConnection is true if the store is reachable. It is never cached.
func (c *Client) CheckConnection(ctx context.Context) bool {
	return c.conn.CheckConnection(ctx)
}

// Version returns the data versions the store supports.
func (c *Client) Version(ctx context.Context) (string, error) {
	return memoize(ctx, c, "version", VersionTTL, nil, func() (string, error) {
		return c.conn.GetVersion(ctx)
	})
}

// Capabilities returns the parsed capabilities document of the store.
func (c *Client) Capabilities(ctx context.Context) (*xmltree.Map, error) {
	return memoize(ctx, c, "capabilities", CapabilitiesTTL, nil, func() (*xmltree.Map, error) {
		raw, err := c.conn.GetCapabilities(ctx)
		if err != nil {
			return nil, err
		}
		tree := xmltree.Parse(ctx, raw)
		if perr, ok := xmltree.Degraded(tree); ok {
			return nil, perr
		}
		return tree, nil
	})
}

// Wells returns all wells.
func (c *Client) Wells(ctx context.Context) (*model.Wells, error) {
	return memoize(ctx, c, "wells", WellsTTL, nil, func() (*model.Wells, error) {
		env, err := c.fetch(ctx, model.DataTypeWell, newQuery(c.conn.Version(), "well", queryObject{}))
		if err != nil {
			return nil, err
		}
		return env.Content.Wells, nil
	})
}

// Well returns the well with the given uid, or ErrNotFound.
func (c *Client) Well(ctx context.Context, uid string) (*model.Well, error) {
	return memoize(ctx, c, "well", WellsTTL, []string{uid}, func() (*model.Well, error) {
		env, err := c.fetch(ctx, model.DataTypeWell, newQuery(c.conn.Version(), "well", queryObject{UID: uid}))
		if err != nil {
			return nil, err
		}
		w, ok := env.Content.Wells.Get(uid)
		if !ok {
			return nil, errors.Fmt("well %q: %w", uid, ErrNotFound)
		}
		return w, nil
	})
}

// Wellbores returns the wellbores of a well, or all wellbores if wellUID is
// empty.
func (c *Client) Wellbores(ctx context.Context, wellUID string) (*model.Wellbores, error) {
	return memoize(ctx, c, "wellbores", WellboresTTL, []string{wellUID}, func() (*model.Wellbores, error) {
		q := newQuery(c.conn.Version(), "wellbore", queryObject{UIDWell: wellUID})
		env, err := c.fetch(ctx, model.DataTypeWellbore, q)
		if err != nil {
			return nil, err
		}
		return env.Content.Wellbores, nil
	})
}

// Logs returns the logs of a wellbore, headers and data as the store returns
// them.
func (c *Client) Logs(ctx context.Context, wellUID, wellboreUID string) (*model.Logs, error) {
	return memoize(ctx, c, "logs", LogsTTL, []string{wellUID, wellboreUID}, func() (*model.Logs, error) {
		q := newQuery(c.conn.Version(), "log", queryObject{UIDWell: wellUID, UIDWellbore: wellboreUID})
		env, err := c.fetch(ctx, model.DataTypeLog, q)
		if err != nil {
			return nil, err
		}
		return env.Content.Logs, nil
	})
}

// LogData returns one log with its data rows, restricted to r if both of its
// ends are set. It returns ErrNotFound if the store has no such log.
func (c *Client) LogData(ctx context.Context, wellUID, wellboreUID, logUID string, r IndexRange) (*model.Log, error) {
	args := []string{wellUID, wellboreUID, logUID, r.Start, r.End}
	return memoize(ctx, c, "logData", LogDataTTL, args, func() (*model.Log, error) {
		q := newQuery(c.conn.Version(), "log", queryObject{
			UIDWell:     wellUID,
			UIDWellbore: wellboreUID,
			UID:         logUID,
		}).withRange(r)
		env, err := c.fetch(ctx, model.DataTypeLog, q)
		if err != nil {
			return nil, err
		}
		l, ok := env.Content.Logs.Get(logUID)
		if !ok {
			return nil, errors.Fmt("log %q in wellbore %q of well %q: %w", logUID, wellboreUID, wellUID, ErrNotFound)
		}
		return l, nil
	})
}

// fetch runs a query through the whole pipeline and checks the result type.
func (c *Client) fetch(ctx context.Context, want model.DataType, q *query) (*processor.Envelope, error) {
	raw, err := c.conn.GetFromStore(ctx, string(want), q.String(), "")
	if err != nil {
		return nil, err
	}
	tree := xmltree.Parse(ctx, raw)
	if perr, ok := xmltree.Degraded(tree); ok {
		return nil, perr
	}
	env, err := processor.Process(ctx, tree)
	if err != nil {
		return nil, err
	}
	if env.DataType != want {
		return nil, &UnexpectedPayloadError{Want: want, Got: env.DataType}
	}
	return env, nil
}
