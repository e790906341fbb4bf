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

package pool

import (
	"context"

	"go.chromium.org/luci/common/errors"

	"github.com/archishmannag/well-log-rag/witsml/client"
	"github.com/archishmannag/well-log-rag/witsml/connector"
	"github.com/archishmannag/well-log-rag/witsml/model"
	"github.com/archishmannag/well-log-rag/witsml/xmltree"
)

// Connection states reported by ServerInfo.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// ServerInfo describes the store a Service talks to.
type ServerInfo struct {
	Version      string       `json:"version"`
	Capabilities *xmltree.Map `json:"capabilities"`
	URL          string       `json:"url"`
	Status       string       `json:"status"`
}

// Service runs client operations on pooled clients.
type Service struct {
	pool *Pool
	url  string
}

// NewService creates a pool of clients for the store described by opts.
func NewService(opts connector.Options, capacity int) (*Service, error) {
	p, err := New(capacity, func() (*client.Client, error) {
		return client.Dial(opts)
	})
	if err != nil {
		return nil, err
	}
	return &Service{pool: p, url: opts.URL}, nil
}

// Pool is the underlying pool.
func (s *Service) Pool() *Pool { return s.pool }

// Wells returns all wells.
func (s *Service) Wells(ctx context.Context) (out *model.Wells, err error) {
	err = s.pool.WithClient(ctx, func(c *client.Client) (err error) {
		out, err = c.Wells(ctx)
		return
	})
	return
}

// Well returns one well.
func (s *Service) Well(ctx context.Context, uid string) (out *model.Well, err error) {
	err = s.pool.WithClient(ctx, func(c *client.Client) (err error) {
		out, err = c.Well(ctx, uid)
		return
	})
	return
}

// WellsBatch fetches wells by uid in parallel, see Pool.WellsBatch.
func (s *Service) WellsBatch(ctx context.Context, uids []string) (map[string]*model.Well, error) {
	return s.pool.WellsBatch(ctx, uids)
}

// Wellbores returns the wellbores of a well, or all of them if wellUID is
// empty.
func (s *Service) Wellbores(ctx context.Context, wellUID string) (out *model.Wellbores, err error) {
	err = s.pool.WithClient(ctx, func(c *client.Client) (err error) {
		out, err = c.Wellbores(ctx, wellUID)
		return
	})
	return
}

// Logs returns the logs of a wellbore.
func (s *Service) Logs(ctx context.Context, wellUID, wellboreUID string) (out *model.Logs, err error) {
	err = s.pool.WithClient(ctx, func(c *client.Client) (err error) {
		out, err = c.Logs(ctx, wellUID, wellboreUID)
		return
	})
	return
}

// LogData returns one log with its data.
func (s *Service) LogData(ctx context.Context, wellUID, wellboreUID, logUID string, r client.IndexRange) (out *model.Log, err error) {
	err = s.pool.WithClient(ctx, func(c *client.Client) (err error) {
		out, err = c.LogData(ctx, wellUID, wellboreUID, logUID, r)
		return
	})
	return
}

// CheckConnection is true if the store is reachable.
func (s *Service) CheckConnection(ctx context.Context) (ok bool) {
	err := s.pool.WithClient(ctx, func(c *client.Client) error {
		ok = c.CheckConnection(ctx)
		return nil
	})
	return err == nil && ok
}

// ServerInfo reports the store's version, capabilities and reachability.
func (s *Service) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	info := &ServerInfo{URL: s.url}
	err := s.pool.WithClient(ctx, func(c *client.Client) (err error) {
		if info.Version, err = c.Version(ctx); err != nil {
			return errors.Fmt("version: %w", err)
		}
		if info.Capabilities, err = c.Capabilities(ctx); err != nil {
			return errors.Fmt("capabilities: %w", err)
		}
		info.Status = StatusDisconnected
		if c.CheckConnection(ctx) {
			info.Status = StatusConnected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ClearCache clears the caches of all idle clients.
func (s *Service) ClearCache(ctx context.Context) {
	s.pool.ClearCache(ctx)
}
