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

// Package connector invokes the procedures of a remote WITSML store.
//
// The Connector owns the session with the store, retries transport failures
// with exponential backoff and turns non-success status codes into
// *ProtocolError values carrying the store's base message.
package connector

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"
	"go.chromium.org/luci/common/retry/transient"
)

// Defaults applied by New to zero Options fields.
const (
	DefaultVersion     = "1.4.1.1"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second

	// DefaultQueryOptions are sent with GetFromStore when none are given.
	DefaultQueryOptions = "returnElements=all"
)

// Options configure a Connector.
type Options struct {
	// URL of the store endpoint. Required.
	URL string
	// Username and Password are optional; the session is unauthenticated
	// without them.
	Username string
	Password string
	// Version is the WITSML data schema version.
	Version string
	// Timeout bounds every single procedure call, retries excluded.
	Timeout time.Duration
	// MaxAttempts is the number of tries before a transport error is
	// surfaced.
	MaxAttempts int
	// BaseDelay is the delay after the first failed attempt. It doubles on
	// every further attempt.
	BaseDelay time.Duration
	// QPS caps the rate of procedure calls, retries included. Zero means
	// unlimited.
	QPS float64

	// Transport is the HTTP transport of the SOAP store, for tests.
	Transport http.RoundTripper
	// Dial opens sessions, DialSOAP if nil.
	Dial Dialer
}

func (o Options) withDefaults() Options {
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.Dial == nil {
		o.Dial = DialSOAP
	}
	return o
}

// Connector executes store procedures with retries.
//
// The session is opened lazily by the first call, or by Connect.
type Connector struct {
	opts  Options
	limit *rate.Limiter

	m     sync.Mutex
	store Store
}

// New validates opts and returns a Connector. No session is opened.
func New(opts Options) (*Connector, error) {
	if opts.URL == "" {
		return nil, &ConfigurationError{Reason: "server URL is required"}
	}
	c := &Connector{opts: opts.withDefaults()}
	if c.opts.QPS > 0 {
		c.limit = rate.NewLimiter(rate.Limit(c.opts.QPS), 1)
	}
	return c, nil
}

// URL is the store endpoint.
func (c *Connector) URL() string { return c.opts.URL }

// Version is the WITSML data schema version queries are issued in.
func (c *Connector) Version() string { return c.opts.Version }

// Connect (re)opens the session and verifies it with GetVersion.
func (c *Connector) Connect(ctx context.Context) error {
	v, err := c.GetVersion(ctx)
	if err != nil {
		return errors.Fmt("connecting to WITSML store %s: %w", c.opts.URL, err)
	}
	logging.Infof(ctx, "Connected to WITSML store %s (supported versions %q)", c.opts.URL, v)
	return nil
}

// Disconnect releases the session. The next call opens a new one.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	logging.Infof(ctx, "Disconnected from WITSML store %s", c.opts.URL)
	return err
}

// Scoped connects, runs cb and disconnects, whatever cb returns.
func (c *Connector) Scoped(ctx context.Context, cb func(context.Context) error) (err error) {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if derr := c.Disconnect(ctx); derr != nil && err == nil {
			err = derr
		}
	}()
	return cb(ctx)
}

// CheckConnection is true if the store answers GetVersion.
func (c *Connector) CheckConnection(ctx context.Context) bool {
	if _, err := c.GetVersion(ctx); err != nil {
		logging.Warningf(ctx, "WITSML store %s is unreachable: %s", c.opts.URL, err)
		return false
	}
	return true
}

// GetVersion returns the comma separated data versions the store supports.
func (c *Connector) GetVersion(ctx context.Context) (v string, err error) {
	err = c.invoke(ctx, ProcGetVersion, func(actx context.Context, s Store) (err error) {
		v, err = s.GetVersion(actx)
		return
	})
	return
}

// GetCapabilities returns the store's capabilities document.
func (c *Connector) GetCapabilities(ctx context.Context) (string, error) {
	r, err := c.invokeReply(ctx, ProcGetCap, func(actx context.Context, s Store) (Reply, error) {
		return s.GetCap(actx, "dataVersion="+c.opts.Version)
	})
	return r.XML, err
}

// GetBaseMessage returns the store's text for a status code.
func (c *Connector) GetBaseMessage(ctx context.Context, code int) (msg string, err error) {
	err = c.invoke(ctx, ProcGetBaseMsg, func(actx context.Context, s Store) (err error) {
		msg, err = s.GetBaseMsg(actx, code)
		return
	})
	return
}

// GetFromStore runs a query and returns the resulting document. Empty
// options mean DefaultQueryOptions.
func (c *Connector) GetFromStore(ctx context.Context, objectType, query, options string) (string, error) {
	if options == "" {
		options = DefaultQueryOptions
	}
	r, err := c.invokeReply(ctx, ProcGetFromStore, func(actx context.Context, s Store) (Reply, error) {
		return s.GetFromStore(actx, objectType, query, options)
	})
	return r.XML, err
}

// AddToStore creates objects.
//
// Writes go through the same retry policy as reads. A write whose response
// was lost may be applied twice.
func (c *Connector) AddToStore(ctx context.Context, objectType, xml, options string) (int, error) {
	r, err := c.invokeReply(ctx, ProcAddToStore, func(actx context.Context, s Store) (Reply, error) {
		return s.AddToStore(actx, objectType, xml, options)
	})
	return r.Code, err
}

// UpdateInStore updates objects. See AddToStore on retries.
func (c *Connector) UpdateInStore(ctx context.Context, objectType, xml, options string) (int, error) {
	r, err := c.invokeReply(ctx, ProcUpdateInStore, func(actx context.Context, s Store) (Reply, error) {
		return s.UpdateInStore(actx, objectType, xml, options)
	})
	return r.Code, err
}

// DeleteFromStore deletes the objects matched by query. See AddToStore on
// retries.
func (c *Connector) DeleteFromStore(ctx context.Context, objectType, query, options string) (int, error) {
	r, err := c.invokeReply(ctx, ProcDeleteFromStore, func(actx context.Context, s Store) (Reply, error) {
		return s.DeleteFromStore(actx, objectType, query, options)
	})
	return r.Code, err
}

// session returns the open store session, dialing if there is none.
func (c *Connector) session(ctx context.Context) (Store, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	s, err := c.opts.Dial(ctx, c.opts)
	if err != nil {
		return nil, errors.Fmt("opening WITSML session with %s: %w", c.opts.URL, err)
	}
	c.store = s
	logging.Debugf(ctx, "Opened WITSML session with %s", c.opts.URL)
	return s, nil
}

// backoff is the retry.Factory of a single call: MaxAttempts-1 retries,
// starting at BaseDelay and doubling.
func (c *Connector) backoff() retry.Iterator {
	return &retry.ExponentialBackoff{
		Limited: retry.Limited{
			Delay:   c.opts.BaseDelay,
			Retries: c.opts.MaxAttempts - 1,
		},
		Multiplier: 2,
	}
}

// invoke runs cb against the session, retrying transport errors.
func (c *Connector) invoke(ctx context.Context, proc string, cb func(context.Context, Store) error) (err error) {
	start := clock.Now(ctx)
	defer func() { recordCall(ctx, proc, start, err) }()

	attempt := 0
	err = retry.Retry(ctx, transient.Only(c.backoff), func() error {
		attempt++
		if c.limit != nil {
			if err := c.limit.Wait(ctx); err != nil {
				return errors.Fmt("waiting for rate limit: %w", err)
			}
		}
		s, err := c.session(ctx)
		if err != nil {
			return err
		}
		actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
		if err := cb(actx, s); err != nil {
			if !IsTransport(err) && attemptTimedOut(ctx, actx, err) {
				err = &TransportError{Procedure: proc, Err: err}
			}
			if IsTransport(err) {
				return transient.Tag.Apply(err)
			}
			return err
		}
		return nil
	}, func(err error, d time.Duration) {
		logging.Warningf(ctx, "WITSML %s failed, retrying in %s (attempt %d/%d): %s",
			proc, d, attempt, c.opts.MaxAttempts, err)
	})
	if err != nil {
		logging.WithError(err).Errorf(ctx, "WITSML %s failed after %d attempt(s)", proc, attempt)
	}
	return err
}

// attemptTimedOut is true if err comes from the per-attempt deadline of actx
// rather than from the caller's ctx.
func attemptTimedOut(ctx, actx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) && actx.Err() != nil && ctx.Err() == nil
}

// invokeReply is invoke for procedures returning a status code. A
// non-success code becomes a *ProtocolError and is not retried.
func (c *Connector) invokeReply(ctx context.Context, proc string, cb func(context.Context, Store) (Reply, error)) (r Reply, err error) {
	err = c.invoke(ctx, proc, func(actx context.Context, s Store) (err error) {
		if r, err = cb(actx, s); err != nil {
			return err
		}
		if r.Code != SuccessCode {
			return &ProtocolError{Procedure: proc, Code: r.Code, Message: c.baseMessage(ctx, r.Code)}
		}
		return nil
	})
	return
}

// baseMessage resolves a status code to text, falling back to a generic
// message if the store can't.
func (c *Connector) baseMessage(ctx context.Context, code int) string {
	msg, err := c.GetBaseMessage(ctx, code)
	if err != nil || msg == "" {
		return fmt.Sprintf("Unknown error (code: %d)", code)
	}
	return msg
}
