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

package connector

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/clock/testclock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
	"go.chromium.org/luci/common/tsmon"
)

// fakeStore is an in-memory Store. Unset hooks succeed.
type fakeStore struct {
	m      sync.Mutex
	calls  map[string]int
	closed int

	version    func(ctx context.Context) (string, error)
	baseMsg    func(code int) (string, error)
	fromStore  func(objectType, query, options string) (Reply, error)
	addToStore func(objectType, xml, options string) (Reply, error)

	lastCapOptions string
}

func (f *fakeStore) count(proc string) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[proc]++
}

func (f *fakeStore) Calls(proc string) int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.calls[proc]
}

func (f *fakeStore) GetVersion(ctx context.Context) (string, error) {
	f.count(ProcGetVersion)
	if f.version != nil {
		return f.version(ctx)
	}
	return "1.3.1.1,1.4.1.1", nil
}

func (f *fakeStore) GetCap(ctx context.Context, options string) (Reply, error) {
	f.count(ProcGetCap)
	f.lastCapOptions = options
	return Reply{Code: SuccessCode, XML: "<capServers/>"}, nil
}

func (f *fakeStore) GetBaseMsg(ctx context.Context, code int) (string, error) {
	f.count(ProcGetBaseMsg)
	if f.baseMsg != nil {
		return f.baseMsg(code)
	}
	return "", nil
}

func (f *fakeStore) GetFromStore(ctx context.Context, objectType, query, options string) (Reply, error) {
	f.count(ProcGetFromStore)
	if f.fromStore != nil {
		return f.fromStore(objectType, query, options)
	}
	return Reply{Code: SuccessCode, XML: "<wells/>"}, nil
}

func (f *fakeStore) AddToStore(ctx context.Context, objectType, xml, options string) (Reply, error) {
	f.count(ProcAddToStore)
	if f.addToStore != nil {
		return f.addToStore(objectType, xml, options)
	}
	return Reply{Code: SuccessCode}, nil
}

func (f *fakeStore) UpdateInStore(ctx context.Context, objectType, xml, options string) (Reply, error) {
	f.count(ProcUpdateInStore)
	return Reply{Code: SuccessCode}, nil
}

func (f *fakeStore) DeleteFromStore(ctx context.Context, objectType, query, options string) (Reply, error) {
	f.count(ProcDeleteFromStore)
	return Reply{Code: SuccessCode}, nil
}

func (f *fakeStore) Close() error {
	f.m.Lock()
	defer f.m.Unlock()
	f.closed++
	return nil
}

// newTestConnector returns a Connector over store, and a function returning
// the number of sessions dialed so far.
func newTestConnector(t testing.TB, store *fakeStore) (*Connector, func() int) {
	var m sync.Mutex
	dials := 0
	c, err := New(Options{
		URL: "https://witsml.example.com/store",
		Dial: func(ctx context.Context, opts Options) (Store, error) {
			m.Lock()
			defer m.Unlock()
			dials++
			return store, nil
		},
	})
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	return c, func() int {
		m.Lock()
		defer m.Unlock()
		return dials
	}
}

// useSleepRecorder makes every timer on the test clock fire immediately and
// returns the recorded delays.
func useSleepRecorder(tc testclock.TestClock) func() []time.Duration {
	var m sync.Mutex
	var delays []time.Duration
	tc.SetTimerCallback(func(d time.Duration, t clock.Timer) {
		m.Lock()
		delays = append(delays, d)
		m.Unlock()
		tc.Add(d)
	})
	return func() []time.Duration {
		m.Lock()
		defer m.Unlock()
		return append([]time.Duration(nil), delays...)
	}
}

func TestConnector(t *testing.T) {
	t.Parallel()

	ftt.Run("Connector", t, func(t *ftt.Test) {
		ctx, tc := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)
		ctx, _ = tsmon.WithDummyInMemory(ctx)
		delays := useSleepRecorder(tc)

		store := &fakeStore{}
		c, dials := newTestConnector(t, store)

		t.Run("requires a URL", func(t *ftt.Test) {
			_, err := New(Options{})
			var cerr *ConfigurationError
			assert.Loosely(t, errors.As(err, &cerr), should.BeTrue)
		})

		t.Run("applies defaults", func(t *ftt.Test) {
			assert.Loosely(t, c.Version(), should.Equal(DefaultVersion))
			assert.Loosely(t, c.opts.MaxAttempts, should.Equal(DefaultMaxAttempts))
			assert.Loosely(t, c.opts.BaseDelay, should.Equal(DefaultBaseDelay))
			assert.Loosely(t, c.opts.Timeout, should.Equal(DefaultTimeout))
		})

		t.Run("rate limit gives up past the deadline", func(t *ftt.Test) {
			limited, err := New(Options{
				URL: "https://witsml.example.com/store",
				QPS: 0.001,
				Dial: func(ctx context.Context, opts Options) (Store, error) {
					return store, nil
				},
			})
			assert.Loosely(t, err, should.BeNil)
			store.version = func(context.Context) (string, error) { return "1.4.1.1", nil }

			_, err = limited.GetVersion(ctx)
			assert.Loosely(t, err, should.BeNil)

			dctx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			_, err = limited.GetVersion(dctx)
			assert.Loosely(t, err, should.ErrLike("rate limit"))
			assert.Loosely(t, store.Calls(ProcGetVersion), should.Equal(1))
		})

		t.Run("retries transport errors then succeeds", func(t *ftt.Test) {
			failures := 2
			store.version = func(context.Context) (string, error) {
				if failures > 0 {
					failures--
					return "", &TransportError{Procedure: ProcGetVersion, Err: errors.New("connection refused")}
				}
				return "1.4.1.1", nil
			}
			v, err := c.GetVersion(ctx)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, v, should.Equal("1.4.1.1"))
			assert.Loosely(t, store.Calls(ProcGetVersion), should.Equal(3))
			assert.Loosely(t, delays(), should.Match([]time.Duration{2 * time.Second, 4 * time.Second}))
			assert.Loosely(t, callsCounter.Get(ctx, ProcGetVersion, "OK"), should.Equal(int64(1)))
		})

		t.Run("surfaces the last transport error", func(t *ftt.Test) {
			store.version = func(context.Context) (string, error) {
				return "", &TransportError{Procedure: ProcGetVersion, Err: errors.New("timeout")}
			}
			_, err := c.GetVersion(ctx)
			assert.Loosely(t, IsTransport(err), should.BeTrue)
			assert.Loosely(t, err, should.ErrLike("timeout"))
			assert.Loosely(t, store.Calls(ProcGetVersion), should.Equal(DefaultMaxAttempts))
			got := delays()
			for i := 1; i < len(got); i++ {
				assert.Loosely(t, got[i] >= got[i-1], should.BeTrue)
			}
			assert.Loosely(t, callsCounter.Get(ctx, ProcGetVersion, "transport"), should.Equal(int64(1)))
		})

		t.Run("retries attempts cut off by the call timeout", func(t *ftt.Test) {
			hung, err := New(Options{
				URL:     "https://witsml.example.com/store",
				Timeout: 10 * time.Millisecond,
				Dial: func(ctx context.Context, opts Options) (Store, error) {
					return store, nil
				},
			})
			assert.Loosely(t, err, should.BeNil)
			store.version = func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}
			_, err = hung.GetVersion(ctx)
			assert.Loosely(t, IsTransport(err), should.BeTrue)
			assert.Loosely(t, errors.Is(err, context.DeadlineExceeded), should.BeTrue)
			assert.Loosely(t, store.Calls(ProcGetVersion), should.Equal(DefaultMaxAttempts))
			assert.Loosely(t, callsCounter.Get(ctx, ProcGetVersion, "transport"), should.Equal(int64(1)))
		})

		t.Run("caller cancellation is not retried", func(t *ftt.Test) {
			cctx, cancel := context.WithCancel(ctx)
			store.version = func(context.Context) (string, error) {
				cancel()
				return "", context.Canceled
			}
			_, err := c.GetVersion(cctx)
			assert.Loosely(t, IsTransport(err), should.BeFalse)
			assert.Loosely(t, store.Calls(ProcGetVersion), should.Equal(1))
		})

		t.Run("does not retry other errors", func(t *ftt.Test) {
			store.version = func(context.Context) (string, error) { return "", errors.New("boom") }
			_, err := c.GetVersion(ctx)
			assert.Loosely(t, err, should.ErrLike("boom"))
			assert.Loosely(t, store.Calls(ProcGetVersion), should.Equal(1))
			assert.Loosely(t, delays(), should.BeEmpty)
		})

		t.Run("does not retry SOAP faults", func(t *ftt.Test) {
			store.version = func(context.Context) (string, error) {
				return "", &FaultError{Code: "soap:Server", Reason: "internal"}
			}
			_, err := c.GetVersion(ctx)
			var fe *FaultError
			assert.Loosely(t, errors.As(err, &fe), should.BeTrue)
			assert.Loosely(t, store.Calls(ProcGetVersion), should.Equal(1))
			assert.Loosely(t, callsCounter.Get(ctx, ProcGetVersion, "fault"), should.Equal(int64(1)))
		})

		t.Run("non-success codes are protocol errors", func(t *ftt.Test) {
			store.fromStore = func(objectType, query, options string) (Reply, error) {
				return Reply{Code: 7}, nil
			}
			store.baseMsg = func(code int) (string, error) {
				assert.Loosely(t, code, should.Equal(7))
				return "Invalid XML", nil
			}
			_, err := c.GetFromStore(ctx, "well", "<wells/>", "")
			var pe *ProtocolError
			assert.Loosely(t, errors.As(err, &pe), should.BeTrue)
			assert.Loosely(t, pe.Code, should.Equal(7))
			assert.Loosely(t, pe.Message, should.Equal("Invalid XML"))
			assert.Loosely(t, pe.Procedure, should.Equal(ProcGetFromStore))
			assert.Loosely(t, store.Calls(ProcGetFromStore), should.Equal(1))
			assert.Loosely(t, callsCounter.Get(ctx, ProcGetFromStore, "protocol"), should.Equal(int64(1)))
		})

		t.Run("falls back to a generic base message", func(t *ftt.Test) {
			store.fromStore = func(objectType, query, options string) (Reply, error) {
				return Reply{Code: -401}, nil
			}
			store.baseMsg = func(code int) (string, error) { return "", errors.New("unsupported") }
			_, err := c.GetFromStore(ctx, "well", "<wells/>", "")
			var pe *ProtocolError
			assert.Loosely(t, errors.As(err, &pe), should.BeTrue)
			assert.Loosely(t, pe.Message, should.Equal("Unknown error (code: -401)"))
		})

		t.Run("query options", func(t *ftt.Test) {
			var got []string
			store.fromStore = func(objectType, query, options string) (Reply, error) {
				got = append(got, options)
				return Reply{Code: SuccessCode, XML: "<wells/>"}, nil
			}
			out, err := c.GetFromStore(ctx, "well", "<wells/>", "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, out, should.Equal("<wells/>"))
			_, err = c.GetFromStore(ctx, "well", "<wells/>", "returnElements=id-only")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, got, should.Match([]string{DefaultQueryOptions, "returnElements=id-only"}))

			_, err = c.GetCapabilities(ctx)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, store.lastCapOptions, should.Equal("dataVersion=1.4.1.1"))
		})

		t.Run("writes return the status code", func(t *ftt.Test) {
			code, err := c.AddToStore(ctx, "well", "<wells/>", "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, code, should.Equal(SuccessCode))

			store.addToStore = func(objectType, xml, options string) (Reply, error) {
				return Reply{Code: -405}, nil
			}
			store.baseMsg = func(code int) (string, error) { return "Data object uid already exists", nil }
			code, err = c.AddToStore(ctx, "well", "<wells/>", "")
			assert.Loosely(t, code, should.Equal(-405))
			assert.Loosely(t, err, should.ErrLike("Data object uid already exists"))

			code, err = c.UpdateInStore(ctx, "well", "<wells/>", "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, code, should.Equal(SuccessCode))
			code, err = c.DeleteFromStore(ctx, "well", "<wells/>", "")
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, code, should.Equal(SuccessCode))
		})

		t.Run("session lifecycle", func(t *ftt.Test) {
			assert.Loosely(t, c.Connect(ctx), should.BeNil)
			assert.Loosely(t, c.Connect(ctx), should.BeNil)
			assert.Loosely(t, dials(), should.Equal(1))

			assert.Loosely(t, c.Disconnect(ctx), should.BeNil)
			assert.Loosely(t, store.closed, should.Equal(1))
			assert.Loosely(t, c.Disconnect(ctx), should.BeNil)
			assert.Loosely(t, store.closed, should.Equal(1))

			_, err := c.GetVersion(ctx)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, dials(), should.Equal(2))
		})

		t.Run("scoped disconnects on error", func(t *ftt.Test) {
			err := c.Scoped(ctx, func(ctx context.Context) error {
				_, err := c.GetVersion(ctx)
				assert.Loosely(t, err, should.BeNil)
				return errors.New("callback failed")
			})
			assert.Loosely(t, err, should.ErrLike("callback failed"))
			assert.Loosely(t, store.closed, should.Equal(1))
			assert.Loosely(t, c.store, should.BeNil)
		})

		t.Run("scoped fails fast if the store is down", func(t *ftt.Test) {
			store.version = func(context.Context) (string, error) { return "", errors.New("down") }
			called := false
			err := c.Scoped(ctx, func(ctx context.Context) error {
				called = true
				return nil
			})
			assert.Loosely(t, err, should.ErrLike("down"))
			assert.Loosely(t, called, should.BeFalse)
		})

		t.Run("check connection", func(t *ftt.Test) {
			assert.Loosely(t, c.CheckConnection(ctx), should.BeTrue)
			store.version = func(context.Context) (string, error) { return "", errors.New("down") }
			assert.Loosely(t, c.CheckConnection(ctx), should.BeFalse)
		})
	})
}
