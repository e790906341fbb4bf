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

package config

import (
	"flag"
	"testing"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/environ"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"github.com/archishmannag/well-log-rag/witsml/connector"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	ftt.Run("Config", t, func(t *ftt.Test) {
		t.Run("defaults", func(t *ftt.Test) {
			c, err := FromEnv(environ.New(nil))
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, c.Version, should.Equal("1.4.1.1"))
			assert.Loosely(t, c.Timeout, should.Equal(30*time.Second))
			assert.Loosely(t, c.PoolSize, should.Equal(5))
			assert.Loosely(t, c.MaxAttempts, should.Equal(3))
			assert.Loosely(t, c.BaseDelay, should.Equal(2*time.Second))
			assert.Loosely(t, c.ListenAddr, should.Equal(":8000"))
			assert.Loosely(t, c.DBPath, should.Equal("witsml.db"))
			assert.Loosely(t, c.RedisAddr, should.BeEmpty)
			assert.Loosely(t, c.SharedCacheTTL, should.Equal(300*time.Second))
			assert.Loosely(t, c.Logging.Level, should.Equal(logging.Info))
		})

		t.Run("environment", func(t *ftt.Test) {
			c, err := FromEnv(environ.New([]string{
				"WITSML_SERVER_URL=https://witsml.example.com/store",
				"WITSML_USERNAME=api_user",
				"WITSML_PASSWORD=secret",
				"WITSML_VERSION=1.3.1.1",
				"WITSML_TIMEOUT=45",
				"WITSML_POOL_SIZE=8",
				"WITSML_QPS=2.5",
				"API_HOST=0.0.0.0",
				"API_PORT=9000",
				"REDIS_ADDR=localhost:6379",
				"REDIS_TTL=1m",
				"LOG_LEVEL=DEBUG",
			}))
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, c.ServerURL, should.Equal("https://witsml.example.com/store"))
			assert.Loosely(t, c.Version, should.Equal("1.3.1.1"))
			assert.Loosely(t, c.Timeout, should.Equal(45*time.Second))
			assert.Loosely(t, c.PoolSize, should.Equal(8))
			assert.Loosely(t, c.ListenAddr, should.Equal("0.0.0.0:9000"))
			assert.Loosely(t, c.RedisAddr, should.Equal("localhost:6379"))
			assert.Loosely(t, c.SharedCacheTTL, should.Equal(time.Minute))
			assert.Loosely(t, c.Logging.Level, should.Equal(logging.Debug))

			opts := c.ConnectorOptions()
			assert.Loosely(t, opts.URL, should.Equal("https://witsml.example.com/store"))
			assert.Loosely(t, opts.Username, should.Equal("api_user"))
			assert.Loosely(t, opts.Password, should.Equal("secret"))
			assert.Loosely(t, opts.Timeout, should.Equal(45*time.Second))
			assert.Loosely(t, opts.QPS, should.Equal(2.5))
		})

		t.Run("malformed values", func(t *ftt.Test) {
			_, err := FromEnv(environ.New([]string{"WITSML_TIMEOUT=soon"}))
			assert.Loosely(t, err, should.ErrLike("WITSML_TIMEOUT"))
			_, err = FromEnv(environ.New([]string{"WITSML_POOL_SIZE=many"}))
			assert.Loosely(t, err, should.ErrLike("WITSML_POOL_SIZE"))
			_, err = FromEnv(environ.New([]string{"WITSML_QPS=fast"}))
			assert.Loosely(t, err, should.ErrLike("WITSML_QPS"))
		})

		t.Run("flags override the environment", func(t *ftt.Test) {
			c, err := FromEnv(environ.New([]string{"WITSML_SERVER_URL=http://env"}))
			assert.Loosely(t, err, should.BeNil)
			fs := flag.NewFlagSet("", flag.ContinueOnError)
			c.AddFlags(fs)
			assert.Loosely(t, fs.Parse([]string{"-server-url", "http://flag", "-pool-size", "2", "-timeout", "5s"}), should.BeNil)
			assert.Loosely(t, c.ServerURL, should.Equal("http://flag"))
			assert.Loosely(t, c.PoolSize, should.Equal(2))
			assert.Loosely(t, c.Timeout, should.Equal(5*time.Second))
		})

		t.Run("validation", func(t *ftt.Test) {
			c, err := FromEnv(environ.New(nil))
			assert.Loosely(t, err, should.BeNil)

			var cerr *connector.ConfigurationError
			assert.Loosely(t, errors.As(c.Validate(), &cerr), should.BeTrue)

			c.ServerURL = "http://store"
			assert.Loosely(t, c.Validate(), should.BeNil)
			c.PoolSize = 0
			assert.Loosely(t, c.Validate(), should.ErrLike("pool size"))
			c.PoolSize = 1
			c.QPS = -1
			assert.Loosely(t, c.Validate(), should.ErrLike("QPS"))
		})
	})
}
