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

// Package config holds the process configuration of the WITSML binaries.
package config

import (
	"flag"
	"net"
	"strconv"
	"strings"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/environ"

	"github.com/archishmannag/well-log-rag/witsml/connector"
	"github.com/archishmannag/well-log-rag/witsml/pool"
)

// Defaults not already defined by the connector.
const (
	DefaultListenAddr     = ":8000"
	DefaultDBPath         = "witsml.db"
	DefaultSharedCacheTTL = 300 * time.Second
)

// Config is the configuration of a WITSML service or command line client.
//
// It is populated by AddFlags and Parse. Every flag defaults from an
// environment variable.
type Config struct {
	ServerURL   string
	Username    string
	Password    string
	Version     string
	Timeout     time.Duration
	PoolSize    int
	MaxAttempts int
	BaseDelay   time.Duration
	QPS         float64

	ListenAddr     string
	DBPath         string
	RedisAddr      string
	SharedCacheTTL time.Duration

	Logging logging.Config
}

// FromEnv returns a Config with defaults taken from env.
//
// Malformed numeric or duration values are reported rather than ignored.
func FromEnv(env environ.Env) (*Config, error) {
	c := &Config{
		ServerURL:      env.Get("WITSML_SERVER_URL"),
		Username:       env.Get("WITSML_USERNAME"),
		Password:       env.Get("WITSML_PASSWORD"),
		Version:        connector.DefaultVersion,
		Timeout:        connector.DefaultTimeout,
		PoolSize:       pool.DefaultCapacity,
		MaxAttempts:    connector.DefaultMaxAttempts,
		BaseDelay:      connector.DefaultBaseDelay,
		ListenAddr:     DefaultListenAddr,
		DBPath:         DefaultDBPath,
		RedisAddr:      env.Get("REDIS_ADDR"),
		SharedCacheTTL: DefaultSharedCacheTTL,
		Logging:        logging.Config{Level: logging.Info},
	}
	if v := env.Get("WITSML_VERSION"); v != "" {
		c.Version = v
	}
	if v := env.Get("DB_PATH"); v != "" {
		c.DBPath = v
	}

	var err error
	if c.Timeout, err = seconds(env, "WITSML_TIMEOUT", c.Timeout); err != nil {
		return nil, err
	}
	if c.BaseDelay, err = seconds(env, "WITSML_BASE_DELAY", c.BaseDelay); err != nil {
		return nil, err
	}
	if c.SharedCacheTTL, err = seconds(env, "REDIS_TTL", c.SharedCacheTTL); err != nil {
		return nil, err
	}
	if c.PoolSize, err = integer(env, "WITSML_POOL_SIZE", c.PoolSize); err != nil {
		return nil, err
	}
	if c.MaxAttempts, err = integer(env, "WITSML_MAX_ATTEMPTS", c.MaxAttempts); err != nil {
		return nil, err
	}
	if v := env.Get("WITSML_QPS"); v != "" {
		if c.QPS, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, errors.Fmt("WITSML_QPS: %w", err)
		}
	}

	host, port := env.Get("API_HOST"), env.Get("API_PORT")
	if host != "" || port != "" {
		if port == "" {
			port = "8000"
		}
		c.ListenAddr = net.JoinHostPort(host, port)
	}

	if lvl := env.Get("LOG_LEVEL"); lvl != "" {
		if err := c.Logging.Level.Set(strings.ToLower(lvl)); err != nil {
			return nil, errors.Fmt("LOG_LEVEL: %w", err)
		}
	}
	return c, nil
}

// AddFlags registers the configuration on fs, using the current values as
// defaults.
func (c *Config) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ServerURL, "server-url", c.ServerURL, "WITSML store endpoint URL.")
	fs.StringVar(&c.Username, "username", c.Username, "WITSML store user name.")
	fs.StringVar(&c.Password, "password", c.Password, "WITSML store password.")
	fs.StringVar(&c.Version, "witsml-version", c.Version, "WITSML data version to request.")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Timeout of a single store call.")
	fs.IntVar(&c.PoolSize, "pool-size", c.PoolSize, "Maximum number of idle clients kept by the pool.")
	fs.IntVar(&c.MaxAttempts, "max-attempts", c.MaxAttempts, "Attempts made for a store call failing with a transport error.")
	fs.DurationVar(&c.BaseDelay, "base-delay", c.BaseDelay, "Delay before the first retry; doubled on each further retry.")
	fs.Float64Var(&c.QPS, "qps", c.QPS, "Maximum store calls per second per client. Zero is unlimited.")
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "Address the HTTP API listens on.")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Path of the SQLite file store.")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address of the shared response cache. Empty disables it.")
	fs.DurationVar(&c.SharedCacheTTL, "redis-ttl", c.SharedCacheTTL, "Lifetime of shared response cache entries.")
	c.Logging.AddFlags(fs)
}

// Validate checks that the configuration can be used to reach a store.
func (c *Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return &connector.ConfigurationError{Reason: "WITSML server URL is not configured"}
	case c.PoolSize < 1:
		return &connector.ConfigurationError{Reason: "pool size must be positive"}
	case c.MaxAttempts < 1:
		return &connector.ConfigurationError{Reason: "max attempts must be positive"}
	case c.QPS < 0:
		return &connector.ConfigurationError{Reason: "QPS must not be negative"}
	}
	return nil
}

// ConnectorOptions converts the configuration into connector options.
func (c *Config) ConnectorOptions() connector.Options {
	return connector.Options{
		URL:         c.ServerURL,
		Username:    c.Username,
		Password:    c.Password,
		Version:     c.Version,
		Timeout:     c.Timeout,
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		QPS:         c.QPS,
	}
}

// seconds reads key as a duration. A bare number is a count of seconds.
func seconds(env environ.Env, key string, def time.Duration) (time.Duration, error) {
	v := env.Get(key)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Fmt("%s: %w", key, err)
	}
	return d, nil
}

func integer(env environ.Env, key string, def int) (int, error) {
	v := env.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Fmt("%s: %w", key, err)
	}
	return n, nil
}
