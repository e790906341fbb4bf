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

// Command witsmlsvc serves the WITSML pipeline and the file service over
// HTTP.
//
// Every flag defaults from an environment variable, see internal/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gomodule/redigo/redis"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"
	"go.chromium.org/luci/common/system/environ"
	"go.chromium.org/luci/common/system/signals"
	"go.chromium.org/luci/server/redisconn"
	"go.chromium.org/luci/server/router"

	"github.com/archishmannag/well-log-rag/internal/config"
	"github.com/archishmannag/well-log-rag/internal/files"
	"github.com/archishmannag/well-log-rag/internal/filestore"
	"github.com/archishmannag/well-log-rag/internal/httpapi"
	"github.com/archishmannag/well-log-rag/internal/sharedcache"
	"github.com/archishmannag/well-log-rag/witsml/pool"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx := gologger.StdConfig.Use(context.Background())

	cfg, err := config.FromEnv(environ.System())
	if err != nil {
		fmt.Fprintf(os.Stderr, "witsmlsvc: %s\n", err)
		os.Exit(2)
	}
	fs := flag.NewFlagSet("witsmlsvc", flag.ExitOnError)
	cfg.AddFlags(fs)
	_ = fs.Parse(os.Args[1:])
	ctx = cfg.Logging.Set(ctx)

	if err := run(ctx, cfg); err != nil {
		logging.WithError(err).Errorf(ctx, "witsmlsvc failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := cfg.ConnectorOptions()
	srv := &httpapi.Server{ServerURL: cfg.ServerURL}
	if cfg.RedisAddr != "" {
		ctx = redisconn.UsePool(ctx, redisPool(cfg.RedisAddr))
		opts.Dial = sharedcache.Dialer(nil, cfg.SharedCacheTTL)
		srv.ClearShared = func(ctx context.Context) error {
			n, err := sharedcache.Purge(ctx)
			logging.Infof(ctx, "Purged %d shared cache entries", n)
			return err
		}
		logging.Infof(ctx, "Shared response cache at %s, TTL %s", cfg.RedisAddr, cfg.SharedCacheTTL)
	}

	svc, err := pool.NewService(opts, cfg.PoolSize)
	if err != nil {
		return errors.Fmt("creating WITSML service: %w", err)
	}
	srv.WITSML = svc

	store, err := filestore.Open(ctx, cfg.DBPath)
	if err != nil {
		return errors.Fmt("opening file store: %w", err)
	}
	defer store.Close()
	srv.Files = files.New(store)

	r := router.New()
	srv.InstallHandlers(r)

	hs := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	defer signals.HandleInterrupt(func() {
		logging.Infof(ctx, "Shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			logging.WithError(err).Warningf(ctx, "Graceful shutdown failed")
		}
	})()

	logging.Infof(ctx, "Serving WITSML store %s on %s", cfg.ServerURL, cfg.ListenAddr)
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	svc.Pool().Close(ctx)
	return nil
}

func redisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}
}
