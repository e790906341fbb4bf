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

package main

import (
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/data/text"

	"github.com/archishmannag/well-log-rag/witsml/pool"
)

func cmdWellsBatch(p params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "wells-batch <uid> [<uid>...]",
		ShortDesc: "fetches several wells concurrently",
		LongDesc: text.Doc(`
			Fetches several wells concurrently over a pool of connections.

			Wells that the store does not know are reported as missing. The
			size of the pool is controlled by -pool-size.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &wellsBatchRun{}
			r.registerBaseFlags(p)
			return r
		},
	}
}

type wellsBatchRun struct {
	baseCommandRun
}

func (r *wellsBatchRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.withLogging(cli.GetContext(a, r, env))
	if len(args) == 0 {
		return r.argErr("at least one well uid is required")
	}
	opts, err := r.options()
	if err != nil {
		return r.done(ctx, err)
	}
	svc, err := pool.NewService(opts, r.cfg.PoolSize)
	if err != nil {
		return r.done(ctx, err)
	}
	defer svc.Pool().Close(ctx)

	found, err := svc.WellsBatch(ctx, args)
	if err != nil {
		return r.done(ctx, err)
	}
	missing := stringset.NewFromSlice(args...)
	var rows [][]string
	for _, uid := range args {
		if w, ok := found[uid]; ok && missing.Has(uid) {
			missing.Del(uid)
			rows = append(rows, []string{uid, deref(w.Name), deref(w.Field), deref(w.Operator)})
		}
	}
	out := map[string]any{"wells": found, "missing": missing.ToSortedSlice()}
	if err := r.printTable(out, []string{"UID", "NAME", "FIELD", "OPERATOR"}, rows); err != nil {
		return r.done(ctx, err)
	}
	if !r.json && missing.Len() > 0 {
		for _, uid := range missing.ToSortedSlice() {
			writeRow(r.out, []string{"missing:", uid})
		}
	}
	return ecOK
}
