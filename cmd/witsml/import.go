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
	"os"

	"github.com/dustin/go-humanize"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"

	"github.com/archishmannag/well-log-rag/internal/files"
	"github.com/archishmannag/well-log-rag/internal/filestore"
)

func cmdImport(p params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "import <file.xml> [<file.xml>...]",
		ShortDesc: "imports WITSML documents into the file store",
		LongDesc: text.Doc(`
			Processes WITSML documents and stores them in the local file store
			given by -db.

			Each document is classified the same way a store reply is. A
			document that fails processing is reported and skipped.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &importRun{}
			r.registerBaseFlags(p)
			return r
		},
	}
}

type importRun struct {
	baseCommandRun
}

func (r *importRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.withLogging(cli.GetContext(a, r, env))
	if len(args) == 0 {
		return r.argErr("at least one file is required")
	}
	if r.envErr != nil {
		return r.done(ctx, r.envErr)
	}

	store, err := filestore.Open(ctx, r.cfg.DBPath)
	if err != nil {
		return r.done(ctx, err)
	}
	defer store.Close()
	svc := files.New(store)

	var merr errors.MultiError
	var imported []*filestore.Record
	var rows [][]string
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			merr = append(merr, errors.Fmt("reading %q: %w", path, err))
			continue
		}
		rec, err := svc.Import(ctx, path, raw)
		if err != nil {
			merr = append(merr, err)
			continue
		}
		imported = append(imported, rec)
		rows = append(rows, []string{rec.ID, rec.FileType, rec.WellName, humanize.Bytes(uint64(rec.Size)), path})
	}
	if err := r.printTable(imported, []string{"ID", "TYPE", "WELL", "SIZE", "FILE"}, rows); err != nil {
		return r.done(ctx, err)
	}
	if len(merr) > 0 {
		return r.done(ctx, merr.AsError())
	}
	return ecOK
}
