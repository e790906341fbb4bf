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
	"go.chromium.org/luci/common/data/text"

	"github.com/archishmannag/well-log-rag/witsml/client"
)

func cmdVersion(p params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "version",
		ShortDesc: "prints the data versions the store supports",
		LongDesc: text.Doc(`
			Prints the data versions the store supports, as reported by
			WMLS_GetVersion.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &versionRun{}
			r.registerBaseFlags(p)
			return r
		},
	}
}

type versionRun struct {
	baseCommandRun
}

func (r *versionRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.withLogging(cli.GetContext(a, r, env))
	if len(args) != 0 {
		return r.argErr("unexpected positional arguments")
	}
	c, err := r.client()
	if err != nil {
		return r.done(ctx, err)
	}
	v, err := c.Version(ctx)
	if err != nil {
		return r.done(ctx, err)
	}
	if r.json {
		return r.done(ctx, r.printJSON(map[string]string{"version": v}))
	}
	_, err = r.out.Write([]byte(v + "\n"))
	return r.done(ctx, err)
}

func cmdWells(p params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "wells",
		ShortDesc: "lists wells",
		LongDesc:  "Lists all wells of the store.",
		CommandRun: func() subcommands.CommandRun {
			r := &wellsRun{}
			r.registerBaseFlags(p)
			return r
		},
	}
}

type wellsRun struct {
	baseCommandRun
}

func (r *wellsRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.withLogging(cli.GetContext(a, r, env))
	if len(args) != 0 {
		return r.argErr("unexpected positional arguments")
	}
	c, err := r.client()
	if err != nil {
		return r.done(ctx, err)
	}
	wells, err := c.Wells(ctx)
	if err != nil {
		return r.done(ctx, err)
	}
	var rows [][]string
	for uid, w := range wells.All() {
		rows = append(rows, []string{uid, deref(w.Name), deref(w.Field), deref(w.Operator)})
	}
	return r.done(ctx, r.printTable(wells, []string{"UID", "NAME", "FIELD", "OPERATOR"}, rows))
}

func cmdWellbores(p params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "wellbores [-well <uid>]",
		ShortDesc: "lists wellbores",
		LongDesc:  "Lists the wellbores of a well, or of all wells.",
		CommandRun: func() subcommands.CommandRun {
			r := &wellboresRun{}
			r.registerBaseFlags(p)
			r.Flags.StringVar(&r.well, "well", "", "Uid of the well.")
			return r
		},
	}
}

type wellboresRun struct {
	baseCommandRun
	well string
}

func (r *wellboresRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.withLogging(cli.GetContext(a, r, env))
	if len(args) != 0 {
		return r.argErr("unexpected positional arguments")
	}
	c, err := r.client()
	if err != nil {
		return r.done(ctx, err)
	}
	wbs, err := c.Wellbores(ctx, r.well)
	if err != nil {
		return r.done(ctx, err)
	}
	var rows [][]string
	for uid, wb := range wbs.All() {
		rows = append(rows, []string{uid, deref(wb.WellUID), deref(wb.Name), deref(wb.Number)})
	}
	return r.done(ctx, r.printTable(wbs, []string{"UID", "WELL", "NAME", "NUMBER"}, rows))
}

func cmdLogs(p params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "logs -well <uid> -wellbore <uid>",
		ShortDesc: "lists the logs of a wellbore",
		LongDesc:  "Lists the logs of a wellbore with their index ranges.",
		CommandRun: func() subcommands.CommandRun {
			r := &logsRun{}
			r.registerBaseFlags(p)
			r.Flags.StringVar(&r.well, "well", "", "Uid of the well. Required.")
			r.Flags.StringVar(&r.wellbore, "wellbore", "", "Uid of the wellbore. Required.")
			return r
		},
	}
}

type logsRun struct {
	baseCommandRun
	well, wellbore string
}

func (r *logsRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.withLogging(cli.GetContext(a, r, env))
	switch {
	case len(args) != 0:
		return r.argErr("unexpected positional arguments")
	case r.well == "" || r.wellbore == "":
		return r.argErr("-well and -wellbore are required")
	}
	c, err := r.client()
	if err != nil {
		return r.done(ctx, err)
	}
	logs, err := c.Logs(ctx, r.well, r.wellbore)
	if err != nil {
		return r.done(ctx, err)
	}
	var rows [][]string
	for uid, l := range logs.All() {
		idx := ""
		if l.IndexType != nil {
			idx = string(*l.IndexType)
		}
		rows = append(rows, []string{uid, deref(l.Name), idx, measure(l.StartIndex), measure(l.EndIndex)})
	}
	return r.done(ctx, r.printTable(logs, []string{"UID", "NAME", "INDEX", "START", "END"}, rows))
}

func cmdLogData(p params) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "log-data -well <uid> -wellbore <uid> -log <uid> [-start <index> -end <index>]",
		ShortDesc: "prints the data of a log",
		LongDesc: text.Doc(`
			Prints the data of a log, one row per line.

			The rows are restricted to an index range if both -start and -end
			are given.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &logDataRun{}
			r.registerBaseFlags(p)
			r.Flags.StringVar(&r.well, "well", "", "Uid of the well. Required.")
			r.Flags.StringVar(&r.wellbore, "wellbore", "", "Uid of the wellbore. Required.")
			r.Flags.StringVar(&r.log, "log", "", "Uid of the log. Required.")
			r.Flags.StringVar(&r.rng.Start, "start", "", "First index of the range.")
			r.Flags.StringVar(&r.rng.End, "end", "", "Last index of the range.")
			return r
		},
	}
}

type logDataRun struct {
	baseCommandRun
	well, wellbore, log string
	rng                 client.IndexRange
}

func (r *logDataRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := r.withLogging(cli.GetContext(a, r, env))
	switch {
	case len(args) != 0:
		return r.argErr("unexpected positional arguments")
	case r.well == "" || r.wellbore == "" || r.log == "":
		return r.argErr("-well, -wellbore and -log are required")
	}
	c, err := r.client()
	if err != nil {
		return r.done(ctx, err)
	}
	l, err := c.LogData(ctx, r.well, r.wellbore, r.log, r.rng)
	if err != nil {
		return r.done(ctx, err)
	}
	header := make([]string, len(l.Curves))
	for i, cv := range l.Curves {
		header[i] = cv.Mnemonic
	}
	var rows [][]string
	if l.Data != nil {
		rows = l.Data.Rows
	}
	return r.done(ctx, r.printTable(l, header, rows))
}
