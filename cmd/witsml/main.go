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

// Command witsml queries a WITSML store from the command line.
package main

import (
	"context"
	"io"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/archishmannag/well-log-rag/witsml/connector"
)

// params are the dependencies of the commands.
type params struct {
	// dial opens store sessions, connector.DialSOAP if nil.
	dial connector.Dialer
	out  io.Writer
}

func application(p params) *cli.Application {
	return &cli.Application{
		Name:  "witsml",
		Title: "Client of a WITSML 1.x store.",
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		Commands: []*subcommands.Command{
			cmdVersion(p),
			cmdWells(p),
			cmdWellbores(p),
			cmdLogs(p),
			cmdLogData(p),
			cmdWellsBatch(p),
			cmdImport(p),
			{},
			subcommands.CmdHelp,
		},
	}
}

func main() {
	os.Exit(subcommands.Run(application(params{out: os.Stdout}), nil))
}
