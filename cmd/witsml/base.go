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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/environ"

	"github.com/archishmannag/well-log-rag/internal/config"
	"github.com/archishmannag/well-log-rag/witsml/client"
	"github.com/archishmannag/well-log-rag/witsml/connector"
	"github.com/archishmannag/well-log-rag/witsml/model"
)

// Exit codes.
const (
	ecOK = iota
	ecFailure
	ecBadArgs
)

type baseCommandRun struct {
	subcommands.CommandRunBase
	params

	cfg    *config.Config
	envErr error
	json   bool
}

func (r *baseCommandRun) registerBaseFlags(p params) {
	r.params = p
	r.cfg, r.envErr = config.FromEnv(environ.System())
	if r.envErr != nil {
		r.cfg = &config.Config{}
	}
	r.cfg.AddFlags(&r.Flags)
	r.Flags.BoolVar(&r.json, "json", false, "Print JSON instead of a table.")
}

// withLogging applies the configured log level to ctx.
func (r *baseCommandRun) withLogging(ctx context.Context) context.Context {
	return r.cfg.Logging.Set(ctx)
}

func (r *baseCommandRun) options() (connector.Options, error) {
	if r.envErr != nil {
		return connector.Options{}, r.envErr
	}
	if err := r.cfg.Validate(); err != nil {
		return connector.Options{}, err
	}
	opts := r.cfg.ConnectorOptions()
	opts.Dial = r.dial
	return opts, nil
}

func (r *baseCommandRun) client() (*client.Client, error) {
	opts, err := r.options()
	if err != nil {
		return nil, err
	}
	return client.Dial(opts)
}

// argErr reports bad command line arguments.
func (r *baseCommandRun) argErr(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "bad arguments: %s\n", fmt.Sprintf(format, args...))
	return ecBadArgs
}

func (r *baseCommandRun) done(ctx context.Context, err error) int {
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return ecFailure
	}
	return ecOK
}

func (r *baseCommandRun) printJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable prints rows as tab aligned columns, unless -json is set in
// which case v is printed instead.
func (r *baseCommandRun) printTable(v any, header []string, rows [][]string) error {
	if r.json {
		return r.printJSON(v)
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, row := range rows {
		writeRow(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return errors.Fmt("printing: %w", err)
	}
	return nil
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func measure(m *model.Measure) string {
	switch {
	case m == nil:
		return ""
	case m.UOM == "":
		return m.Value
	default:
		return m.Value + " " + m.UOM
	}
}
