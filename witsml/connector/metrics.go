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
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/tsmon/distribution"
	"go.chromium.org/luci/common/tsmon/field"
	"go.chromium.org/luci/common/tsmon/metric"
	"go.chromium.org/luci/common/tsmon/types"
)

var (
	callsCounter = metric.NewCounter(
		"witsml/connector/calls",
		"Count of WITSML store procedure calls, retries included",
		nil,
		field.String("procedure"), // e.g. WMLS_GetFromStore
		field.String("result"),    // OK | transport | protocol | fault | error
	)

	callsDurationMS = metric.NewCumulativeDistribution(
		"witsml/connector/duration",
		"Duration of WITSML store procedure calls, retries included",
		&types.MetricMetadata{Units: types.Milliseconds},
		distribution.DefaultBucketer,
		field.String("procedure"),
	)
)

func recordCall(ctx context.Context, proc string, start time.Time, err error) {
	callsCounter.Add(ctx, 1, proc, callResult(err))
	callsDurationMS.Add(ctx, float64(clock.Since(ctx, start).Milliseconds()), proc)
}

func callResult(err error) string {
	var pe *ProtocolError
	var fe *FaultError
	switch {
	case err == nil:
		return "OK"
	case errors.As(err, &pe):
		return "protocol"
	case errors.As(err, &fe):
		return "fault"
	case IsTransport(err):
		return "transport"
	default:
		return "error"
	}
}
