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
	"fmt"

	"go.chromium.org/luci/common/errors"
)

// TransportError is a failure to exchange a message with the store: a
// connection failure, a timeout or a server-side transport fault.
//
// Transport errors are retried.
type TransportError struct {
	Procedure string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %s", e.Procedure, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is returned when the store answers with a status code other
// than success. Message is the store's base message for the code.
type ProtocolError struct {
	Procedure string
	Code      int
	Message   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %s (code: %d)", e.Procedure, e.Message, e.Code)
}

// FaultError is a SOAP fault returned by the store.
type FaultError struct {
	Code   string
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("SOAP fault %s: %s", e.Code, e.Reason)
}

// ConfigurationError is returned by New when the options are unusable.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid WITSML connector configuration: " + e.Reason
}

// IsTransport is true if err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
