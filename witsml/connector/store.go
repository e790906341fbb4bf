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
)

// SuccessCode is the status code the store returns for a successful call.
const SuccessCode = 1

// Procedure names of the store API.
const (
	ProcGetVersion      = "WMLS_GetVersion"
	ProcGetCap          = "WMLS_GetCap"
	ProcGetBaseMsg      = "WMLS_GetBaseMsg"
	ProcGetFromStore    = "WMLS_GetFromStore"
	ProcAddToStore      = "WMLS_AddToStore"
	ProcUpdateInStore   = "WMLS_UpdateInStore"
	ProcDeleteFromStore = "WMLS_DeleteFromStore"
)

// Reply is the answer to a store procedure that returns a status code.
type Reply struct {
	// Code is the status code, SuccessCode on success.
	Code int
	// XML is the returned document, if the procedure returns one.
	XML string
	// SuppMsg is the supplemental message of the store, if any.
	SuppMsg string
}

// Store is the remote procedure surface of a WITSML store.
//
// Implementations report transport failures as *TransportError and SOAP
// faults as *FaultError. A Store is used by one caller at a time.
type Store interface {
	GetVersion(ctx context.Context) (string, error)
	GetCap(ctx context.Context, options string) (Reply, error)
	GetBaseMsg(ctx context.Context, code int) (string, error)
	GetFromStore(ctx context.Context, objectType, query, options string) (Reply, error)
	AddToStore(ctx context.Context, objectType, xml, options string) (Reply, error)
	UpdateInStore(ctx context.Context, objectType, xml, options string) (Reply, error)
	DeleteFromStore(ctx context.Context, objectType, query, options string) (Reply, error)

	// Close releases the transport. The Store is unusable afterwards.
	Close() error
}

// Dialer opens a session with a store.
type Dialer func(ctx context.Context, opts Options) (Store, error)
