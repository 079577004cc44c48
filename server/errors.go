// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/poiesic/voxdex/core"
)

var (
	// ErrSearcherRequired is returned when no searcher is provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrNotConfigured is returned by routes whose backing model is absent.
	ErrNotConfigured = errors.New("not configured")
)

// Error codes in failure payloads.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeNoEvidence      = "no_evidence"
	CodeTimeout         = "timeout"
	CodeUnavailable     = "vector_store_unavailable"
	CodeVersionMismatch = "schema_version_mismatch"
	CodeNotConfigured   = "not_configured"
	CodeInternal        = "internal"
)

// ErrorBody is the payload of a failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps an error onto a status code and payload code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, core.ErrNoEvidence):
		return http.StatusNotFound, CodeNoEvidence
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, core.ErrVectorStoreUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, core.ErrSchemaVersionMismatch):
		return http.StatusInternalServerError, CodeVersionMismatch
	case errors.Is(err, ErrNotConfigured):
		return http.StatusNotImplemented, CodeNotConfigured
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
