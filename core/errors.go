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

package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by ingestion and retrieval.
var (
	// ErrValidation indicates missing directories, fields or malformed input.
	// Fatal at startup.
	ErrValidation = errors.New("validation failure")

	// ErrSchemaVersionMismatch indicates stored artifacts were produced by an
	// incompatible build. Serving is blocked until a rebuild.
	ErrSchemaVersionMismatch = errors.New("schema version mismatch")

	// ErrEnrichmentItem indicates a single enrichment call failed. Recovered
	// locally: the item is skipped, logged and counted.
	ErrEnrichmentItem = errors.New("enrichment item failure")

	// ErrEmbeddingBatch indicates an embedding batch exhausted its retries.
	// Fatal for the run.
	ErrEmbeddingBatch = errors.New("embedding batch failure")

	// ErrNoEvidence indicates every queried collection returned zero hits.
	ErrNoEvidence = errors.New("no evidence found")

	// ErrVectorStoreUnavailable indicates the vector store could not be
	// reached. Propagated unchanged by retrieval.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrNotFound indicates the requested chunk or document does not exist.
	ErrNotFound = errors.New("not found")
)

// VersionMismatchError describes the first artifact version field that did
// not match what the running code expects.
type VersionMismatchError struct {
	Source   string // artifact that carried the mismatching value
	Field    string
	Expected string
	Actual   string
}

func (e *VersionMismatchError) Error() string {
	src := ""
	if e.Source != "" {
		src = e.Source + ": "
	}
	return fmt.Sprintf("%s%s mismatch: expected %s, got %s; rebuild ingestion artifacts before serving",
		src, e.Field, e.Expected, e.Actual)
}

// Unwrap lets callers match with errors.Is(err, ErrSchemaVersionMismatch).
func (e *VersionMismatchError) Unwrap() error {
	return ErrSchemaVersionMismatch
}
