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

// Package storage provides the storage abstraction layer for voxdex.
//
// This package defines the interfaces that decouple persistence from the
// ingestion and retrieval logic:
//
//   - VectorStore: the four embedding collections (primary, summary,
//     intents, docsum)
//   - EnrichmentCache: enrichment payloads keyed by entity id and schema
//     version
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces:
//
//	store, err := badger.NewVectorStore(backend)  // returns storage.VectorStore
//
// Internal package constructors (newVectorStore, newCache, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Backends
//
//   - storage/badger: embedded BadgerDB; brute-force cosine search and a
//     versioned enrichment cache
//   - storage/qdrant: remote Qdrant over gRPC
//   - storage/fscache: one JSON file per cached enrichment
//   - storage/artifact: manifests, embedding artifacts and the run log
//
// All implementations must be thread-safe.
package storage
