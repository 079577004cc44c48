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

// Package ingestion turns a transcript corpus into retrieval artifacts.
//
// A Pipeline run proceeds through fixed stages:
//   - Audit the corpus and stop on any failure
//   - Load and normalize transcripts into speaker turns
//   - Enrich documents, chunk them, tag chunks with document themes and
//     enrich the chunks
//   - Embed chunk text, chunk summaries, chunk intents and document summaries
//   - Write the vector collections, the manifests, the embedding artifacts
//     and finally the run log record
//
// Rebuild replaces everything. Append processes only documents that are in
// neither the chunk manifest nor the primary collection, and refuses to add
// to artifacts produced under different schema versions.
package ingestion
