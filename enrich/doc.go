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

// Package enrich extracts structured metadata for documents and chunks
// through an ai.Extractor, caching every result under (entity id, schema
// version) so reruns only call the model for what changed.
//
// Each payload is checked against a strict contract before it is cached:
// required keys must be present, list fields are normalized and optional
// fields default to empty values. An item that keeps failing after the
// configured attempts is written to the error log and skipped; one failure
// never aborts the batch.
package enrich
