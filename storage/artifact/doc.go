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

// Package artifact reads and writes the ingestion outputs that retrieval
// serves from:
//
//   - the chunk manifest: one JSON document holding a version header and
//     every enriched chunk row
//   - the document manifest: one JSON document holding every enriched
//     document row
//   - embedding artifacts: one JSONL file per source field
//   - the run log: one JSONL record per completed ingestion run
//
// Whole-file artifacts are written to a temporary file and renamed into
// place.
package artifact
