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

// Package corpus discovers transcript/metadata pairs on disk and audits them
// before ingestion.
//
// A transcript "<doc_id>.txt" pairs with metadata "<doc_id>.json". The
// auditor reports failures (unpaired files, missing required metadata,
// undecodable or empty transcripts, unparsable metadata) and warnings (low
// speaker-label coverage, token-count outliers). Any failure blocks
// ingestion; warnings never do.
package corpus
