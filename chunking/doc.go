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

// Package chunking splits normalized transcripts into overlapping,
// token-bounded windows.
//
// Chunk ids are "<doc_id>::chunk::<ordinal>". For a fixed tokenizer, size
// and overlap, identical turns always produce identical ids, text and token
// ranges; nothing in the boundaries depends on randomness or the clock.
//
// Production code uses TiktokenTokenizer (cl100k_base). Tests use
// FieldsTokenizer, which needs no downloaded BPE ranks.
package chunking
