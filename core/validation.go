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
	"fmt"
	"strings"
)

// ValidateDocumentMeta validates document metadata according to corpus rules.
//
// Validation rules:
//   - DocID must not be empty
//   - Title, UploadDate and SourceURL must be non-blank
//
// Returns one message per problem found; nil means the metadata is usable.
func ValidateDocumentMeta(meta DocumentMeta) []string {
	var problems []string
	if strings.TrimSpace(meta.DocID) == "" {
		problems = append(problems, "doc_id is empty")
	}
	if strings.TrimSpace(meta.Title) == "" {
		problems = append(problems, "metadata missing field: title")
	}
	if strings.TrimSpace(meta.UploadDate) == "" {
		problems = append(problems, "metadata missing field: upload_date")
	}
	if strings.TrimSpace(meta.SourceURL) == "" {
		problems = append(problems, "metadata missing field: source_url")
	}
	return problems
}

// ValidateChunk validates a chunk row before it is written to a manifest.
//
// Validation rules:
//   - ID must equal ChunkID(DocID, Ordinal)
//   - Text must not be empty
//   - TokenRange must be non-empty
//
// NOT validated (populated by enrichment, may be empty after a failure):
//   - Summary, Intents, Sentiment, Claims
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("%w: chunk is nil", ErrValidation)
	}
	if c.DocID == "" {
		return fmt.Errorf("%w: chunk %s has no doc_id", ErrValidation, c.ID)
	}
	if c.ID != ChunkID(c.DocID, c.Ordinal) {
		return fmt.Errorf("%w: chunk id %s does not match doc %s ordinal %d", ErrValidation, c.ID, c.DocID, c.Ordinal)
	}
	if c.Text == "" {
		return fmt.Errorf("%w: chunk %s has empty text", ErrValidation, c.ID)
	}
	if c.TokenRange.Len() <= 0 {
		return fmt.Errorf("%w: chunk %s has empty token range", ErrValidation, c.ID)
	}
	return nil
}
