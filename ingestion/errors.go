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

package ingestion

import "errors"

var (
	// ErrNormalizerRequired is returned when a transcript normalizer is not provided.
	ErrNormalizerRequired = errors.New("normalizer required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrDocumentEnricherRequired is returned when a document enricher is not provided.
	ErrDocumentEnricherRequired = errors.New("document enricher required")

	// ErrChunkEnricherRequired is returned when a chunk enricher is not provided.
	ErrChunkEnricherRequired = errors.New("chunk enricher required")

	// ErrEmbeddingClientRequired is returned when an embedding client is not provided.
	ErrEmbeddingClientRequired = errors.New("embedding client required")

	// ErrVectorManagerRequired is returned when a vector store manager is not provided.
	ErrVectorManagerRequired = errors.New("vector store manager required")
)
