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

// Package ai provides abstractions for the model-backed capabilities voxdex
// depends on.
//
// Ingestion needs embeddings and structured extraction. Retrieval needs
// embeddings, question classification, query expansion and answer
// synthesis. Each capability is a small interface so the pipeline and the
// orchestrator can be tested without a model server:
//
//   - Embedder: Generates vector embeddings from text
//   - Extractor: Returns a JSON payload for enrichment prompts
//   - Classifier: Maps a question onto a core.QuestionType
//   - QueryExpander: Splits an analytical question into themed sub-queries
//   - Synthesizer: Composes a grounded answer from retrieved evidence
//   - AIProvider: Aggregates the services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors in ai/openai return INTERFACE types to prevent
// coupling to a concrete implementation. Mock constructors return CONCRETE
// types so tests can inject behavior and assert call counts.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	mockEmbed := mock.NewMockEmbedder()
//	count := mockEmbed.CallCount()
package ai
