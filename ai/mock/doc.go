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

// Package mock provides test double implementations of AI service interfaces.
//
// The mocks allow tests to run without external AI service dependencies and
// enable controlled, deterministic behavior. Every mock is safe for
// concurrent use, since enrichment and embedding run on worker pools.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	extractor := mock.NewMockExtractor().
//	    WithExtractFunc(func(ctx context.Context, instructions, input string) ([]byte, error) {
//	        return nil, errors.New("rate limited")
//	    })
//
//	// Check call counts
//	count := extractor.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns unit vectors derived from an FNV hash of the text
//   - MockExtractor: Returns a minimal valid chunk enrichment payload
//   - MockClassifier: Classifies everything as factual; expands by suffixing
//   - MockSynthesizer: Echoes the query and cites every evidence chunk
package mock
