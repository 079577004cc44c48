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

package retrieval

import "errors"

var (
	// ErrEmbedderRequired is returned when an orchestrator has no query embedder.
	ErrEmbedderRequired = errors.New("query embedder required")

	// ErrVectorStoreRequired is returned when an orchestrator has no vector store.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrChunkSourceRequired is returned when an orchestrator has no chunk source.
	ErrChunkSourceRequired = errors.New("chunk source required")

	// ErrUnknownProfile is returned when neither the requested nor the
	// fallback profile is configured.
	ErrUnknownProfile = errors.New("no retrieval profile")
)
