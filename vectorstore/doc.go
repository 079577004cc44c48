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

// Package vectorstore manages the four embedding collections as one unit.
//
// A Manager sits on top of any storage.VectorStore and knows which
// collection each source field belongs in. Rebuild replaces all four
// collections; Append only adds records for documents not yet indexed.
// Open selects the backend (embedded Badger or a Qdrant server) from
// configuration.
package vectorstore
