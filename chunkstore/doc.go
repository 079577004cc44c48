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

// Package chunkstore serves the persisted chunk and document manifests from
// memory.
//
// Load refuses to return a Store when any artifact was written under
// different version constants than the running build: the chunk manifest
// header, every chunk row, the document manifest, and the latest run-log
// record are all checked. A mismatch is a *core.VersionMismatchError and
// means the corpus must be rebuilt before it can be served.
package chunkstore
