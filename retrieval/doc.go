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

// Package retrieval answers queries against the four embedding collections.
//
// An Orchestrator resolves a retrieval profile from the question type,
// embeds the query (plus expanded sub-queries for profiles that ask for
// them), fans out one similarity query per collection and sub-query, and
// joins them before merging. Merging keeps one hit per chunk with the
// highest score; equal scores break by collection priority
// (primary, summary, intents, docsum) and then by chunk id. Document
// summary hits stand in for the document's first chunk.
//
// After merging, profiles with min_docs requery for documents not yet
// covered, the list is capped, optionally clustered by theme or document,
// and finally narrowed by caller supplied intent and sentiment filters.
package retrieval
