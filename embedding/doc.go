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

// Package embedding turns chunk and document fields into normalized vectors.
//
// A Client splits its input into fixed-size batches, runs them on a bounded
// worker pool under a shared rate limit, and retries each batch with capped
// exponential backoff. A batch that exhausts its retries fails the whole
// call with core.ErrEmbeddingBatch. Returned vectors have unit length so
// that dot product equals cosine similarity.
package embedding
