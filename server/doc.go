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

// Package server exposes retrieval over HTTP with gin.
//
// Routes:
//   - POST /search      run one retrieval
//   - POST /classify    classify a query into a question type
//   - POST /synthesize  classify (when needed), retrieve and answer
//   - GET  /healthz     artifact versions, chunk count and latest run
//
// Failures are returned as {"error": {"code": ..., "message": ...}} and
// never include stack traces.
package server
