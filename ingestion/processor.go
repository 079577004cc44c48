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

import (
	"context"

	"github.com/poiesic/voxdex/core"
	"github.com/poiesic/voxdex/enrich"
	"github.com/poiesic/voxdex/vectorstore"
)

// batch is the working set of one run. Each processor fills in the fields
// later processors depend on.
type batch struct {
	inputs      []enrich.DocumentInput
	enrichments []core.DocumentEnrichment
	chunks      []core.Chunk
	sets        vectorstore.Sets
	counts      *core.RunCounts
}

// processor is one stage of a run.
type processor interface {
	// name identifies the stage in logs.
	name() string

	// process advances b.
	process(ctx context.Context, b *batch) error
}
