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

package chunkstore

import (
	"errors"
	"fmt"

	"github.com/poiesic/voxdex/core"
)

var (
	// ErrChunkNotFound is returned when a chunk id is not in the manifest.
	// It matches core.ErrNotFound.
	ErrChunkNotFound = fmt.Errorf("chunk %w", core.ErrNotFound)

	// ErrNoRuns is returned when the run log has no record to check
	// versions against.
	ErrNoRuns = errors.New("no ingestion run recorded")
)
