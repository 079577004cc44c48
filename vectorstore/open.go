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

package vectorstore

import (
	"fmt"
	"path/filepath"

	"github.com/poiesic/voxdex/config"
	"github.com/poiesic/voxdex/storage"
	"github.com/poiesic/voxdex/storage/badger"
	"github.com/poiesic/voxdex/storage/qdrant"
)

// Backend names accepted in storage.vector_backend.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// Open connects the vector store configured in cfg.
func Open(cfg config.StorageConfig) (storage.VectorStore, error) {
	switch cfg.VectorBackend {
	case "", BackendBadger:
		return badger.OpenVectorStore(filepath.Join(cfg.IndexDir, "vectors"))
	case BackendQdrant:
		return qdrant.New(cfg.QdrantAddr, cfg.QdrantPrefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.VectorBackend)
	}
}

// OpenManager opens the configured store and wraps it in a Manager.
func OpenManager(cfg config.StorageConfig) (*Manager, error) {
	store, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewManager(store), nil
}
