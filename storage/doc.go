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


// Package storage provides the storage abstraction layer for wayfarer.
//
// The Repository interface decouples the loader and maintenance commands
// from the backend. Two implementations exist:
//
//   - storage/badger: embedded key-value store, the default
//   - storage/sqlite: single-file SQL store with migrations
//
// # Uniqueness
//
// Both backends enforce a unique source URL on insert and reject the whole
// batch with ErrDuplicateKey on conflict. Records without a URL are not
// deduplicated by the store; callers that need that use Exists first.
//
// # Usage
//
//	repo, err := badger.NewMemoryRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
