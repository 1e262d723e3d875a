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


// Package storage provides the storage abstraction layer for journalit.
//
// Three repositories back retrieval:
//
//   - JournalRepository: journal entries plus the attribute index that
//     answers structured metadata filters
//   - ConversationRepository: summarized conversation turns, queried by recency
//   - VectorIndex: summary embeddings queried by cosine similarity
//
// The badger subpackage implements all three on an embedded BadgerDB. The
// postgres subpackage implements VectorIndex on PostgreSQL with pgvector and
// is the production choice for vectors.
//
// # Usage
//
// Open every badger-backed store at once:
//
//	stores, err := badger.OpenStores("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//
// # Scoping
//
// Every read takes the user id and never returns another user's records.
// ForEach methods are the exception; they walk the whole store for
// maintenance jobs such as re-embedding.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
package storage
