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


package badger

// Stores bundles every badger-backed repository over one Backend.
type Stores struct {
	Backend       *Backend
	Journals      *JournalRepository
	Conversations *ConversationRepository
	Vectors       *VectorIndex
}

// OpenStores opens a BadgerDB database at filePath and creates all
// repositories on it.
func OpenStores(filePath string) (*Stores, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}
	return newStores(backend)
}

// NewMemoryStores creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryStores() (*Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newStores(backend)
}

func newStores(backend *Backend) (*Stores, error) {
	journals, err := NewJournalRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	conversations, err := NewConversationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	vectors, err := NewVectorIndex(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &Stores{
		Backend:       backend,
		Journals:      journals,
		Conversations: conversations,
		Vectors:       vectors,
	}, nil
}

// Close closes the repositories and then the backend.
func (s *Stores) Close() error {
	s.Vectors.Close()
	s.Conversations.Close()
	s.Journals.Close()
	return s.Backend.Close()
}
