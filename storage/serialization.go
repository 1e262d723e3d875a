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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/poiesic/journalit/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, ord.String.Size(string(id)))
	ord.String.Marshal(string(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

// MarshalJournalEntry serializes a JournalEntry to bytes.
func MarshalJournalEntry(entry *core.JournalEntry) []byte {
	buf := make([]byte, journalEntryMUS.Size(*entry))
	journalEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalJournalEntry deserializes a JournalEntry from bytes.
func UnmarshalJournalEntry(data []byte) (*core.JournalEntry, error) {
	entry, _, err := journalEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}

// MarshalConversationTurn serializes a ConversationTurn to bytes.
func MarshalConversationTurn(turn *core.ConversationTurn) []byte {
	buf := make([]byte, conversationTurnMUS.Size(*turn))
	conversationTurnMUS.Marshal(*turn, buf)
	return buf
}

// UnmarshalConversationTurn deserializes a ConversationTurn from bytes.
func UnmarshalConversationTurn(data []byte) (*core.ConversationTurn, error) {
	turn, _, err := conversationTurnMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &turn, nil
}

// MarshalVector serializes an embedding vector to bytes.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, vectorMUS.Size(vector))
	vectorMUS.Marshal(vector, buf)
	return buf
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	vector, _, err := vectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return vector, nil
}
