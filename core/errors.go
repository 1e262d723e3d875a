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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidJournalEntry indicates a JournalEntry failed validation.
	ErrInvalidJournalEntry = errors.New("invalid journal entry")

	// ErrInvalidConversationTurn indicates a ConversationTurn failed validation.
	ErrInvalidConversationTurn = errors.New("invalid conversation turn")

	// ErrInvalidMetadata indicates Metadata failed validation.
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyContent indicates a required text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyUserID indicates the user scope is missing.
	ErrEmptyUserID = errors.New("user id cannot be empty")

	// ErrEmptyID indicates a record identifier is missing.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrInvalidStressLevel indicates an unknown stress level value.
	ErrInvalidStressLevel = errors.New("invalid stress level")

	// ErrInvalidDate indicates a metadata date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRecordKind indicates an unknown RecordKind value.
	ErrInvalidRecordKind = errors.New("invalid record kind")
)
