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

import (
	"fmt"
	"time"
)

// ValidateJournalEntry validates a JournalEntry according to domain rules.
//
// Validation rules:
//   - UserId must not be empty
//   - Text must not be empty
//   - Metadata must be valid
//   - CreatedAt must not be in the future
//
// NOT validated:
//   - Id (assigned by the indexing pipeline)
//   - Summary (may be empty when analysis produced none)
func ValidateJournalEntry(entry *JournalEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidJournalEntry)
	}

	if entry.UserId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJournalEntry, ErrEmptyUserID)
	}

	if entry.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJournalEntry, ErrEmptyContent)
	}

	if err := ValidateMetadata(&entry.Metadata); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJournalEntry, err)
	}

	if !IsValidTimestamp(entry.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidJournalEntry, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateConversationTurn validates a ConversationTurn.
// Both sides of the exchange must be present.
func ValidateConversationTurn(turn *ConversationTurn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidConversationTurn)
	}
	if turn.UserId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConversationTurn, ErrEmptyUserID)
	}
	if turn.UserMessage == "" || turn.AIResponse == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConversationTurn, ErrEmptyContent)
	}
	if err := ValidateMetadata(&turn.Metadata); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConversationTurn, err)
	}
	if !IsValidTimestamp(turn.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidConversationTurn, ErrInvalidTimestamp)
	}
	return nil
}

// ValidateMetadata checks the closed-vocabulary fields of Metadata.
func ValidateMetadata(m *Metadata) error {
	if m == nil {
		return fmt.Errorf("%w: metadata is nil", ErrInvalidMetadata)
	}
	if err := ValidateStressLevel(m.StressLevel); err != nil {
		return err
	}
	return ValidateDate(m.Date)
}

// ValidateStressLevel accepts the three known levels and the empty value.
func ValidateStressLevel(level StressLevel) error {
	switch level {
	case "", StressLevelLow, StressLevelMedium, StressLevelHigh:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidStressLevel, level)
}

// ValidateDate accepts an empty string or a YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// ValidateRecordKind checks that kind is one of RecordKinds.
func ValidateRecordKind(kind RecordKind) error {
	if kind != RecordKindJournal && kind != RecordKindConversation {
		return fmt.Errorf("%w: %q", ErrInvalidRecordKind, kind)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
