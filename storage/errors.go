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
	"errors"
	"fmt"

	"github.com/poiesic/journalit/core"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// one the index was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// ValidateRecordScope checks the user and record id that key every
// stored embedding.
func ValidateRecordScope(userID string, id core.ID) error {
	if userID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, core.ErrEmptyUserID)
	}
	if id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, core.ErrEmptyID)
	}
	return nil
}
