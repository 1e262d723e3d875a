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


package search

import "errors"

var (
	// ErrVectorSourceRequired is returned when a vector candidate source is not provided.
	ErrVectorSourceRequired = errors.New("vector candidate source required")

	// ErrAttributeSourceRequired is returned when an attribute candidate source is not provided.
	ErrAttributeSourceRequired = errors.New("attribute candidate source required")

	// ErrJournalRepositoryRequired is returned when a journal repository is not provided.
	ErrJournalRepositoryRequired = errors.New("journal repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidOption is returned when an option value is out of range.
	ErrInvalidOption = errors.New("invalid searcher option")

	// ErrEmbeddingFailed wraps query embedding failures.
	ErrEmbeddingFailed = errors.New("query embedding failed")

	// ErrFilterExtractionFailed wraps query filter extraction failures.
	ErrFilterExtractionFailed = errors.New("query filter extraction failed")

	// ErrVectorSourceFailed wraps vector candidate source failures.
	ErrVectorSourceFailed = errors.New("vector candidate source failed")

	// ErrAttributeSourceFailed wraps attribute candidate source failures.
	ErrAttributeSourceFailed = errors.New("attribute candidate source failed")

	// ErrAllSourcesFailed is returned when partial results are enabled and
	// both candidate sources fail.
	ErrAllSourcesFailed = errors.New("all candidate sources failed")
)
