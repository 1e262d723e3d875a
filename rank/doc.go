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


// Package rank merges candidate lists from the vector and attribute sources
// into a single ranking.
//
// Every occurrence of an identifier in the vector list adds VectorWeight to
// its score and every occurrence in the attribute list adds AttributeWeight.
// Identifiers are returned by descending score. Ties keep the order in which
// identifiers were first seen, scanning the vector list before the attribute
// list.
//
//	ids, err := rank.Merge([]string{"a", "b"}, []string{"b", "c"}, 3)
//	// ids == []string{"b", "c", "a"}
//
// The functions are pure and safe for concurrent use.
package rank
