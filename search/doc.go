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


// Package search implements hybrid retrieval over journal entries.
//
// A retrieval embeds the query and derives attribute predicates from it,
// asks two candidate sources for identifiers, and merges the lists with
// rank.Merge:
//
//   - the vector source ranks records by embedding similarity
//   - the attribute source returns records matching the predicates
//
// Both sources are asked for oversample x topK candidates (2 by default) and
// are queried concurrently. By default a failing source fails the whole
// retrieval; WithPartialResults lets the other source carry it instead.
package search
