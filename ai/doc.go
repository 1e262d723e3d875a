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


// Package ai provides abstractions for the AI services journalit depends on.
//
// Two services are defined:
//
//   - Embedder: generates vector embeddings from text
//   - Analyzer: summarizes journal entries and conversation turns, extracts
//     their metadata and derives attribute filters from search queries
//
// AIProvider bundles both behind one lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and count calls.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "slept badly again")
//	filter, err := provider.Analyzer().ExtractFilter(ctx, "times I argued with Sam")
package ai
