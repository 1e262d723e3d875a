// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without external AI services and give controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0, 0}, nil
//	}
//	count := provider.GetMockEmbedder().CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic unit vectors based on a text hash
//   - MockAnalyzer: uses the text as its summary and reads @people and #tags
//     markers out of it
//   - MockProvider: aggregates mock embedder and analyzer
package mock
