package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/core"
)

// MockAnalyzer is a test double for ai.Analyzer.
//
// The default behavior reads markers out of the text: words starting with
// '@' become people and words starting with '#' become tags. The summary is
// the text itself.
type MockAnalyzer struct {
	AnalyzeJournalFunc        func(ctx context.Context, text string) (*ai.JournalAnalysis, error)
	SummarizeConversationFunc func(ctx context.Context, userMessage, aiResponse string) (*ai.TurnSummary, error)
	ExtractFilterFunc         func(ctx context.Context, query string) (core.AttributeFilter, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.Analyzer = (*MockAnalyzer)(nil)

// NewMockAnalyzer creates a mock analyzer with default behavior.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

func (m *MockAnalyzer) record() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// AnalyzeJournal returns the text as its own summary with marker metadata.
func (m *MockAnalyzer) AnalyzeJournal(ctx context.Context, text string) (*ai.JournalAnalysis, error) {
	m.record()
	if m.AnalyzeJournalFunc != nil {
		return m.AnalyzeJournalFunc(ctx, text)
	}
	people, tags := markers(text)
	return &ai.JournalAnalysis{
		Summary:  strings.TrimSpace(text),
		Metadata: core.Metadata{People: people, Tags: tags},
	}, nil
}

// SummarizeConversation joins both sides of the exchange.
func (m *MockAnalyzer) SummarizeConversation(ctx context.Context, userMessage, aiResponse string) (*ai.TurnSummary, error) {
	m.record()
	if m.SummarizeConversationFunc != nil {
		return m.SummarizeConversationFunc(ctx, userMessage, aiResponse)
	}
	_, topics := markers(userMessage)
	return &ai.TurnSummary{
		Summary:  strings.TrimSpace(userMessage) + " / " + strings.TrimSpace(aiResponse),
		Metadata: core.Metadata{Topics: topics},
	}, nil
}

// ExtractFilter builds a filter from the markers in query.
func (m *MockAnalyzer) ExtractFilter(ctx context.Context, query string) (core.AttributeFilter, error) {
	m.record()
	if m.ExtractFilterFunc != nil {
		return m.ExtractFilterFunc(ctx, query)
	}
	people, tags := markers(query)
	return core.AttributeFilter{People: people, Tags: tags}.Normalized(), nil
}

// CallCount returns the number of times any method was called.
func (m *MockAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockAnalyzer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.AnalyzeJournalFunc = nil
	m.SummarizeConversationFunc = nil
	m.ExtractFilterFunc = nil
}

func markers(text string) (people, tags []string) {
	for _, word := range strings.Fields(text) {
		word = strings.TrimRight(word, ".,!?;:")
		switch {
		case len(word) > 1 && word[0] == '@':
			people = append(people, word[1:])
		case len(word) > 1 && word[0] == '#':
			tags = append(tags, word[1:])
		}
	}
	return people, tags
}
