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


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/journalit/ai"
	"github.com/poiesic/journalit/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

const maxParseAttempts = 3

// ErrEmptyResponse is returned when the model produces no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Analyzer implements ai.Analyzer using OpenAI-compatible chat APIs.
type Analyzer struct {
	client       llms.Model
	limiter      *rate.Limiter
	maxListItems int
	logger       *slog.Logger
}

var _ ai.Analyzer = (*Analyzer)(nil)

// metadataResponse matches the metadata object the prompts ask for.
type metadataResponse struct {
	Date        *string  `json:"date"`
	Mood        string   `json:"mood"`
	People      []string `json:"people"`
	Tags        []string `json:"tags"`
	Topics      []string `json:"topics"`
	Emotions    []string `json:"emotions"`
	StressLevel string   `json:"stress_level"`
}

type summaryResponse struct {
	Summary  string           `json:"summary"`
	Metadata metadataResponse `json:"metadata"`
}

type filterResponse struct {
	People      []string `json:"people"`
	Emotions    []string `json:"emotions"`
	Tags        []string `json:"tags"`
	Date        *string  `json:"date"`
	Mood        string   `json:"mood"`
	StressLevel string   `json:"stress_level"`
}

// newAnalyzer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnalyzer(config *ai.Config, limiter *rate.Limiter) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.AnalyzerHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.AnalyzerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		client:       client,
		limiter:      limiter,
		maxListItems: config.MaxListItems,
		logger:       slog.Default().With("component", "openai-analyzer"),
	}, nil
}

// NewAnalyzer creates a new analyzer using the provided configuration.
//
// Returns ai.Analyzer interface to enforce abstraction.
func NewAnalyzer(config *ai.Config) (ai.Analyzer, error) {
	return newAnalyzer(config, newLimiter(config.RequestsPerSecond))
}

// AnalyzeJournal summarizes a journal entry and extracts its metadata.
func (a *Analyzer) AnalyzeJournal(ctx context.Context, text string) (*ai.JournalAnalysis, error) {
	var resp summaryResponse
	if err := a.generateJSON(ctx, buildJournalPrompt(a.maxListItems), text, &resp); err != nil {
		return nil, fmt.Errorf("analyze journal: %w", err)
	}
	return &ai.JournalAnalysis{
		Summary:  strings.TrimSpace(resp.Summary),
		Metadata: a.toMetadata(resp.Metadata),
	}, nil
}

// SummarizeConversation condenses one user/assistant exchange.
func (a *Analyzer) SummarizeConversation(ctx context.Context, userMessage, aiResponse string) (*ai.TurnSummary, error) {
	var resp summaryResponse
	input := buildConversationInput(userMessage, aiResponse)
	if err := a.generateJSON(ctx, buildConversationPrompt(a.maxListItems), input, &resp); err != nil {
		return nil, fmt.Errorf("summarize conversation: %w", err)
	}
	return &ai.TurnSummary{
		Summary:  strings.TrimSpace(resp.Summary),
		Metadata: a.toMetadata(resp.Metadata),
	}, nil
}

// ExtractFilter derives attribute predicates from a search query.
func (a *Analyzer) ExtractFilter(ctx context.Context, query string) (core.AttributeFilter, error) {
	var resp filterResponse
	if err := a.generateJSON(ctx, buildFilterPrompt(), query, &resp); err != nil {
		return core.AttributeFilter{}, fmt.Errorf("extract filter: %w", err)
	}
	filter := core.AttributeFilter{
		People:      resp.People,
		Emotions:    resp.Emotions,
		Tags:        resp.Tags,
		Date:        cleanDate(resp.Date),
		Mood:        resp.Mood,
		StressLevel: cleanStressLevel(resp.StressLevel),
	}.Normalized()

	a.logger.Debug("extracted filter",
		"people", len(filter.People),
		"emotions", len(filter.Emotions),
		"tags", len(filter.Tags),
		"empty", filter.IsEmpty())
	return filter, nil
}

// toMetadata converts a model response into core.Metadata, dropping values
// that fail validation rather than rejecting the whole analysis.
func (a *Analyzer) toMetadata(m metadataResponse) core.Metadata {
	md := core.Metadata{
		Date:        cleanDate(m.Date),
		Mood:        core.NormalizeAttribute(m.Mood),
		People:      cleanList(m.People),
		Tags:        cleanList(m.Tags),
		Topics:      cleanList(m.Topics),
		Emotions:    cleanList(m.Emotions),
		StressLevel: cleanStressLevel(m.StressLevel),
	}
	md.Limit(a.maxListItems)
	return md
}

// generateJSON sends system and user prompts and decodes the reply into out.
// Malformed replies are retried up to maxParseAttempts times.
func (a *Analyzer) generateJSON(ctx context.Context, system, user string, out any) error {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		if err := wait(ctx, a.limiter); err != nil {
			return err
		}
		response, err := a.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			a.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			return ErrEmptyResponse
		}

		responseText := repairJSON(stripCodeFences(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = err
			a.logger.Warn("error parsing analyzer response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return nil
	}

	a.logger.Error("failed to parse analyzer response after retries", "err", lastErr)
	return lastErr
}
