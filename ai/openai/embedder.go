package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/poiesic/journalit/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

var (
	// ErrBlankText is returned when asked to embed an empty or
	// whitespace-only string.
	ErrBlankText = errors.New("cannot embed blank text")

	// ErrDimensionChanged is returned when the service starts answering
	// with vectors of a different width than before.
	ErrDimensionChanged = errors.New("embedding dimensions changed")
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Summaries are sent with newlines stripped.
type Embedder struct {
	client     embeddings.Embedder
	limiter    *rate.Limiter
	dimensions atomic.Int64
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config, limiter *rate.Limiter) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}

	client, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}

	return &Embedder{
		client:  client,
		limiter: limiter,
		logger:  slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates a standalone embedder with its own rate limiter.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, newLimiter(config.RequestsPerSecond))
}

// EmbedText embeds a single summary or query.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in one request. The result is parallel to texts.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.embed(ctx, texts)
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: position %d", ErrBlankText, i)
		}
	}

	if err := wait(ctx, e.limiter); err != nil {
		return nil, err
	}

	e.logger.Debug("requesting embeddings", "count", len(texts))
	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embedding request failed", "count", len(texts), "err", err)
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed %d texts: service returned %d vectors", len(texts), len(vectors))
	}

	for _, v := range vectors {
		if err := e.checkDimensions(len(v)); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// checkDimensions remembers the first vector width seen and rejects any
// later vector of a different width.
func (e *Embedder) checkDimensions(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionChanged)
	}
	if e.dimensions.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := e.dimensions.Load(); want != int64(n) {
		return fmt.Errorf("%w: expected %d, received %d", ErrDimensionChanged, want, n)
	}
	return nil
}

// Dimensions returns the vector width seen so far, or zero before the
// first request.
func (e *Embedder) Dimensions() int {
	return int(e.dimensions.Load())
}
