package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingClient struct {
	dims  int
	calls int
	err   error
	short bool
}

func (f *fakeEmbeddingClient) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, f.dims)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (f *fakeEmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func newTestEmbedder(client *fakeEmbeddingClient) *Embedder {
	return &Embedder{client: client, logger: slog.Default()}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	client := &fakeEmbeddingClient{dims: 4}
	e := newTestEmbedder(client)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(3), vectors[1][0])
	assert.Equal(t, 4, e.Dimensions())

	v, err := e.EmbedText(context.Background(), "cc")
	require.NoError(t, err)
	assert.Len(t, v, 4)

	empty, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 2, client.calls, "empty batch makes no request")
}

func TestEmbedder_Errors(t *testing.T) {
	t.Run("blank text", func(t *testing.T) {
		client := &fakeEmbeddingClient{dims: 2}
		_, err := newTestEmbedder(client).EmbedTexts(context.Background(), []string{"ok", "  "})
		assert.ErrorIs(t, err, ErrBlankText)
		assert.Zero(t, client.calls)
	})

	t.Run("service error", func(t *testing.T) {
		boom := errors.New("503")
		_, err := newTestEmbedder(&fakeEmbeddingClient{err: boom}).EmbedText(context.Background(), "x")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("short result", func(t *testing.T) {
		_, err := newTestEmbedder(&fakeEmbeddingClient{dims: 2, short: true}).EmbedTexts(context.Background(), []string{"a", "b"})
		assert.ErrorContains(t, err, "returned 1 vectors")
	})

	t.Run("dimension change", func(t *testing.T) {
		client := &fakeEmbeddingClient{dims: 3}
		e := newTestEmbedder(client)
		_, err := e.EmbedText(context.Background(), "x")
		require.NoError(t, err)

		client.dims = 5
		_, err = e.EmbedText(context.Background(), "x")
		assert.ErrorIs(t, err, ErrDimensionChanged)
	})

	t.Run("cancelled while rate limited", func(t *testing.T) {
		e := newTestEmbedder(&fakeEmbeddingClient{dims: 2})
		e.limiter = newLimiter(0.001)
		require.True(t, e.limiter.Allow())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.EmbedText(ctx, "x")
		assert.Error(t, err)
	})
}
