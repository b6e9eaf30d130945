package vectorindex

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

type countingEmbedder struct {
	calls int
	dims  int
}

func (e *countingEmbedder) Dimensions() int { return e.dims }

func (e *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func TestCachedEmbeddingClient_SkipsProviderOnRepeat(t *testing.T) {
	inner := &countingEmbedder{dims: 3}
	cached := NewCachedEmbeddingClient(inner, NewEmbeddingCache(time.Minute), slog.New(slog.NewTextHandler(discardWriter{}, nil)))

	if _, err := cached.EmbedTexts(context.Background(), []string{"hello world"}); err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if _, err := cached.EmbedTexts(context.Background(), []string{"Hello World  "}); err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner.calls = %d, want 1 (normalized repeat should hit cache)", inner.calls)
	}
}

func TestCachedEmbeddingClient_PartialHitOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{dims: 3}
	cache := NewEmbeddingCache(time.Minute)
	cached := NewCachedEmbeddingClient(inner, cache, slog.New(slog.NewTextHandler(discardWriter{}, nil)))

	if _, err := cached.EmbedTexts(context.Background(), []string{"seen already"}); err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	vecs, err := cached.EmbedTexts(context.Background(), []string{"seen already", "brand new"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(vecs) != 2 || vecs[0] == nil || vecs[1] == nil {
		t.Fatalf("expected both results populated, got %+v", vecs)
	}
	if inner.calls != 2 {
		t.Errorf("inner.calls = %d, want 2 (one for the first call, one for the single miss)", inner.calls)
	}
}

func TestCachedEmbeddingClient_DimensionsDelegates(t *testing.T) {
	inner := &countingEmbedder{dims: 768}
	cached := NewCachedEmbeddingClient(inner, NewEmbeddingCache(time.Minute), slog.New(slog.NewTextHandler(discardWriter{}, nil)))
	if cached.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", cached.Dimensions())
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
