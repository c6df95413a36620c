package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"speechqa/internal/domain"
	"speechqa/internal/port/mocks"
)

func results(texts ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(texts))
	for i, t := range texts {
		out[i] = domain.ScoredChunk{Chunk: domain.Chunk{ID: t, Text: t}, Score: 1 - float64(i)*0.1}
	}
	return out
}

func TestQueryCacheGetPut(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	if _, ok := c.Get("where does the sun rise", 2); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("where does the sun rise", 2, results("a", "b"))

	got, ok := c.Get("where does the sun rise", 2)
	if !ok || len(got) != 2 {
		t.Fatalf("expected hit with 2 results, got %v %v", ok, got)
	}
	if _, ok := c.Get("where does the sun rise", 3); ok {
		t.Error("different k must not share an entry")
	}
	if _, ok := c.Get("  where does the sun rise ", 2); !ok {
		t.Error("surrounding whitespace should not change the key")
	}
}

func TestQueryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	c.Put("q1", 2, results("a"))
	c.Put("q2", 2, results("b"))
	c.Get("q1", 2)
	c.Put("q3", 2, results("c"))

	if _, ok := c.Get("q2", 2); ok {
		t.Error("expected q2 to be evicted")
	}
	if _, ok := c.Get("q1", 2); !ok {
		t.Error("expected q1 to survive")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestQueryCacheTTL(t *testing.T) {
	c := NewQueryCache(10, 10*time.Millisecond)
	c.Put("q", 2, results("a"))

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("q", 2); ok {
		t.Error("expected entry to expire")
	}
}

func TestQueryCacheInvalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("q", 2, results("a"))

	c.Invalidate()

	if _, ok := c.Get("q", 2); ok {
		t.Error("expected miss after invalidate")
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestCachedRetriever(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockRetriever(ctrl)
	ctx := context.Background()

	inner.EXPECT().Search(gomock.Any(), "q", 2).Return(results("a", "b"), nil).Times(2)

	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))

	for i := 0; i < 3; i++ {
		got, err := r.Search(ctx, "q", 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 results, got %d", len(got))
		}
	}

	r.Invalidate()
	if _, err := r.Search(ctx, "q", 2); err != nil {
		t.Fatal(err)
	}
}

func TestCachedRetrieverDoesNotCacheErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockRetriever(ctrl)
	ctx := context.Background()

	boom := errors.New("embedding service down")
	gomock.InOrder(
		inner.EXPECT().Search(gomock.Any(), "q", 2).Return(nil, boom),
		inner.EXPECT().Search(gomock.Any(), "q", 2).Return(results("a"), nil),
	)

	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))

	if _, err := r.Search(ctx, "q", 2); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got, err := r.Search(ctx, "q", 2); err != nil || len(got) != 1 {
		t.Fatalf("expected recovery, got %v %v", got, err)
	}
}
