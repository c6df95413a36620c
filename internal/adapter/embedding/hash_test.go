package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedderDimensionAndNorm(t *testing.T) {
	e := NewHashEmbedder(64)

	vecs, err := e.Embed(context.Background(), []string{"The sun rises in the east."})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs[0]) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(vecs[0]))
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected unit vector, got squared norm %f", norm)
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)

	a, _ := e.Embed(context.Background(), []string{"shastras and reform"})
	b, _ := e.Embed(context.Background(), []string{"shastras and reform"})
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("same text produced different vectors")
		}
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(256)

	vecs, _ := e.Embed(context.Background(), []string{
		"where does the sun rise",
		"The sun rises in the east and sets in the west",
		"caste is a notion, a state of the mind",
	})

	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected shared words to score higher: related=%f unrelated=%f", related, unrelated)
	}
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(16)

	vecs, err := e.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatal("expected zero vector for empty text")
		}
	}
	if e.ModelName() != "hash" {
		t.Errorf("unexpected model name %s", e.ModelName())
	}
}
