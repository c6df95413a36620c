package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"speechqa/config"
	"speechqa/internal/adapter/retriever"
	"speechqa/internal/adapter/store"
	"speechqa/internal/app"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding speechqa.yaml and the vector index")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", retriever.DefaultTopK, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("\nReports, without calling the language model:")
		fmt.Println("  1. Embedding infrastructure (model connection, vector store)")
		fmt.Println("  2. Retrieval latency")
		fmt.Println("  3. Similarity of the retrieved chunks")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(*dir)
	persistDir := config.Resolve(*dir, cfg.Index.PersistDir)

	embedder, err := app.NewEmbedder(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	idx, err := store.Open(persistDir, embedder.Dimension(), false)
	if err != nil {
		if errors.Is(err, store.ErrNoIndex) {
			fmt.Fprintln(os.Stderr, "No index - run 'speechqa index' first")
		} else {
			fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		}
		os.Exit(1)
	}
	defer idx.Close()

	manifest, _ := idx.Docs.GetManifest()
	count, _ := idx.Vectors.Count()

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Embeddings indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	if !manifest.BuiltAt.IsZero() {
		fmt.Printf("Built: %s from %s\n", manifest.BuiltAt.Local().Format(time.DateTime), manifest.SourcePath)
	}
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	ret := retriever.NewSemanticRetriever(idx.Vectors, embedder, idx.Docs, *topK)

	start := time.Now()
	results, err := ret.Search(context.Background(), *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	if len(results) == 0 {
		fmt.Println("No chunks indexed.")
		return
	}

	fmt.Printf("Top %d matches in %s:\n\n", len(results), elapsed.Round(time.Millisecond))

	totalScore := 0.0
	for i, r := range results {
		preview := []rune(r.Chunk.Text)
		text := string(preview)
		if len(preview) > 150 {
			text = string(preview[:150]) + "..."
		}
		text = strings.ReplaceAll(text, "\n", " ")

		similarity := r.Score
		totalScore += similarity

		rating := "LOW"
		if similarity > 0.7 {
			rating = "HIGH"
		} else if similarity > 0.5 {
			rating = "GOOD"
		} else if similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] chunk %d, chars %d-%d\n", i+1, rating, similarity, r.Chunk.Index, r.Chunk.Start, r.Chunk.End)
		fmt.Printf("   %s\n\n", text)
	}

	avgScore := totalScore / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)

	if avgScore > 0.5 {
		fmt.Println("  Status: GOOD - retrieval working well")
	} else if avgScore > 0.3 {
		fmt.Println("  Status: OK - results are somewhat related")
	} else {
		fmt.Println("  Status: POOR - may need better embeddings or re-indexing")
	}
}
