package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dshills/pagesense/internal/embedder"
	"github.com/dshills/pagesense/internal/ranker"
)

// embedcheck probes the embedding provider configured in the environment:
// readiness, dimension, determinism, and whether related texts actually
// score closer than unrelated ones.
func main() {
	_ = godotenv.Load()
	log.SetOutput(os.Stderr)

	fmt.Println("Checking embedding provider...")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	emb, err := embedder.NewFromEnv(logger)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	defer func() { _ = emb.Close() }()

	fmt.Printf("Provider model: %s\n", emb.Model())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if w, ok := emb.(embedder.ReadyWaiter); ok {
		fmt.Println("Waiting for model readiness...")
		if err := w.WaitReady(ctx); err != nil {
			log.Fatalf("Model never became ready: %v", err)
		}
	}
	state := emb.State()
	fmt.Printf("Model state: %s (progress %d%%)\n", state.Status, state.Progress)

	texts := []string{
		"The quarterly earnings report showed strong revenue growth.",
		"Profits rose sharply according to the latest financial results.",
		"The recipe calls for two cups of flour and a pinch of salt.",
	}

	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		log.Fatalf("Batch embedding failed: %v", err)
	}
	fmt.Printf("Embedded %d texts, dimension %d\n", len(vectors), len(vectors[0]))

	// Determinism: a repeat call must return the identical vector.
	again, err := emb.Embed(ctx, texts[0])
	if err != nil {
		log.Fatalf("Repeat embedding failed: %v", err)
	}
	for i := range again {
		if again[i] != vectors[0][i] {
			log.Fatalf("Embedding not deterministic at component %d", i)
		}
	}
	fmt.Println("Determinism: OK")

	related, err := ranker.Similarity(vectors[0], vectors[1])
	if err != nil {
		log.Fatalf("Similarity failed: %v", err)
	}
	unrelated, err := ranker.Similarity(vectors[0], vectors[2])
	if err != nil {
		log.Fatalf("Similarity failed: %v", err)
	}
	fmt.Printf("Related pair similarity:   %.4f\n", related)
	fmt.Printf("Unrelated pair similarity: %.4f\n", unrelated)
	if related <= unrelated {
		fmt.Println("WARNING: related texts did not score higher; provider quality is suspect")
	} else {
		fmt.Println("Semantic ordering: OK")
	}
}
