package memory

import (
	"context"

	"github.com/cellarpress/sommelier/internal/domain"
)

// Store defines the persistence contract for long-term memories.
type Store interface {
	Add(ctx context.Context, e domain.MemoryEntry) error
	SearchKNN(ctx context.Context, userID string, vector []float32, topK int) ([]domain.MemoryHit, error)
	ListAll(ctx context.Context, userID string) ([]string, error)
}

// Embedder vectorizes text for memory lookups and writes.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
