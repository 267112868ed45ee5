package search

import (
	"context"

	"github.com/cellarpress/sommelier/internal/domain"
)

// Repository defines the storage contract for review retrieval. A nil
// embedding requests the filter-only plan.
type Repository interface {
	Search(
		ctx context.Context,
		embedding []float32,
		minSimilarity float64,
		topK int,
		filters domain.QueryClassification,
	) ([]domain.Review, error)
}

// Classifier maps free text to a structured filter/intent record.
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.QueryClassification, error)
}

// MemoryResolver renders the remembered user preferences relevant to a query.
type MemoryResolver interface {
	Resolve(ctx context.Context, query string) (string, error)
}

// ImageDescriber maps an image reference to a short text description.
type ImageDescriber interface {
	Describe(ctx context.Context, imageURL string) (string, error)
}

// Embedder vectorizes the combined search text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Recorder accepts completed interactions for best-effort background
// persistence. Implementations must not block.
type Recorder interface {
	Record(i domain.Interaction)
}
