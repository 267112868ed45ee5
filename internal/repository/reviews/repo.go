// Package reviews implements hybrid vector+filter retrieval over the
// wine review table in Postgres (pgvector).
package reviews

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/db/postgres"
	"github.com/cellarpress/sommelier/internal/domain"
)

// Repo executes review searches through the shared connection pool.
type Repo struct {
	pool   *postgres.Pool
	logger *zap.Logger
}

// New creates a review repository.
func New(pool *postgres.Pool, logger *zap.Logger) *Repo {
	return &Repo{pool: pool, logger: logger}
}

// Search runs one hybrid or filter-only query. A nil embedding selects the
// filter-only plan. The connection lease is scoped to this call: rows are
// closed on every path, including scan errors, so a failing query never
// leaks a pool connection.
func (r *Repo) Search(
	ctx context.Context,
	embedding []float32,
	minSimilarity float64,
	topK int,
	filters domain.QueryClassification,
) ([]domain.Review, error) {
	p := SearchParams{
		Embedding:     embedding,
		MinSimilarity: minSimilarity,
		TopK:          topK,
		Filters:       filters,
	}
	sql, args := buildQuery(p)

	r.logger.Debug("executing review search",
		zap.Bool("vector", p.Embedding != nil),
		zap.Int("top_k", p.TopK),
		zap.Int("bound_args", len(args)),
	)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search reviews: %w", err)
	}
	defer rows.Close()

	hasSimilarity := p.Embedding != nil

	var results []domain.Review
	for rows.Next() {
		var rec domain.Review
		dest := []any{
			&rec.ID, &rec.Title, &rec.Variety, &rec.Winery, &rec.Country,
			&rec.Province, &rec.Description, &rec.Points, &rec.Price,
			&rec.TasterName, &rec.TasterHandle,
		}
		if hasSimilarity {
			dest = append(dest, &rec.Similarity)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return results, nil
}
