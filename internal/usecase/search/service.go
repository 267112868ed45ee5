// Package search orchestrates hybrid wine review retrieval: optional image
// description, concurrent memory resolution and query classification, the
// embedding decision gate, and the store query, with per-stage timings.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/domain"
	"github.com/cellarpress/sommelier/internal/metrics"
)

// Defaults applied when the request leaves them unset.
const (
	DefaultTopK          = 10
	DefaultMinSimilarity = 0.05
)

// Request are the caller-supplied search parameters. At most the first
// image ref is used.
type Request struct {
	Query         string
	ImageRefs     []string
	TopK          int
	MinSimilarity float64
}

// Service is the retrieval orchestrator.
type Service struct {
	repo       Repository
	classifier Classifier
	memories   MemoryResolver
	vision     ImageDescriber
	embed      Embedder
	recorder   Recorder
	logger     *zap.Logger
}

// New creates a search service. recorder may be nil; completed interactions
// are then not persisted.
func New(
	repo Repository,
	classifier Classifier,
	memories MemoryResolver,
	vision ImageDescriber,
	embed Embedder,
	recorder Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		memories:   memories,
		vision:     vision,
		embed:      embed,
		recorder:   recorder,
		logger:     logger,
	}
}

// Search runs one retrieval. Any collaborator or store failure aborts the
// whole call; no partial results and no retries at this layer.
func (s *Service) Search(ctx context.Context, req Request) (*domain.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	minSimilarity := req.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}

	var timings domain.Timings
	totalStart := time.Now()

	// Stage 1: image description. Runs before memory resolution because the
	// description is folded into the memory lookup text.
	var imageDescription string
	if len(req.ImageRefs) > 0 {
		start := time.Now()
		desc, err := s.vision.Describe(ctx, req.ImageRefs[0])
		if err != nil {
			return nil, searchFailed(err)
		}
		s.recordStage(&timings, domain.StageImage, time.Since(start))
		imageDescription = desc
	}

	memoryQuery := query
	if imageDescription != "" {
		memoryQuery = query + " " + imageDescription
	}

	// Stage 2: memory resolution and classification fan out; the join
	// barrier below is the only synchronization point. Classification always
	// sees the original query, never the image description.
	var (
		wg sync.WaitGroup

		memories string
		memDur   time.Duration
		memErr   error

		classification domain.QueryClassification
		classDur       time.Duration
		classErr       error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		memories, memErr = s.memories.Resolve(ctx, memoryQuery)
		memDur = time.Since(start)
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		classification, classErr = s.classifier.Classify(ctx, query)
		classDur = time.Since(start)
	}()
	wg.Wait()

	s.recordStage(&timings, domain.StageMemory, memDur)
	s.recordStage(&timings, domain.StageClassification, classDur)

	if memErr != nil {
		return nil, searchFailed(memErr)
	}
	if classErr != nil {
		return nil, searchFailed(classErr)
	}

	// Stage 3: the embedding decision gate. Any semantic signal — explicit
	// intent, visual evidence, or remembered preference — broadens retrieval
	// to vector search even when the literal query looks like a filter.
	var embedding []float32
	if classification.Type == domain.TypeSemantic || imageDescription != "" || memories != "" {
		searchText := query
		if imageDescription != "" {
			searchText += " " + imageDescription
		}
		if memories != "" {
			searchText += " " + memories
		}

		start := time.Now()
		emb, err := s.embed.Embed(ctx, searchText)
		if err != nil {
			return nil, searchFailed(err)
		}
		s.recordStage(&timings, domain.StageEmbedding, time.Since(start))
		embedding = emb.Embedding
	}

	// Stage 4: store query through the pooled connection.
	start := time.Now()
	results, err := s.repo.Search(ctx, embedding, minSimilarity, topK, classification)
	if err != nil {
		mode := "filter"
		if embedding != nil {
			mode = "vector"
		}
		metrics.SearchRequestsTotal.WithLabelValues(mode, "error").Inc()
		return nil, searchFailed(err)
	}
	s.recordStage(&timings, domain.StageDB, time.Since(start))

	timings.Record(domain.StageTotal, time.Since(totalStart))

	mode := "filter"
	if embedding != nil {
		mode = "vector"
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode, "success").Inc()
	metrics.SearchResultsReturned.Observe(float64(len(results)))

	result := &domain.SearchResult{
		Results:        results,
		Memories:       memories,
		Classification: classification,
		Timings:        timings,
	}
	if imageDescription != "" {
		result.ImageDescription = &imageDescription
	}

	s.logger.Info("search completed",
		zap.String("mode", mode),
		zap.String("type", string(classification.Type)),
		zap.Int("results", len(results)),
		zap.Duration("total", timings.Total()),
	)

	// Best-effort interaction write, dispatched after the response is
	// assembled. Its failure never reaches the caller.
	if s.recorder != nil {
		s.recorder.Record(domain.Interaction{
			Query:            query,
			Response:         FormatForPrompt(results),
			ImageDescription: imageDescription,
		})
	}

	return result, nil
}

func (s *Service) recordStage(t *domain.Timings, stage string, d time.Duration) {
	t.Record(stage, d)
	metrics.SearchStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// searchFailed wraps a collaborator or store failure so callers can match
// both the sentinel and the underlying cause.
func searchFailed(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
}
