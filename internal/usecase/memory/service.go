// Package memory resolves remembered user preferences for a query and
// records completed interactions in the background.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/domain"
	"github.com/cellarpress/sommelier/internal/metrics"
)

const writeTimeout = 30 * time.Second

// Config holds memory service settings.
type Config struct {
	UserID    string
	TopK      int
	QueueSize int
}

// Service resolves memories for search queries and owns the background
// interaction writer: a bounded queue drained by a single worker, flushed
// on Close. A full queue drops the write rather than blocking a search.
type Service struct {
	store  Store
	embed  Embedder
	userID string
	topK   int
	logger *zap.Logger

	queue chan domain.Interaction
	done  chan struct{}
	once  sync.Once
}

// New creates the memory service and starts its writer goroutine.
func New(store Store, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	s := &Service{
		store:  store,
		embed:  embed,
		userID: cfg.UserID,
		topK:   cfg.TopK,
		logger: logger,
		queue:  make(chan domain.Interaction, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Resolve returns the user's memories most relevant to the query, rendered
// as a "- <text>" block. No matches render to the empty string.
func (s *Service) Resolve(ctx context.Context, query string) (string, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed memory query: %w", err)
	}

	hits, err := s.store.SearchKNN(ctx, s.userID, emb.Embedding, s.topK)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMemoryUnavailable, err)
	}
	if len(hits) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		lines = append(lines, "- "+h.Text)
	}
	return strings.Join(lines, "\n"), nil
}

// List returns every stored memory text for the user.
func (s *Service) List(ctx context.Context) ([]string, error) {
	texts, err := s.store.ListAll(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMemoryUnavailable, err)
	}
	return texts, nil
}

// Record enqueues an interaction for the background writer. It never blocks
// and never fails the caller: when the queue is full the write is dropped
// with a log line.
func (s *Service) Record(i domain.Interaction) {
	select {
	case s.queue <- i:
	default:
		metrics.MemoryWritesTotal.WithLabelValues("dropped").Inc()
		s.logger.Warn("memory write queue full, interaction dropped")
	}
}

// Close stops accepting interactions and drains the queue before returning.
func (s *Service) Close() {
	s.once.Do(func() {
		close(s.queue)
		<-s.done
	})
}

func (s *Service) writeLoop() {
	defer close(s.done)
	for i := range s.queue {
		s.write(i)
	}
}

func (s *Service) write(i domain.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	text := i.Query
	if i.ImageDescription != "" {
		text = fmt.Sprintf("%s\n\n[Analyzed image showed: %s]", i.Query, i.ImageDescription)
	}

	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		metrics.MemoryWritesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("failed to embed interaction", zap.Error(err))
		return
	}

	entry := domain.MemoryEntry{
		ID:        uuid.NewString(),
		UserID:    s.userID,
		Text:      text,
		Response:  i.Response,
		Vector:    emb.Embedding,
		CreatedAt: time.Now(),
	}
	if err := s.store.Add(ctx, entry); err != nil {
		metrics.MemoryWritesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("failed to store interaction", zap.Error(err))
		return
	}

	metrics.MemoryWritesTotal.WithLabelValues("ok").Inc()
}
