// Package memory persists long-term user memories in Redis. Each memory is
// a hash carrying the text and its embedding; retrieval is a KNN vector
// search via FT.SEARCH scoped to one user.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/cellarpress/sommelier/internal/domain"
)

// ErrKeyNotFound signals a missing key in the KV part of the store.
var ErrKeyNotFound = errors.New("key not found")

const indexSuffix = "memories_idx"

// Config holds connection parameters for the memory store.
type Config struct {
	Addrs      []string
	Password   string
	KeyPrefix  string
	Dimensions int
}

// Store implements memory persistence via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
	index  string
	dims   int
}

// NewStore creates a Redis-backed memory store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{
		client: client,
		prefix: cfg.KeyPrefix,
		index:  cfg.KeyPrefix + indexSuffix,
		dims:   cfg.Dimensions,
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for memory store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureIndex creates the memory FT index if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context) error {
	args := []string{
		s.index,
		"ON", "HASH",
		"PREFIX", "1", s.memoryKeyPrefix(),
		"SCHEMA",
		"user_id", "TAG",
		"text", "TEXT",
		"vector", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dims),
		"DISTANCE_METRIC", "COSINE",
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("create memory index: %w", err)
	}
	return nil
}

// Add stores one memory hash.
func (s *Store) Add(ctx context.Context, e domain.MemoryEntry) error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if len(e.Vector) != s.dims {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(e.Vector), s.dims)
	}

	cmd := s.client.B().Hset().Key(s.memoryKey(e.ID)).FieldValue().
		FieldValue("user_id", e.UserID).
		FieldValue("text", e.Text).
		FieldValue("response", e.Response).
		FieldValue("vector", vectorToBytes(e.Vector)).
		FieldValue("created_at", e.CreatedAt.UTC().Format(time.RFC3339)).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("store memory %s: %w", e.ID, err)
	}
	return nil
}

// SearchKNN returns the topK memories of one user closest to the vector,
// most similar first.
func (s *Store) SearchKNN(ctx context.Context, userID string, vector []float32, topK int) ([]domain.MemoryHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), s.dims)
	}

	queryStr := fmt.Sprintf("(@user_id:{%s})=>[KNN %d @vector $BLOB]", escapeTag(userID), topK)

	args := []string{
		s.index, queryStr,
		"RETURN", "2", "text", "__vector_score",
		"SORTBY", "__vector_score",
		"LIMIT", "0", strconv.Itoa(topK),
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	return parseKNNResult(raw)
}

// ListAll returns every memory text for one user (insertion order not
// guaranteed). Backs the /memories view.
func (s *Store) ListAll(ctx context.Context, userID string) ([]string, error) {
	queryStr := fmt.Sprintf("@user_id:{%s}", escapeTag(userID))

	cmd := s.client.B().Arbitrary("FT.SEARCH").
		Args(s.index, queryStr, "RETURN", "1", "text", "LIMIT", "0", "1000", "DIALECT", "2").
		Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	hits, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
	}
	return texts, nil
}

// Get retrieves a KV value (embedding cache).
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a KV value (embedding cache).
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) memoryKeyPrefix() string {
	return s.prefix + "memory:"
}

func (s *Store) memoryKey(id string) string {
	return s.memoryKeyPrefix() + id
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}
