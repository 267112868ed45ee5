package health

import "context"

// DBPinger checks review store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// MemoryPinger checks memory store availability.
type MemoryPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
