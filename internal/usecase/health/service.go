package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across the review store, the memory
// store, and the embedding provider.
type Service struct {
	db        DBPinger
	memory    MemoryPinger
	embedding EmbeddingChecker
}

// New creates a Service. memory and embedding can be nil.
func New(db DBPinger, memory MemoryPinger, embedding EmbeddingChecker) *Service {
	return &Service{db: db, memory: memory, embedding: embedding}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.memory != nil {
		if err := s.memory.Ping(ctx); err != nil {
			checks["memory"] = CheckError
		} else {
			checks["memory"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	failures := 0
	for _, v := range checks {
		if v == CheckError {
			failures++
		}
	}

	status := Healthy
	switch {
	case failures == len(checks) && failures > 0:
		status = Unhealthy
	case failures > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
