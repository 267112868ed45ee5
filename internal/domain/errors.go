package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank search query, rejected before any
	// collaborator call.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrSearchFailed wraps any collaborator or store failure that aborted
	// a search.
	ErrSearchFailed = errors.New("search failed")
	// ErrClassifierError signals malformed classifier model output.
	ErrClassifierError = errors.New("classifier error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVisionProviderError signals an image description failure.
	ErrVisionProviderError = errors.New("vision provider error")
	// ErrMemoryUnavailable signals a memory store failure during resolution.
	ErrMemoryUnavailable = errors.New("memory store unavailable")
)
