package domain

import "time"

// MemoryEntry is one long-term memory: the remembered text, its embedding,
// and the assistant response it came from (kept for later distillation,
// not rendered).
type MemoryEntry struct {
	ID        string
	UserID    string
	Text      string
	Response  string
	Vector    []float32
	CreatedAt time.Time
}

// MemoryHit is one KNN match against the memory store.
type MemoryHit struct {
	Text       string
	Similarity float64
}

// Interaction is one completed query/response exchange, handed to the
// background memory writer after the search response is produced.
type Interaction struct {
	Query            string
	Response         string
	ImageDescription string
}
