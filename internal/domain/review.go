package domain

// Review is one wine review row as returned by the store. Optional columns
// are pointers; nil means the column was NULL. Similarity is set only when
// the query ran with an embedding, and is then in (0, 1] for every row of
// the result set.
type Review struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Variety      *string  `json:"variety,omitempty"`
	Winery       *string  `json:"winery,omitempty"`
	Country      *string  `json:"country,omitempty"`
	Province     *string  `json:"province,omitempty"`
	Description  string   `json:"description"`
	Points       int      `json:"points"`
	Price        *float64 `json:"price,omitempty"`
	TasterName   *string  `json:"taster_name,omitempty"`
	TasterHandle *string  `json:"taster_twitter_handle,omitempty"`
	Similarity   *float64 `json:"similarity,omitempty"`
}

// SearchResult is the consolidated outcome of one search call: the ranked
// reviews, the rendered memory block (empty when nothing matched), the image
// description when an image ref was supplied, the classification the query
// ran with, and per-stage timings ending in Total. Owned exclusively by the
// caller after return.
type SearchResult struct {
	Results          []Review
	Memories         string
	ImageDescription *string
	Classification   QueryClassification
	Timings          Timings
}
