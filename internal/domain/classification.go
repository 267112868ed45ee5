package domain

// QueryType discriminates between vector-backed and filter-only retrieval.
type QueryType string

const (
	// TypeSemantic marks queries that mention descriptive attributes
	// (country, province, variety, tasting notes) and warrant vector search.
	TypeSemantic QueryType = "semantic"
	// TypeKeyword marks queries that only carry exact filters
	// (price, points, taster name).
	TypeKeyword QueryType = "keyword"
)

// IsValid reports whether the query type is one of the known values.
func (t QueryType) IsValid() bool {
	return t == TypeSemantic || t == TypeKeyword
}

// QueryClassification is the structured intent extracted from a user query.
// Nil pointer fields mean the query did not mention the filter; they must
// never contribute a clause to the store query. Produced once per search
// and immutable afterwards. Range consistency (min <= max) is not enforced
// here: an inverted range passes through and simply yields no rows.
type QueryClassification struct {
	Type       QueryType `json:"type"`
	TasterName *string   `json:"taster_name,omitempty"`
	MinPoints  *int      `json:"min_points,omitempty"`
	MaxPoints  *int      `json:"max_points,omitempty"`
	MinPrice   *float64  `json:"min_price,omitempty"`
	MaxPrice   *float64  `json:"max_price,omitempty"`
}

// HasFilters reports whether any filter field is populated.
func (c QueryClassification) HasFilters() bool {
	return c.TasterName != nil || c.MinPoints != nil || c.MaxPoints != nil ||
		c.MinPrice != nil || c.MaxPrice != nil
}
