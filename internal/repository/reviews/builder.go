package reviews

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cellarpress/sommelier/internal/domain"
)

const selectCols = "id, title, variety, winery, country, province, description, " +
	"points, price, taster_name, taster_twitter_handle"

// SearchParams are the inputs to one store query. A nil Embedding selects
// the filter-only plan; a non-nil Embedding selects the vector plan with a
// similarity threshold and similarity projection.
type SearchParams struct {
	Embedding     []float32
	MinSimilarity float64
	TopK          int
	Filters       domain.QueryClassification
}

// buildQuery assembles the parameterized SQL for one search. Filter values
// are bound positionally, never interpolated; absent filters contribute no
// clause at all.
func buildQuery(p SearchParams) (string, []any) {
	var (
		where []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	f := p.Filters
	if f.TasterName != nil {
		where = append(where, fmt.Sprintf("LOWER(taster_name) = LOWER(%s)", arg(*f.TasterName)))
	}
	if f.MinPoints != nil {
		where = append(where, fmt.Sprintf("points >= %s", arg(*f.MinPoints)))
	}
	if f.MaxPoints != nil {
		where = append(where, fmt.Sprintf("points <= %s", arg(*f.MaxPoints)))
	}
	if f.MinPrice != nil {
		where = append(where, fmt.Sprintf("price >= %s", arg(*f.MinPrice)))
	}
	if f.MaxPrice != nil {
		where = append(where, fmt.Sprintf("price <= %s", arg(*f.MaxPrice)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectCols)

	var orderBy string
	if p.Embedding != nil {
		vec := arg(vectorLiteral(p.Embedding))
		sb.WriteString(fmt.Sprintf(", 1 - (embedding <=> %s::vector) AS similarity", vec))
		where = append(where,
			fmt.Sprintf("1 - (embedding <=> %s::vector) > %s", vec, arg(p.MinSimilarity)))
		orderBy = fmt.Sprintf("embedding <=> %s::vector", vec)
	} else {
		orderBy = "points DESC NULLS LAST, price ASC NULLS LAST"
	}

	sb.WriteString(" FROM reviews")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy)
	sb.WriteString(" LIMIT ")
	sb.WriteString(arg(p.TopK))

	return sb.String(), args
}

// vectorLiteral renders a pgvector input literal: [f1,f2,...].
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
