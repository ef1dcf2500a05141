package query

// AllFields is the pseudo-field that targets every indexed field.
const AllFields = "_all"

// Clause is one node of a composite query: TextClause, RangeClause or
// *BoolQuery.
type Clause interface {
	clause()
}

// TextClause is a free-text match scoped to Field.
type TextClause struct {
	Field                string
	Query                string
	AllowLeadingWildcard bool
}

// RangeClause requires Field to fall between Gte and Lte, both inclusive.
// Bounds are YYYY-M-D literals; an empty bound is open.
type RangeClause struct {
	Field string
	Gte   string
	Lte   string
}

// BoolQuery is the conjunction of its Must clauses.
type BoolQuery struct {
	Must []Clause
}

func (TextClause) clause()  {}
func (RangeClause) clause() {}
func (*BoolQuery) clause()  {}

// MatchAll returns the clause matching every document.
func MatchAll() TextClause {
	return TextClause{Field: AllFields, Query: "*", AllowLeadingWildcard: true}
}

// IsMatchAll reports whether the clause is the unfiltered wildcard.
func (t TextClause) IsMatchAll() bool {
	return t.Field == AllFields && t.Query == "*"
}

// AddMust appends a required clause.
func (b *BoolQuery) AddMust(c Clause) {
	b.Must = append(b.Must, c)
}

// Flatten returns the leaf clauses of c, descending into nested BoolQuery
// values. Since every level is a conjunction the result keeps the meaning.
func Flatten(c Clause) []Clause {
	switch v := c.(type) {
	case nil:
		return nil
	case *BoolQuery:
		if v == nil {
			return nil
		}
		var out []Clause
		for _, m := range v.Must {
			out = append(out, Flatten(m)...)
		}
		return out
	default:
		return []Clause{c}
	}
}
