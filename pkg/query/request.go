package query

import (
	"encoding/json"
	"strings"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder lowercases s; anything other than "desc" sorts ascending.
func ParseOrder(s string) Order {
	if strings.ToLower(strings.TrimSpace(s)) == string(Desc) {
		return Desc
	}
	return Asc
}

// Sort orders results by one index field.
type Sort struct {
	Field string
	Order Order
}

// SearchRequest is what a backend executes. It is built once per execution
// and not modified afterwards.
type SearchRequest struct {
	Query *BoolQuery
	// Filter is an optional clause ANDed with Query, supplied by the hosting
	// admin integration.
	Filter Clause
	Sort   []Sort
	From   int
	Size   int
}

// Clauses returns every leaf clause the backend must satisfy, the extra
// filter included.
func (r *SearchRequest) Clauses() []Clause {
	out := Flatten(r.Query)
	return append(out, Flatten(r.Filter)...)
}

// String renders the request as an Elasticsearch-style JSON body, which is
// handy when comparing against what an index would receive.
func (r *SearchRequest) String() string {
	body := map[string]any{
		"from": r.From,
		"size": r.Size,
	}
	if r.Query != nil {
		body["query"] = clauseJSON(r.Query)
	}
	if r.Filter != nil {
		body["post_filter"] = clauseJSON(r.Filter)
	}
	if len(r.Sort) > 0 {
		sorts := make([]map[string]any, 0, len(r.Sort))
		for _, s := range r.Sort {
			sorts = append(sorts, map[string]any{s.Field: map[string]any{"order": string(s.Order)}})
		}
		body["sort"] = sorts
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func clauseJSON(c Clause) map[string]any {
	switch v := c.(type) {
	case TextClause:
		qs := map[string]any{
			"query":  v.Query,
			"fields": []string{v.Field},
		}
		if v.AllowLeadingWildcard {
			qs["allow_leading_wildcard"] = true
		}
		return map[string]any{"query_string": qs}
	case RangeClause:
		bounds := map[string]any{}
		if v.Gte != "" {
			bounds["gte"] = v.Gte
		}
		if v.Lte != "" {
			bounds["lte"] = v.Lte
		}
		return map[string]any{"range": map[string]any{v.Field: bounds}}
	case *BoolQuery:
		must := make([]map[string]any, 0, len(v.Must))
		for _, m := range v.Must {
			must = append(must, clauseJSON(m))
		}
		return map[string]any{"bool": map[string]any{"must": must}}
	}
	return map[string]any{}
}
