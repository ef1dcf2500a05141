// Package query turns submitted listing filters into a composite search request.
//
// # Overview
//
// A listing exposes a set of named filters. Each filter is described by a
// FilterSpec (name, kind and minimum term length) and receives, per request,
// a Value: either free text or a date range made of {year, month, day}
// triples. The Builder walks the submitted values in the order they were
// given and produces a BoolQuery whose clauses are all required, so every
// active filter narrows the result set further.
//
// # Clauses
//
// Three clause shapes exist:
//
//   - TextClause: a free-text match scoped to one field, or to every field
//     when the field is AllFields
//   - RangeClause: an inclusive range over a date field, with bounds written
//     as YYYY-M-D literals
//   - BoolQuery: a conjunction of other clauses
//
// An empty value set produces a single match-all clause (the "*" wildcard
// over AllFields) so the backend returns the unfiltered corpus.
//
// # Skipped values
//
// Values that carry no signal are dropped without error: nil values, empty
// strings and text shorter than the filter's minimum term length (2 runes by
// default). Malformed dates and filters with no registered spec are
// configuration errors and are reported through ErrMalformedDate and
// ErrUnknownField.
//
// # Usage
//
//	builder := query.NewBuilder([]query.FilterSpec{
//		{Name: "title", Kind: query.KindText},
//		{Name: "created_at", Kind: query.KindDateRange},
//	})
//	var params query.Params
//	params.Set("title", query.Text("golang"))
//	req, err := builder.Request(params, []query.Sort{{Field: "id", Order: query.Asc}}, 0, 25)
//
// Backends consume the SearchRequest; see pkg/storage and pkg/meili.
package query
