// Package search connects listings to full-text backends.
//
// # Overview
//
// A Backend executes a query.SearchRequest and returns one page of
// documents plus the total number of matches. Two implementations exist:
// pkg/storage (SQLite FTS5) and pkg/meili (Meilisearch). Both take the
// same request, so a listing can switch engines through configuration.
//
// The Repository sits between a datagrid and a Backend. It builds the
// composite query from the bound parameters, resolves the sort column
// through the fields mapping table, ANDs the optional extra filter and
// applies offset and limit.
//
// # Usage
//
//	builder := query.NewBuilder(specs)
//	repo := search.NewRepository(store, builder, map[string]string{
//		"author": "author_name",
//	})
//	limit := 25
//	res, err := repo.FindAll(ctx, 0, &limit, search.SortBy{FieldName: "author"}, "desc", params)
//
// An empty sort field, or one naming the model identifier, sorts by the
// identifier itself.
package search
