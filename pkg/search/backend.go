package search

import (
	"context"

	"github.com/rubiojr/gridsearch/pkg/query"
)

// Document is one indexed record.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Get returns the value of field, or nil. The "id" field falls back to ID.
func (d Document) Get(field string) any {
	if v, ok := d.Fields[field]; ok {
		return v
	}
	if field == "id" {
		return d.ID
	}
	return nil
}

// Result is one page of matches. Documents keep the order the backend
// returned; Total counts every match, not just this page.
type Result struct {
	Documents []Document
	Total     int
}

// Backend executes search requests. Errors are the backend's own and are
// returned to callers unchanged.
type Backend interface {
	Search(ctx context.Context, req *query.SearchRequest) (*Result, error)
}

// Indexer stores documents so they become searchable.
type Indexer interface {
	IndexDocuments(ctx context.Context, docs []Document) error
}

// Store is a backend that can also index, and must be closed.
type Store interface {
	Backend
	Indexer
	Close() error
}
