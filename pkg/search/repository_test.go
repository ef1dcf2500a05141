package search

import (
	"context"
	"errors"
	"testing"

	"github.com/rubiojr/gridsearch/pkg/query"
)

type recordingBackend struct {
	requests []*query.SearchRequest
	result   *Result
	err      error
}

func (b *recordingBackend) Search(ctx context.Context, req *query.SearchRequest) (*Result, error) {
	b.requests = append(b.requests, req)
	if b.err != nil {
		return nil, b.err
	}
	if b.result == nil {
		return &Result{}, nil
	}
	return b.result, nil
}

func newTestRepository(backend Backend) *Repository {
	builder := query.NewBuilder([]query.FilterSpec{
		{Name: "title", Kind: query.KindText},
	})
	return NewRepository(backend, builder, map[string]string{
		"author": "author.name",
	})
}

func TestResolveSort(t *testing.T) {
	repo := newTestRepository(&recordingBackend{})

	tests := []struct {
		name     string
		sortBy   SortBy
		order    string
		expected query.Sort
	}{
		{"default identifier", SortBy{}, "", query.Sort{Field: "id", Order: query.Asc}},
		{"identifier desc", SortBy{FieldName: "id"}, "DESC", query.Sort{Field: "id", Order: query.Desc}},
		{"mapped field", SortBy{FieldName: "author"}, "asc", query.Sort{Field: "author.name", Order: query.Asc}},
		{"unmapped field", SortBy{FieldName: "title"}, "desc", query.Sort{Field: "title", Order: query.Desc}},
		{"unknown order", SortBy{FieldName: "title"}, "sideways", query.Sort{Field: "title", Order: query.Asc}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repo.ResolveSort(tt.sortBy, tt.order); got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestResolveSortCustomIdentifier(t *testing.T) {
	repo := newTestRepository(&recordingBackend{}).SetModelIdentifier("uuid")
	got := repo.ResolveSort(SortBy{}, "")
	if got.Field != "uuid" {
		t.Errorf("Expected uuid, got %q", got.Field)
	}

	repo.SetModelIdentifier("")
	if repo.ModelIdentifier() != "uuid" {
		t.Error("Empty identifier should be ignored")
	}
}

func TestFindAll(t *testing.T) {
	backend := &recordingBackend{result: &Result{
		Documents: []Document{{ID: "1"}},
		Total:     42,
	}}
	repo := newTestRepository(backend)

	var params query.Params
	params.Set("title", query.Text("gopher"))
	limit := 10

	result, err := repo.FindAll(context.Background(), 20, &limit, SortBy{FieldName: "author"}, "desc", params)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Total != 42 {
		t.Errorf("Expected total 42, got %d", result.Total)
	}
	if len(backend.requests) != 1 {
		t.Fatalf("Expected 1 backend call, got %d", len(backend.requests))
	}

	req := backend.requests[0]
	if req.From != 20 || req.Size != 10 {
		t.Errorf("Expected from=20 size=10, got from=%d size=%d", req.From, req.Size)
	}
	if req.Sort[0].Field != "author.name" || req.Sort[0].Order != query.Desc {
		t.Errorf("Unexpected sort %+v", req.Sort)
	}
	if req.Filter != nil {
		t.Error("Expected no extra filter")
	}
}

func TestFindAllDefaultsLimit(t *testing.T) {
	backend := &recordingBackend{}
	repo := newTestRepository(backend)

	if _, err := repo.FindAll(context.Background(), 0, nil, SortBy{}, "", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	req := backend.requests[0]
	if req.Size != MaxResults {
		t.Errorf("Expected size %d, got %d", MaxResults, req.Size)
	}
	if c := req.Query.Must[0].(query.TextClause); !c.IsMatchAll() {
		t.Errorf("Expected match-all query, got %+v", c)
	}
}

func TestFindAllExtraFilter(t *testing.T) {
	backend := &recordingBackend{}
	repo := newTestRepository(backend)
	repo.SetExtraFilter(func() query.Clause {
		return query.TextClause{Field: "status", Query: "published"}
	})

	if _, err := repo.FindAll(context.Background(), 0, nil, SortBy{}, "", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	filter, ok := backend.requests[0].Filter.(query.TextClause)
	if !ok || filter.Field != "status" {
		t.Errorf("Expected status extra filter, got %+v", backend.requests[0].Filter)
	}
}

func TestFindAllPropagatesBackendError(t *testing.T) {
	backendErr := errors.New("index unavailable")
	repo := newTestRepository(&recordingBackend{err: backendErr})

	_, err := repo.FindAll(context.Background(), 0, nil, SortBy{}, "", nil)
	if err != backendErr {
		t.Errorf("Expected backend error unchanged, got %v", err)
	}
}

func TestFindAllConfigurationError(t *testing.T) {
	backend := &recordingBackend{}
	repo := newTestRepository(backend)

	var params query.Params
	params.Set("unknown", query.Text("value"))

	_, err := repo.FindAll(context.Background(), 0, nil, SortBy{}, "", params)
	if !errors.Is(err, query.ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got %v", err)
	}
	if len(backend.requests) != 0 {
		t.Error("Backend should not be called for invalid configuration")
	}
}

func TestSortFieldName(t *testing.T) {
	if got := SortFieldName(nil, "title"); got != "title" {
		t.Errorf("Expected title, got %q", got)
	}
	if got := SortFieldName([]string{"author"}, "name"); got != "author.name" {
		t.Errorf("Expected author.name, got %q", got)
	}
}

func TestDocumentGet(t *testing.T) {
	doc := Document{ID: "7", Fields: map[string]any{"title": "Go"}}
	if doc.Get("title") != "Go" {
		t.Errorf("Expected Go, got %v", doc.Get("title"))
	}
	if doc.Get("id") != "7" {
		t.Errorf("Expected id fallback 7, got %v", doc.Get("id"))
	}
	if doc.Get("missing") != nil {
		t.Error("Expected nil for missing field")
	}
}
