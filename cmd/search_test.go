package cmd

import (
	"strings"
	"testing"

	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/datagrid"
	"github.com/rubiojr/gridsearch/pkg/search"
)

func TestSearchForm(t *testing.T) {
	tests := []struct {
		name       string
		searchForm bool
		want       string
	}{
		{"per filter", false, "_page=2&_sort_by=title&_sort_order=desc&title=go"},
		{"search form", true, "_page=2&_sort_by=title&_sort_order=desc&title_search=go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{SearchForm: tt.searchForm, FieldSuffix: "_search"}
			form := searchForm(cfg, map[string]string{"title": "go"}, "title", "desc", 2, 0)
			if got := form.Encode(); got != tt.want {
				t.Errorf("form = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"title=go", "created_at=2024-01-01..2024-02-01"})
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if got["title"] != "go" || got["created_at"] != "2024-01-01..2024-02-01" {
		t.Errorf("got %v", got)
	}
	if _, err := parseAssignments([]string{"nope"}); err == nil {
		t.Error("expected error")
	}
}

func TestRenderPage(t *testing.T) {
	cfg := &config.Config{
		Identifier:    "id",
		FieldsMapping: map[string]string{"author": "author_name"},
		Columns: []config.ColumnConfig{
			{Name: "id"},
			{Name: "author"},
			{Name: "created_at"},
		},
	}
	page := &datagrid.ResultPage{
		Documents: []search.Document{{ID: "42", Fields: map[string]any{"author_name": "ada", "created_at": "2024-01-01"}}},
		Total:     1234,
		Page:      1,
		PerPage:   25,
		LastPage:  50,
	}

	out := renderPage(cfg, page)
	for _, want := range []string{"1,234 results", "Author:", "ada", "Created At:", "Showing 1-1 of 1,234"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	empty := renderPage(cfg, &datagrid.ResultPage{Page: 1, LastPage: 1})
	if !strings.Contains(empty, "No results found") {
		t.Errorf("expected empty message, got %q", empty)
	}
}
