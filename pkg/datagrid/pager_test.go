package datagrid

import (
	"context"
	"math"
	"testing"

	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
)

func TestPagerDefaults(t *testing.T) {
	p := NewPager(0)
	if p.MaxPerPage() != DefaultMaxPerPage {
		t.Errorf("Expected %d per page, got %d", DefaultMaxPerPage, p.MaxPerPage())
	}
	if p.Page() != DefaultPage {
		t.Errorf("Expected page %d, got %d", DefaultPage, p.Page())
	}

	p.SetPage(-4)
	if p.Page() != 1 {
		t.Errorf("Expected negative page to reset to 1, got %d", p.Page())
	}
}

func TestPagerCapsPageSize(t *testing.T) {
	p := NewPager(MaxPerPageLimit * 10)
	if p.MaxPerPage() != MaxPerPageLimit {
		t.Errorf("Expected page size capped at %d, got %d", MaxPerPageLimit, p.MaxPerPage())
	}
}

func TestPagerOffset(t *testing.T) {
	tests := []struct {
		name          string
		page, perPage int
		expected      int
	}{
		{"first page", 1, 25, 0},
		{"third page", 3, 25, 50},
		{"largest page that fits", math.MaxInt/25 + 1, 25, (math.MaxInt / 25) * 25},
		{"overflowing page", math.MaxInt, 25, math.MaxInt - math.MaxInt%25},
		{"overflowing page, unit size", math.MaxInt, 1, math.MaxInt - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := offset(tt.page, tt.perPage)
			if got != tt.expected {
				t.Errorf("offset(%d, %d): expected %d, got %d", tt.page, tt.perPage, tt.expected, got)
			}
			if got < 0 {
				t.Errorf("offset(%d, %d) is negative", tt.page, tt.perPage)
			}
		})
	}
}

func TestPagerHugePageIsPastTheEnd(t *testing.T) {
	backend := &countingBackend{result: &search.Result{Total: 3}}
	repo := search.NewRepository(backend, query.NewBuilder(nil), nil)
	q := NewProxyQuery(repo)

	p := NewPager(2)
	p.SetPage(math.MaxInt)
	p.SetQuery(q)
	p.Init()

	if q.FirstResult() < 3 {
		t.Fatalf("Expected an offset past the results, got %d", q.FirstResult())
	}
	page, err := p.Results(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if page.Page != math.MaxInt || page.HasNextPage() {
		t.Errorf("Unexpected page %+v", page)
	}
	if got := backend.requests[0].From; got != q.FirstResult() {
		t.Errorf("Expected request offset %d, got %d", q.FirstResult(), got)
	}
}

func TestPagerWithoutQuery(t *testing.T) {
	p := NewPager(10)
	p.Init()
	if _, err := p.Results(context.Background()); err == nil {
		t.Error("Expected error without a query")
	}
}

func TestLastPage(t *testing.T) {
	tests := []struct {
		total, perPage, expected int
	}{
		{0, 25, 1},
		{1, 25, 1},
		{25, 25, 1},
		{26, 25, 2},
		{100, 10, 10},
	}
	for _, tt := range tests {
		if got := lastPage(tt.total, tt.perPage); got != tt.expected {
			t.Errorf("lastPage(%d, %d): expected %d, got %d", tt.total, tt.perPage, tt.expected, got)
		}
	}
}

func TestFormBuilderReplacesFields(t *testing.T) {
	b := NewFormBuilder()
	b.Add("name", "text", nil).Add("_page", "hidden", nil)
	b.Add("name", "search", map[string]any{"label": "Name"})

	form := b.Form()
	if len(form.Fields()) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(form.Fields()))
	}
	if form.Fields()[0].Type != "search" {
		t.Errorf("Expected replaced field type, got %q", form.Fields()[0].Type)
	}

	form.Bind(map[string]any{"name": "go", "unknown": "x"})
	if !form.IsBound() {
		t.Error("Expected form to be bound")
	}
	if _, ok := form.Data()["unknown"]; ok {
		t.Error("Unknown fields should be dropped")
	}
	if form.Get("name") != "go" {
		t.Errorf("Expected go, got %v", form.Get("name"))
	}
}
