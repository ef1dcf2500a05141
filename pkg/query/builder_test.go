package query

import (
	"errors"
	"reflect"
	"testing"
)

func testBuilder() *Builder {
	return NewBuilder([]FilterSpec{
		{Name: "name", Kind: KindText},
		{Name: "status", Kind: KindText},
		{Name: "title", Kind: KindText, MinLength: 4},
		{Name: "created_at", Kind: KindDateRange},
		{Name: "q", Kind: KindMatchAll},
	})
}

func params(pairs ...Param) Params {
	var p Params
	for _, pair := range pairs {
		p.Set(pair.Name, pair.Value)
	}
	return p
}

func TestBuildEmptyParamsMatchesAll(t *testing.T) {
	q, err := testBuilder().Build(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(q.Must) != 1 {
		t.Fatalf("Expected 1 clause, got %d", len(q.Must))
	}
	text, ok := q.Must[0].(TextClause)
	if !ok {
		t.Fatalf("Expected TextClause, got %T", q.Must[0])
	}
	if text.Field != AllFields || text.Query != "*" || !text.AllowLeadingWildcard {
		t.Errorf("Expected match-all wildcard clause, got %+v", text)
	}
	if !text.IsMatchAll() {
		t.Error("IsMatchAll should report true")
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		expected []Clause
	}{
		{
			name: "short and empty values are skipped",
			params: params(
				Param{"name", Text("ab")},
				Param{"status", Text("")},
			),
			expected: []Clause{TextClause{Field: "name", Query: "ab"}},
		},
		{
			name:     "below default minimum",
			params:   params(Param{"name", Text("a")}),
			expected: nil,
		},
		{
			name:     "below custom minimum",
			params:   params(Param{"title", Text("abc")}),
			expected: nil,
		},
		{
			name:     "minimum counts runes",
			params:   params(Param{"name", Text("日本")}),
			expected: []Clause{TextClause{Field: "name", Query: "日本"}},
		},
		{
			name:     "nil value skipped",
			params:   params(Param{"name", nil}),
			expected: nil,
		},
		{
			name: "date range",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2024", Month: "1", Day: "1"},
				End:   Date{Year: "2024", Month: "12", Day: "31"},
			}}),
			expected: []Clause{RangeClause{Field: "created_at", Gte: "2024-1-1", Lte: "2024-12-31"}},
		},
		{
			name: "date literals drop zero padding",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2023", Month: "03", Day: "09"},
				End:   Date{Year: "2023", Month: "04", Day: "01"},
			}}),
			expected: []Clause{RangeClause{Field: "created_at", Gte: "2023-3-9", Lte: "2023-4-1"}},
		},
		{
			name:     "suffix stripped",
			params:   params(Param{"name_search", Text("golang")}),
			expected: []Clause{TextClause{Field: "name", Query: "golang"}},
		},
		{
			name:     "match-all filter targets every field",
			params:   params(Param{"q", Text("*lang")}),
			expected: []Clause{TextClause{Field: AllFields, Query: "*lang", AllowLeadingWildcard: true}},
		},
		{
			name: "clauses keep parameter order",
			params: params(
				Param{"status", Text("published")},
				Param{"name", Text("gopher")},
			),
			expected: []Clause{
				TextClause{Field: "status", Query: "published"},
				TextClause{Field: "name", Query: "gopher"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := testBuilder().Build(tt.params)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(q.Must, tt.expected) {
				t.Errorf("Expected clauses %+v, got %+v", tt.expected, q.Must)
			}
		})
	}
}

func TestBuildIsRepeatable(t *testing.T) {
	b := testBuilder()
	p := params(Param{"name", Text("x")}, Param{"status", Text("draft")})

	first, err := b.Build(p)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := b.Build(p)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical queries, got %+v and %+v", first, second)
	}
	if len(first.Must) != 1 {
		t.Errorf("Expected the short value to be dropped, got %d clauses", len(first.Must))
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		err    error
	}{
		{
			name:   "unknown filter",
			params: params(Param{"missing", Text("value")}),
			err:    ErrUnknownField,
		},
		{
			name: "missing day",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2024", Month: "1"},
				End:   Date{Year: "2024", Month: "2", Day: "1"},
			}}),
			err: ErrMalformedDate,
		},
		{
			name: "non numeric month",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2024", Month: "jan", Day: "1"},
				End:   Date{Year: "2024", Month: "2", Day: "1"},
			}}),
			err: ErrMalformedDate,
		},
		{
			name: "month out of range",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2024", Month: "13", Day: "1"},
				End:   Date{Year: "2024", Month: "12", Day: "31"},
			}}),
			err: ErrMalformedDate,
		},
		{
			name: "day past the end of february",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2024", Month: "1", Day: "1"},
				End:   Date{Year: "2024", Month: "2", Day: "31"},
			}}),
			err: ErrMalformedDate,
		},
		{
			name: "negative month",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2024", Month: "-1", Day: "1"},
				End:   Date{Year: "2024", Month: "2", Day: "1"},
			}}),
			err: ErrMalformedDate,
		},
		{
			name: "zero day",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "2024", Month: "1", Day: "0"},
				End:   Date{Year: "2024", Month: "2", Day: "1"},
			}}),
			err: ErrMalformedDate,
		},
		{
			name: "two digit year",
			params: params(Param{"created_at", DateRange{
				Start: Date{Year: "24", Month: "1", Day: "1"},
				End:   Date{Year: "2024", Month: "2", Day: "1"},
			}}),
			err: ErrMalformedDate,
		},
		{
			name:   "text for date filter",
			params: params(Param{"created_at", Text("2024-01-01")}),
			err:    ErrMalformedDate,
		},
		{
			name:   "date range for text filter",
			params: params(Param{"name", DateRange{}}),
			err:    ErrUnexpectedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testBuilder().Build(tt.params)
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestLeapDayIsAccepted(t *testing.T) {
	q, err := testBuilder().Build(params(Param{"created_at", DateRange{
		Start: Date{Year: "2024", Month: "02", Day: "29"},
		End:   Date{Year: "2024", Month: "3", Day: "1"},
	}}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := RangeClause{Field: "created_at", Gte: "2024-2-29", Lte: "2024-3-1"}
	if len(q.Must) != 1 || q.Must[0] != want {
		t.Errorf("Expected %+v, got %+v", want, q.Must)
	}
}

func TestRequest(t *testing.T) {
	b := testBuilder()
	sort := []Sort{{Field: "id", Order: Asc}}
	req, err := b.Request(params(Param{"name", Text("gopher")}), sort, 50, 25)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.From != 50 || req.Size != 25 {
		t.Errorf("Expected from=50 size=25, got from=%d size=%d", req.From, req.Size)
	}
	if !reflect.DeepEqual(req.Sort, sort) {
		t.Errorf("Expected sort %+v, got %+v", sort, req.Sort)
	}
}

func TestWithFieldSuffix(t *testing.T) {
	b := NewBuilder([]FilterSpec{{Name: "title", Kind: KindText}}, WithFieldSuffix("_elastic"))
	if got := b.FieldName("title_elastic"); got != "title" {
		t.Errorf("Expected title, got %q", got)
	}
	if _, ok := b.Spec("title_search"); ok {
		t.Error("Default suffix should not be stripped once overridden")
	}

	none := NewBuilder(nil, WithFieldSuffix(""))
	if got := none.FieldName("title_search"); got != "title_search" {
		t.Errorf("Expected name unchanged, got %q", got)
	}
}

func TestSpecsKeepRegistrationOrder(t *testing.T) {
	specs := testBuilder().Specs()
	expected := []string{"name", "status", "title", "created_at", "q"}
	if len(specs) != len(expected) {
		t.Fatalf("Expected %d specs, got %d", len(expected), len(specs))
	}
	for i, name := range expected {
		if specs[i].Name != name {
			t.Errorf("Spec %d: expected %q, got %q", i, name, specs[i].Name)
		}
	}
}
