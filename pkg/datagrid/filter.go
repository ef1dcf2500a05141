package datagrid

import (
	"strings"
	"unicode/utf8"

	"github.com/rubiojr/gridsearch/pkg/query"
)

// FieldMapping exposes the index type behind a filter.
type FieldMapping struct {
	Type query.Kind
}

// Filter is a listing filter as provided by the hosting admin integration.
type Filter interface {
	Name() string
	// FormName is the name of the filter's field in the datagrid form.
	FormName() string
	// RenderSettings returns the form field type and its options. The
	// datagrid only forwards them to the form builder.
	RenderSettings() (string, map[string]any)
	// IsActive reports whether the filter narrowed the current query.
	IsActive() bool
	// Apply sets the filter's parameter on q when value is usable.
	Apply(q *ProxyQuery, value query.Value)
	FieldMapping() FieldMapping
}

// FieldFilter is the stock Filter for one FilterSpec.
type FieldFilter struct {
	spec    query.FilterSpec
	label   string
	options map[string]any
	active  bool
}

// NewFieldFilter returns a filter for spec. An empty label defaults to the
// filter name.
func NewFieldFilter(spec query.FilterSpec, label string) *FieldFilter {
	if label == "" {
		label = spec.Name
	}
	return &FieldFilter{spec: spec, label: label}
}

func (f *FieldFilter) Name() string {
	return f.spec.Name
}

// FormName replaces dots, which form field names cannot carry.
func (f *FieldFilter) FormName() string {
	return strings.ReplaceAll(f.spec.Name, ".", "__")
}

func (f *FieldFilter) Spec() query.FilterSpec {
	return f.spec
}

// SetOption sets a render option passed to the form builder.
func (f *FieldFilter) SetOption(name string, value any) {
	if f.options == nil {
		f.options = make(map[string]any)
	}
	f.options[name] = value
}

func (f *FieldFilter) RenderSettings() (string, map[string]any) {
	opts := map[string]any{"label": f.label}
	for k, v := range f.options {
		opts[k] = v
	}
	switch f.spec.Kind {
	case query.KindDateRange:
		return "date_range", opts
	case query.KindMatchAll:
		return "search", opts
	default:
		return "text", opts
	}
}

func (f *FieldFilter) IsActive() bool {
	return f.active
}

// Apply forwards usable values. Text shorter than the filter's minimum length
// is dropped the same way the query builder drops it.
func (f *FieldFilter) Apply(q *ProxyQuery, value query.Value) {
	if !query.Valid(value) || f.tooShort(value) {
		f.active = false
		return
	}
	q.SetParameter(f.spec.Name, value)
	f.active = true
}

func (f *FieldFilter) tooShort(value query.Value) bool {
	text, ok := value.(query.Text)
	if !ok || f.spec.Kind != query.KindText {
		return false
	}
	return utf8.RuneCountInString(string(text)) < f.spec.EffectiveMinLength()
}

func (f *FieldFilter) FieldMapping() FieldMapping {
	return FieldMapping{Type: f.spec.Kind}
}

// filterSet keeps filters by name in insertion order.
type filterSet struct {
	order  []string
	byName map[string]Filter
}

func newFilterSet() *filterSet {
	return &filterSet{byName: make(map[string]Filter)}
}

// add replaces an existing filter in place, or appends.
func (s *filterSet) add(f Filter) {
	if _, exists := s.byName[f.Name()]; !exists {
		s.order = append(s.order, f.Name())
	}
	s.byName[f.Name()] = f
}

func (s *filterSet) remove(name string) {
	if _, exists := s.byName[name]; !exists {
		return
	}
	delete(s.byName, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *filterSet) get(name string) (Filter, bool) {
	f, ok := s.byName[name]
	return f, ok
}

func (s *filterSet) list() []Filter {
	out := make([]Filter, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// reorder moves keys to the front in the given order. Filters not listed
// keep their relative order; unknown keys are ignored.
func (s *filterSet) reorder(keys []string) {
	seen := make(map[string]bool, len(s.order))
	order := make([]string, 0, len(s.order))
	for _, k := range keys {
		if _, exists := s.byName[k]; exists && !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}
	for _, k := range s.order {
		if !seen[k] {
			order = append(order, k)
		}
	}
	s.order = order
}
