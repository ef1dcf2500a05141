package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultFieldSuffix is the transport marker stripped from parameter names
// before they are resolved against the registered specs.
const DefaultFieldSuffix = "_search"

var (
	// ErrUnknownField is returned when a parameter has no registered spec.
	ErrUnknownField = errors.New("no field type metadata for filter")
	// ErrMalformedDate is returned for date ranges missing a year, month or day.
	ErrMalformedDate = errors.New("malformed date")
	// ErrUnexpectedValue is returned when a value does not match its filter kind.
	ErrUnexpectedValue = errors.New("unexpected value for filter kind")
)

// Builder translates named filter values into a BoolQuery. It holds no
// per-request state and never talks to a backend.
type Builder struct {
	specs  map[string]FilterSpec
	names  []string
	suffix string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithFieldSuffix sets the transport suffix stripped from parameter names.
// An empty suffix disables stripping.
func WithFieldSuffix(suffix string) BuilderOption {
	return func(b *Builder) {
		b.suffix = suffix
	}
}

// NewBuilder registers specs by name. Later specs replace earlier ones with
// the same name.
func NewBuilder(specs []FilterSpec, opts ...BuilderOption) *Builder {
	b := &Builder{
		specs:  make(map[string]FilterSpec, len(specs)),
		suffix: DefaultFieldSuffix,
	}
	for _, spec := range specs {
		if _, exists := b.specs[spec.Name]; !exists {
			b.names = append(b.names, spec.Name)
		}
		b.specs[spec.Name] = spec
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Spec returns the spec registered under name, after suffix stripping.
func (b *Builder) Spec(name string) (FilterSpec, bool) {
	spec, ok := b.specs[b.FieldName(name)]
	return spec, ok
}

// Specs returns registered specs in registration order.
func (b *Builder) Specs() []FilterSpec {
	specs := make([]FilterSpec, 0, len(b.names))
	for _, name := range b.names {
		specs = append(specs, b.specs[name])
	}
	return specs
}

// Suffix returns the transport suffix.
func (b *Builder) Suffix() string {
	return b.suffix
}

// FieldName strips the transport suffix from a parameter name.
func (b *Builder) FieldName(name string) string {
	if b.suffix == "" {
		return name
	}
	return strings.TrimSuffix(name, b.suffix)
}

// Build returns the conjunction of one clause per usable parameter.
func (b *Builder) Build(params Params) (*BoolQuery, error) {
	q := &BoolQuery{}
	if len(params) == 0 {
		q.AddMust(MatchAll())
		return q, nil
	}

	for _, param := range params {
		c, err := b.clause(param)
		if err != nil {
			return nil, err
		}
		if c != nil {
			q.AddMust(c)
		}
	}
	return q, nil
}

// Request builds the composite query and wraps it with sort and paging.
func (b *Builder) Request(params Params, sort []Sort, from, size int) (*SearchRequest, error) {
	q, err := b.Build(params)
	if err != nil {
		return nil, err
	}
	return &SearchRequest{
		Query: q,
		Sort:  sort,
		From:  from,
		Size:  size,
	}, nil
}

// clause returns nil for values that should be skipped.
func (b *Builder) clause(param Param) (Clause, error) {
	if param.Value == nil {
		return nil, nil
	}
	if text, ok := param.Value.(Text); ok && text == "" {
		return nil, nil
	}

	field := b.FieldName(param.Name)
	spec, ok := b.specs[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	switch spec.Kind {
	case KindDateRange:
		dr, ok := param.Value.(DateRange)
		if !ok {
			return nil, fmt.Errorf("%w: filter %q expects a date range", ErrMalformedDate, field)
		}
		start, err := dr.Start.Literal()
		if err != nil {
			return nil, fmt.Errorf("filter %q start: %w", field, err)
		}
		end, err := dr.End.Literal()
		if err != nil {
			return nil, fmt.Errorf("filter %q end: %w", field, err)
		}
		return RangeClause{Field: field, Gte: start, Lte: end}, nil

	case KindText:
		text, ok := param.Value.(Text)
		if !ok {
			return nil, fmt.Errorf("%w: filter %q expects text", ErrUnexpectedValue, field)
		}
		if utf8.RuneCountInString(string(text)) < spec.EffectiveMinLength() {
			return nil, nil
		}
		return TextClause{Field: field, Query: string(text)}, nil

	case KindMatchAll:
		text, ok := param.Value.(Text)
		if !ok {
			return nil, fmt.Errorf("%w: filter %q expects text", ErrUnexpectedValue, field)
		}
		return TextClause{Field: AllFields, Query: string(text), AllowLeadingWildcard: true}, nil
	}

	return nil, fmt.Errorf("%w: %q has kind %s", ErrUnknownField, field, spec.Kind)
}
