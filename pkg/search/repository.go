package search

import (
	"context"
	"strings"

	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/query"
)

const (
	// DefaultModelIdentifier is the field results are sorted by when no
	// other sort is requested.
	DefaultModelIdentifier = "id"
	// MaxResults caps requests that do not set a limit.
	MaxResults = 10000
)

// SortBy names the logical field a listing is sorted by.
type SortBy struct {
	FieldName string
}

// ExtraFilterFunc supplies a clause ANDed into every request.
type ExtraFilterFunc func() query.Clause

// Repository executes listing queries against a Backend. It resolves sort
// targets through the field mapping table and applies the extra filter hook.
type Repository struct {
	backend         Backend
	builder         *query.Builder
	fieldsMapping   map[string]string
	modelIdentifier string
	extraFilter     ExtraFilterFunc
	logger          *log.Logger
}

// NewRepository creates a repository. fieldsMapping maps logical column names
// to index field names and may be nil.
func NewRepository(backend Backend, builder *query.Builder, fieldsMapping map[string]string) *Repository {
	return &Repository{
		backend:         backend,
		builder:         builder,
		fieldsMapping:   fieldsMapping,
		modelIdentifier: DefaultModelIdentifier,
		logger:          log.ForService("repository"),
	}
}

func (r *Repository) SetModelIdentifier(id string) *Repository {
	if id != "" {
		r.modelIdentifier = id
	}
	return r
}

func (r *Repository) ModelIdentifier() string {
	return r.modelIdentifier
}

func (r *Repository) SetExtraFilter(fn ExtraFilterFunc) {
	r.extraFilter = fn
}

func (r *Repository) Builder() *query.Builder {
	return r.builder
}

// ResolveSort returns the index sort for a listing sort. Anything other than
// a non-identifier field falls back to the model identifier.
func (r *Repository) ResolveSort(sortBy SortBy, order string) query.Sort {
	o := query.ParseOrder(order)
	field := sortBy.FieldName
	if field == "" || field == r.modelIdentifier {
		return query.Sort{Field: r.modelIdentifier, Order: o}
	}
	if mapped, ok := r.fieldsMapping[field]; ok {
		field = mapped
	}
	return query.Sort{Field: field, Order: o}
}

// CreateRequest builds the request FindAll would execute.
func (r *Repository) CreateRequest(start int, limit *int, sortBy SortBy, order string, params query.Params) (*query.SearchRequest, error) {
	size := MaxResults
	if limit != nil {
		size = *limit
	}

	req, err := r.builder.Request(params, []query.Sort{r.ResolveSort(sortBy, order)}, start, size)
	if err != nil {
		return nil, err
	}

	if r.extraFilter != nil {
		req.Filter = r.extraFilter()
	}
	return req, nil
}

// FindAll runs the listing query and returns one page of results along with
// the backend's total hit count.
func (r *Repository) FindAll(ctx context.Context, start int, limit *int, sortBy SortBy, order string, params query.Params) (*Result, error) {
	req, err := r.CreateRequest(start, limit, sortBy, order, params)
	if err != nil {
		return nil, err
	}

	if log.DebugEnabledFor("repository") {
		r.logger.Debugf("search request: %s", req)
	}

	return r.backend.Search(ctx, req)
}

// SortFieldName joins an association path and a field into a dotted name.
func SortFieldName(parents []string, field string) string {
	if len(parents) == 0 {
		return field
	}
	return strings.Join(append(append([]string{}, parents...), field), ".")
}
