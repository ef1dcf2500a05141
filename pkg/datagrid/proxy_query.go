package datagrid

import (
	"context"

	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
)

// ProxyQuery accumulates listing state (filter parameters, sort, paging) and
// executes it through a search.Repository.
type ProxyQuery struct {
	repo        *search.Repository
	params      query.Params
	sortBy      search.SortBy
	sortOrder   string
	firstResult int
	maxResults  *int
}

func NewProxyQuery(repo *search.Repository) *ProxyQuery {
	return &ProxyQuery{repo: repo}
}

func (q *ProxyQuery) SetParameter(name string, v query.Value) {
	q.params.Set(name, v)
}

func (q *ProxyQuery) HasParameter(name string) bool {
	return q.params.Has(name)
}

// Parameters returns a copy of the parameters set so far.
func (q *ProxyQuery) Parameters() query.Params {
	return append(query.Params(nil), q.params...)
}

// SetSortBy sorts by field, reached through the given association path.
func (q *ProxyQuery) SetSortBy(parents []string, field SortFieldMapping) {
	q.sortBy = search.SortBy{FieldName: search.SortFieldName(parents, field.FieldName)}
}

func (q *ProxyQuery) SortBy() search.SortBy {
	return q.sortBy
}

func (q *ProxyQuery) SetSortOrder(order string) {
	q.sortOrder = order
}

func (q *ProxyQuery) SortOrder() string {
	return q.sortOrder
}

func (q *ProxyQuery) SetFirstResult(n int) {
	q.firstResult = n
}

func (q *ProxyQuery) FirstResult() int {
	return q.firstResult
}

func (q *ProxyQuery) SetMaxResults(n int) {
	q.maxResults = &n
}

// MaxResults returns the page size, or nil when unbounded.
func (q *ProxyQuery) MaxResults() *int {
	return q.maxResults
}

// Request returns the search request Execute would send.
func (q *ProxyQuery) Request() (*query.SearchRequest, error) {
	return q.repo.CreateRequest(q.firstResult, q.maxResults, q.sortBy, q.sortOrder, q.params)
}

// Execute runs the query. Each call reaches the backend.
func (q *ProxyQuery) Execute(ctx context.Context) (*search.Result, error) {
	return q.repo.FindAll(ctx, q.firstResult, q.maxResults, q.sortBy, q.sortOrder, q.params)
}
