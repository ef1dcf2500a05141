package datagrid

import (
	"context"
	"errors"
	"math"

	"github.com/rubiojr/gridsearch/pkg/search"
)

const (
	DefaultMaxPerPage = 25
	DefaultPage       = 1
	// MaxPerPageLimit caps the page size a request may ask for.
	MaxPerPageLimit = 1000
)

var errNoQuery = errors.New("pager has no query")

// ResultPage is one page of a listing.
type ResultPage struct {
	Documents []search.Document `json:"documents"`
	// Total is the backend's hit count for the whole query.
	Total    int `json:"total"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	LastPage int `json:"last_page"`
}

func (p *ResultPage) HasNextPage() bool {
	return p.Page < p.LastPage
}

func (p *ResultPage) HasPreviousPage() bool {
	return p.Page > 1
}

// Pager tracks the current page and page size and fetches results through a
// ProxyQuery.
type Pager struct {
	page       int
	maxPerPage int
	query      *ProxyQuery
	nbResults  int
	lastPage   int
}

// NewPager returns a pager on page 1. A non-positive maxPerPage uses
// DefaultMaxPerPage.
func NewPager(maxPerPage int) *Pager {
	p := &Pager{page: DefaultPage, lastPage: 1}
	p.SetMaxPerPage(maxPerPage)
	return p
}

// SetMaxPerPage sets the page size. Non-positive sizes use
// DefaultMaxPerPage and sizes above MaxPerPageLimit are capped.
func (p *Pager) SetMaxPerPage(n int) {
	if n <= 0 {
		n = DefaultMaxPerPage
	}
	p.maxPerPage = min(n, MaxPerPageLimit)
}

func (p *Pager) MaxPerPage() int {
	return p.maxPerPage
}

func (p *Pager) SetPage(page int) {
	if page < 1 {
		page = DefaultPage
	}
	p.page = page
}

func (p *Pager) Page() int {
	return p.page
}

func (p *Pager) SetQuery(q *ProxyQuery) {
	p.query = q
}

func (p *Pager) Query() *ProxyQuery {
	return p.query
}

// Init pushes the page window onto the query. The offset is zero based.
func (p *Pager) Init() {
	if p.query == nil {
		return
	}
	p.query.SetFirstResult(offset(p.page, p.maxPerPage))
	p.query.SetMaxResults(p.maxPerPage)
}

// offset returns the first result of page. Pages whose offset does not fit
// in an int start at the last page-aligned offset, which lies past the end
// of any result set.
func offset(page, perPage int) int {
	if page-1 > math.MaxInt/perPage {
		return math.MaxInt - math.MaxInt%perPage
	}
	return (page - 1) * perPage
}

// Results executes the query and records the totals it reports.
func (p *Pager) Results(ctx context.Context) (*ResultPage, error) {
	if p.query == nil {
		return nil, errNoQuery
	}
	result, err := p.query.Execute(ctx)
	if err != nil {
		return nil, err
	}

	p.nbResults = result.Total
	p.lastPage = lastPage(result.Total, p.maxPerPage)

	return &ResultPage{
		Documents: result.Documents,
		Total:     result.Total,
		Page:      p.page,
		PerPage:   p.maxPerPage,
		LastPage:  p.lastPage,
	}, nil
}

// NbResults is the total hit count reported by the last fetch.
func (p *Pager) NbResults() int {
	return p.nbResults
}

func (p *Pager) LastPage() int {
	return p.lastPage
}

func (p *Pager) HaveToPaginate() bool {
	return p.nbResults > p.maxPerPage
}

func lastPage(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
