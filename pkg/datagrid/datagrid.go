// Package datagrid binds submitted listing values to a search query and
// exposes the resulting page, sort and pager state.
//
// A Datagrid serves a single request. It moves from unbound to bound the
// first time Build runs (directly or through Results and Form) and never
// goes back; filters, sort and paging are applied exactly once.
package datagrid

import (
	"context"
	"errors"
	"fmt"

	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/query"
)

// Reserved form field names.
const (
	SearchFormName = "admin_search_form"
	FieldSortBy    = "_sort_by"
	FieldSortOrder = "_sort_order"
	FieldPage      = "_page"
	FieldPerPage   = "_per_page"
)

// ErrUnexpectedSortType is returned when the sort value is not a
// FieldDescriptor. A descriptor that is merely not sortable is ignored.
var ErrUnexpectedSortType = errors.New("sort target is not a field descriptor")

// FilterData is a submitted filter value with its operator.
type FilterData struct {
	Type  string
	Value query.Value
}

// Values holds everything submitted for one listing request.
type Values struct {
	// Filters is keyed by filter name.
	Filters map[string]FilterData
	// Search carries the composite search form values when the datagrid
	// runs in search form mode.
	Search query.Params
	// SortBy must hold a FieldDescriptor when set.
	SortBy    any
	SortOrder string
	// Page and PerPage fall back to DefaultPage and DefaultMaxPerPage when
	// not positive.
	Page    int
	PerPage int
}

type state int

const (
	stateUnbound state = iota
	stateBound
)

func (s state) String() string {
	if s == stateBound {
		return "bound"
	}
	return "unbound"
}

// Option configures a Datagrid.
type Option func(*Datagrid)

// WithSearchForm replaces per-filter binding with a single composite search
// form whose pairs are forwarded to the query as they are.
func WithSearchForm() Option {
	return func(d *Datagrid) {
		d.searchForm = true
	}
}

// Datagrid is the listing state machine.
type Datagrid struct {
	query       *ProxyQuery
	columns     *Columns
	pager       *Pager
	formBuilder *FormBuilder
	form        *Form
	values      Values
	filters     *filterSet
	searchForm  bool
	state       state
	results     *ResultPage
	logger      *log.Logger
}

// New returns an unbound datagrid over q, which is required. Nil columns,
// pager and form builder are replaced with empty defaults.
func New(q *ProxyQuery, columns *Columns, pager *Pager, formBuilder *FormBuilder, values Values, opts ...Option) *Datagrid {
	if pager == nil {
		pager = NewPager(DefaultMaxPerPage)
	}
	if values.Filters == nil {
		values.Filters = make(map[string]FilterData)
	}
	if columns == nil {
		columns = NewColumns()
	}
	if formBuilder == nil {
		formBuilder = NewFormBuilder()
	}
	d := &Datagrid{
		query:       q,
		columns:     columns,
		pager:       pager,
		formBuilder: formBuilder,
		values:      values,
		filters:     newFilterSet(),
		logger:      log.ForService("datagrid"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsBound reports whether Build has completed.
func (d *Datagrid) IsBound() bool {
	return d.state == stateBound
}

// Build binds the submitted values: filters, sort and pager. It runs once;
// later calls return nil without doing anything. A sort value that is not a
// FieldDescriptor fails the build and leaves the datagrid unbound.
func (d *Datagrid) Build() error {
	if d.state == stateBound {
		return nil
	}

	var sortBy FieldDescriptor
	if d.values.SortBy != nil {
		fd, ok := d.values.SortBy.(FieldDescriptor)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrUnexpectedSortType, d.values.SortBy)
		}
		sortBy = fd
	}

	if d.searchForm {
		d.formBuilder.Add(SearchFormName, "search_form", map[string]any{"label": false})
	} else {
		for _, f := range d.filters.list() {
			typ, opts := f.RenderSettings()
			d.formBuilder.Add(f.FormName(), typ, opts)
		}
	}
	d.formBuilder.Add(FieldSortBy, "hidden", nil)
	d.formBuilder.Add(FieldSortOrder, "hidden", nil)
	d.formBuilder.Add(FieldPage, "hidden", nil)
	d.formBuilder.Add(FieldPerPage, "hidden", nil)

	d.form = d.formBuilder.Form()
	d.form.Bind(d.formData())
	data := d.form.Data()

	if d.searchForm {
		params, _ := data[SearchFormName].(query.Params)
		for _, p := range params {
			if !query.Valid(p.Value) {
				continue
			}
			d.query.SetParameter(p.Name, p.Value)
		}
	} else {
		for _, f := range d.filters.list() {
			value, _ := data[f.FormName()].(query.Value)
			f.Apply(d.query, value)

			submitted := d.values.Filters[f.Name()].Value
			if query.Valid(submitted) && !d.query.HasParameter(f.Name()) {
				d.query.SetParameter(f.Name(), submitted)
			}
		}
	}

	if sortBy != nil && sortBy.IsSortable() {
		d.query.SetSortBy(sortBy.SortParentAssociationMapping(), sortBy.SortFieldMapping())
		d.query.SetSortOrder(d.values.SortOrder)
	}

	d.pager.SetMaxPerPage(d.values.PerPage)
	d.pager.SetPage(d.values.Page)
	d.pager.SetQuery(d.query)
	d.pager.Init()

	d.state = stateBound
	d.logger.Debugf("bound %d parameters, page %d, %d per page", len(d.query.Parameters()), d.pager.Page(), d.pager.MaxPerPage())
	return nil
}

// formData maps submitted values onto form field names.
func (d *Datagrid) formData() map[string]any {
	data := map[string]any{
		FieldSortOrder: d.values.SortOrder,
		FieldPage:      d.values.Page,
		FieldPerPage:   d.values.PerPage,
	}
	if fd, ok := d.values.SortBy.(FieldDescriptor); ok {
		data[FieldSortBy] = fd.Name()
	} else {
		data[FieldSortBy] = d.values.SortBy
	}
	if d.searchForm {
		data[SearchFormName] = d.values.Search
		return data
	}
	for _, f := range d.filters.list() {
		if v := d.values.Filters[f.Name()].Value; v != nil {
			data[f.FormName()] = v
		}
	}
	return data
}

// Results builds the datagrid and returns the current page. The backend is
// queried once per datagrid; later calls return the same page.
func (d *Datagrid) Results(ctx context.Context) (*ResultPage, error) {
	if err := d.Build(); err != nil {
		return nil, err
	}
	if d.results == nil {
		page, err := d.pager.Results(ctx)
		if err != nil {
			return nil, err
		}
		d.results = page
		d.logger.Debugf("fetched page %d/%d (%d results)", page.Page, page.LastPage, page.Total)
	}
	return d.results, nil
}

// Form builds the datagrid and returns its bound form.
func (d *Datagrid) Form() (*Form, error) {
	if err := d.Build(); err != nil {
		return nil, err
	}
	return d.form, nil
}

func (d *Datagrid) Pager() *Pager {
	return d.pager
}

func (d *Datagrid) Query() *ProxyQuery {
	return d.query
}

func (d *Datagrid) Columns() *Columns {
	return d.columns
}

func (d *Datagrid) Values() Values {
	return d.values
}

// SetValue records a submitted value for a filter.
func (d *Datagrid) SetValue(name, operator string, value query.Value) {
	d.values.Filters[name] = FilterData{Type: operator, Value: value}
}

func (d *Datagrid) AddFilter(f Filter) {
	d.filters.add(f)
}

func (d *Datagrid) HasFilter(name string) bool {
	_, ok := d.filters.get(name)
	return ok
}

func (d *Datagrid) RemoveFilter(name string) {
	d.filters.remove(name)
}

// Filter returns the named filter, or nil.
func (d *Datagrid) Filter(name string) Filter {
	f, _ := d.filters.get(name)
	return f
}

// Filters returns filters in their current order.
func (d *Datagrid) Filters() []Filter {
	return d.filters.list()
}

// ReorderFilters moves the named filters to the front, in order.
func (d *Datagrid) ReorderFilters(keys []string) {
	d.filters.reorder(keys)
}

func (d *Datagrid) HasActiveFilters() bool {
	for _, f := range d.filters.list() {
		if f.IsActive() {
			return true
		}
	}
	return false
}
