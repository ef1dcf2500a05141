package listing

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/datagrid"
	"github.com/rubiojr/gridsearch/pkg/query"
)

// ErrBadRequest marks values that cannot be parsed.
var ErrBadRequest = errors.New("bad listing request")

// ParseValues reads listing values from a query string.
//
// Text filters come as name=value (or name[value]=value, with an optional
// name[type] operator). Date ranges come as name[start][year]=...,
// name[start][month]=..., down to name[end][day]=..., or compactly as
// name=2024-01-01..2024-12-31. In search form mode every filter key carries
// the configured field suffix.
//
// _sort_by names a column. A name that matches no column is passed through
// as a string, which the datagrid rejects as an unexpected sort type.
func (l *Listing) ParseValues(form url.Values) (datagrid.Values, error) {
	values := datagrid.Values{
		Filters:   make(map[string]datagrid.FilterData),
		SortOrder: form.Get(datagrid.FieldSortOrder),
	}

	for _, f := range l.cfg.Filters {
		key := f.Name
		if l.cfg.SearchForm {
			key = f.Name + l.cfg.FieldSuffix
		}
		v, err := parseFilterValue(form, key, f)
		if err != nil {
			return values, err
		}
		if v == nil {
			continue
		}
		if l.cfg.SearchForm {
			values.Search.Set(key, v)
			continue
		}
		values.Filters[f.Name] = datagrid.FilterData{Type: form.Get(key + "[type]"), Value: v}
	}

	if name := form.Get(datagrid.FieldSortBy); name != "" {
		if col, ok := l.Columns().Get(name); ok {
			values.SortBy = col
		} else {
			values.SortBy = name
		}
	}

	var err error
	if values.Page, err = intParam(form, datagrid.FieldPage); err != nil {
		return values, err
	}
	if values.PerPage, err = intParam(form, datagrid.FieldPerPage); err != nil {
		return values, err
	}
	if values.PerPage > datagrid.MaxPerPageLimit {
		return values, fmt.Errorf("%w: %s must not exceed %d", ErrBadRequest, datagrid.FieldPerPage, datagrid.MaxPerPageLimit)
	}
	return values, nil
}

func parseFilterValue(form url.Values, key string, f config.FilterConfig) (query.Value, error) {
	if f.Kind != query.KindDateRange {
		if form.Has(key + "[value]") {
			return query.Text(form.Get(key + "[value]")), nil
		}
		if form.Has(key) {
			return query.Text(form.Get(key)), nil
		}
		return nil, nil
	}

	if compact := form.Get(key); compact != "" {
		dr, err := ParseDateRange(compact)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadRequest, key, err)
		}
		return dr, nil
	}

	var dr query.DateRange
	found := false
	for _, part := range []struct {
		bound string
		date  *query.Date
	}{{"start", &dr.Start}, {"end", &dr.End}} {
		for _, member := range []struct {
			name string
			dst  *string
		}{{"year", &part.date.Year}, {"month", &part.date.Month}, {"day", &part.date.Day}} {
			k := fmt.Sprintf("%s[%s][%s]", key, part.bound, member.name)
			if form.Has(k) {
				found = true
				*member.dst = form.Get(k)
			}
		}
	}
	if !found {
		return nil, nil
	}
	return dr, nil
}

// ParseDateRange parses "YYYY-MM-DD..YYYY-MM-DD". Either side may be left
// empty, which yields an incomplete range that filters nothing.
func ParseDateRange(s string) (query.DateRange, error) {
	start, end, ok := strings.Cut(s, "..")
	if !ok {
		return query.DateRange{}, fmt.Errorf("date range %q: expected start..end", s)
	}
	var dr query.DateRange
	var err error
	if dr.Start, err = parseDate(start); err != nil {
		return query.DateRange{}, err
	}
	if dr.End, err = parseDate(end); err != nil {
		return query.DateRange{}, err
	}
	return dr, nil
}

func parseDate(s string) (query.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return query.Date{}, nil
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return query.Date{}, fmt.Errorf("date %q: expected YYYY-MM-DD", s)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return query.Date{}, fmt.Errorf("date %q: %w", s, err)
		}
	}
	return query.Date{Year: parts[0], Month: parts[1], Day: parts[2]}, nil
}

func intParam(form url.Values, key string) (int, error) {
	raw := form.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", ErrBadRequest, key, raw)
	}
	return n, nil
}
