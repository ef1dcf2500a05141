package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rubiojr/gridsearch/pkg/datagrid"
	"github.com/rubiojr/gridsearch/pkg/listing"
	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/version"
)

// isClientError reports errors caused by the submitted values rather than
// the backend.
func isClientError(err error) bool {
	for _, target := range []error{
		listing.ErrBadRequest,
		datagrid.ErrUnexpectedSortType,
		query.ErrUnknownField,
		query.ErrMalformedDate,
		query.ErrUnexpectedValue,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	l := s.current()

	values, err := l.ParseValues(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	dg := l.Datagrid(values)
	page, err := dg.Results(r.Context())
	if err != nil {
		if isClientError(err) {
			s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
			return
		}
		s.logger.Errorf("search failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	docs := make([]DocumentResponse, len(page.Documents))
	for i, doc := range page.Documents {
		docs[i] = DocumentResponse{ID: doc.ID, Fields: doc.Fields}
	}

	active := []string{}
	for _, f := range dg.Filters() {
		if f.IsActive() {
			active = append(active, f.Name())
		}
	}

	q := dg.Query()
	sort := l.Repository().ResolveSort(q.SortBy(), q.SortOrder())

	response := SearchResponse{
		Documents:     docs,
		Count:         len(docs),
		Total:         page.Total,
		Page:          page.Page,
		PerPage:       page.PerPage,
		LastPage:      page.LastPage,
		HasMore:       page.HasNextPage(),
		Sort:          SortResponse{Field: sort.Field, Order: string(sort.Order)},
		ActiveFilters: active,
	}
	if req, err := q.Request(); err == nil {
		response.Request = req.String()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// HandleFilters describes the form fields and columns of the listing.
func (s *Server) HandleFilters(w http.ResponseWriter, r *http.Request) {
	l := s.current()

	form, err := l.Datagrid(datagrid.Values{}).Form()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to build form", err.Error())
		return
	}

	response := FiltersResponse{}
	for _, f := range form.Fields() {
		response.Fields = append(response.Fields, FieldResponse{Name: f.Name, Type: f.Type, Options: f.Options})
	}
	for _, c := range l.Columns().Elements() {
		response.Columns = append(response.Columns, ColumnResponse{Name: c.Name(), Sortable: c.IsSortable()})
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
