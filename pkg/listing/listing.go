// Package listing assembles a configured listing: the query builder, the
// repository over a search backend, columns and filters, and one datagrid
// per request.
package listing

import (
	"context"
	"fmt"

	"github.com/rubiojr/gridsearch/pkg/config"
	"github.com/rubiojr/gridsearch/pkg/datagrid"
	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/meili"
	"github.com/rubiojr/gridsearch/pkg/metrics"
	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
	"github.com/rubiojr/gridsearch/pkg/storage"
)

// Listing is safe for concurrent use once created; datagrids it returns
// are not.
type Listing struct {
	cfg     *config.Config
	builder *query.Builder
	repo    *search.Repository
	logger  *log.Logger
}

// New returns a listing searching backend. Searches are recorded under the
// configured backend name.
func New(cfg *config.Config, backend search.Backend) *Listing {
	builder := query.NewBuilder(cfg.FilterSpecs(), query.WithFieldSuffix(cfg.FieldSuffix))

	repo := search.NewRepository(metrics.InstrumentBackend(cfg.Backend, backend), builder, cfg.FieldsMapping)
	repo.SetModelIdentifier(cfg.Identifier)
	if ef := cfg.ExtraFilter; ef != nil {
		clause := query.TextClause{Field: ef.Field, Query: ef.Query}
		repo.SetExtraFilter(func() query.Clause { return clause })
	}

	return &Listing{
		cfg:     cfg,
		builder: builder,
		repo:    repo,
		logger:  log.ForService("listing"),
	}
}

func (l *Listing) Config() *config.Config {
	return l.cfg
}

func (l *Listing) Builder() *query.Builder {
	return l.builder
}

func (l *Listing) Repository() *search.Repository {
	return l.repo
}

// Columns returns a fresh column set.
func (l *Listing) Columns() *datagrid.Columns {
	cols := datagrid.NewColumns()
	for _, c := range l.cfg.Columns {
		field := c.Field
		if field == "" {
			field = c.Name
		}
		cols.Add(datagrid.NewColumn(c.Name, c.Label, c.Sortable, field))
	}
	return cols
}

// Datagrid returns an unbound datagrid for values with every configured
// filter registered.
func (l *Listing) Datagrid(values datagrid.Values) *datagrid.Datagrid {
	if values.PerPage <= 0 {
		values.PerPage = l.cfg.PerPage
	}

	var opts []datagrid.Option
	if l.cfg.SearchForm {
		opts = append(opts, datagrid.WithSearchForm())
	}

	dg := datagrid.New(
		datagrid.NewProxyQuery(l.repo),
		l.Columns(),
		datagrid.NewPager(l.cfg.PerPage),
		datagrid.NewFormBuilder(),
		values,
		opts...,
	)
	for _, f := range l.cfg.Filters {
		dg.AddFilter(datagrid.NewFieldFilter(query.FilterSpec{Name: f.Name, Kind: f.Kind, MinLength: f.MinLength}, f.Label))
	}
	return dg
}

// OpenStore opens the configured backend. For Meilisearch the index
// attributes are registered before returning.
func OpenStore(ctx context.Context, cfg *config.Config) (search.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := storage.Open(cfg.SQLite.Path, cfg.TextFields())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store %s: %w", cfg.SQLite.Path, err)
		}
		return s, nil
	case config.BackendMeilisearch:
		b, err := meili.New(meili.Config{
			Host:             cfg.Meilisearch.Host,
			APIKey:           cfg.Meilisearch.APIKey,
			Index:            cfg.Meilisearch.Index,
			DateFields:       cfg.DateFields(),
			FilterableFields: cfg.TextFields(),
			SortableFields:   cfg.SortFields(),
			MaxTotalHits:     cfg.Meilisearch.MaxTotalHits,
		})
		if err != nil {
			return nil, err
		}
		if err := b.Health(ctx); err != nil {
			return nil, err
		}
		if err := b.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
}
