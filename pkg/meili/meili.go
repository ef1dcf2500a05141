// Package meili is a search backend backed by a Meilisearch index.
//
// Field-scoped text clauses become CONTAINS filters, so the server must have
// the containsFilter experimental feature enabled. Date fields are indexed a
// second time as unix seconds under "<field>_ts" for range filters and
// sorting.
package meili

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
)

const (
	timestampSuffix  = "_ts"
	taskPollInterval = 50 * time.Millisecond
	// DefaultMaxTotalHits bounds how deep a listing can page.
	DefaultMaxTotalHits = 100000
)

type Config struct {
	Host   string
	APIKey string
	Index  string
	// DateFields hold dates that range filters and sorts may target.
	DateFields []string
	// FilterableFields are targeted by field-scoped text filters.
	FilterableFields []string
	SortableFields   []string
	// MaxTotalHits is the index pagination limit; zero means
	// DefaultMaxTotalHits.
	MaxTotalHits int64
}

type Backend struct {
	client     meilisearch.ServiceManager
	index      meilisearch.IndexManager
	dateFields []string
	cfg        Config
	logger     *log.Logger
}

var _ search.Store = (*Backend)(nil)

func New(cfg Config) (*Backend, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("meilisearch host is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("meilisearch index is required")
	}
	if cfg.MaxTotalHits <= 0 {
		cfg.MaxTotalHits = DefaultMaxTotalHits
	}
	client := meilisearch.New(cfg.Host, meilisearch.WithAPIKey(cfg.APIKey))
	return &Backend{
		client:     client,
		index:      client.Index(cfg.Index),
		dateFields: cfg.DateFields,
		cfg:        cfg,
		logger:     log.ForService("meili"),
	}, nil
}

// Health checks that the server is reachable.
func (b *Backend) Health(ctx context.Context) error {
	if _, err := b.client.HealthWithContext(ctx); err != nil {
		return fmt.Errorf("meilisearch health: %w", err)
	}
	return nil
}

// EnsureIndex registers filterable and sortable attributes and raises the
// pagination limit so totals stay exact for deep listings.
func (b *Backend) EnsureIndex(ctx context.Context) error {
	filterable := append([]string{}, b.cfg.FilterableFields...)
	sortable := append([]string{}, b.cfg.SortableFields...)
	for i, f := range sortable {
		if b.isDate(f) {
			sortable[i] = f + timestampSuffix
		}
	}
	for _, f := range b.dateFields {
		filterable = append(filterable, f+timestampSuffix)
		if !slices.Contains(sortable, f+timestampSuffix) {
			sortable = append(sortable, f+timestampSuffix)
		}
	}

	attrs := make([]interface{}, 0, len(filterable))
	for _, f := range filterable {
		attrs = append(attrs, f)
	}
	task, err := b.index.UpdateFilterableAttributesWithContext(ctx, &attrs)
	if err != nil {
		return fmt.Errorf("setting filterable attributes: %w", err)
	}
	if err := b.wait(ctx, task, "filterable attributes"); err != nil {
		return err
	}

	task, err = b.index.UpdateSortableAttributesWithContext(ctx, &sortable)
	if err != nil {
		return fmt.Errorf("setting sortable attributes: %w", err)
	}
	if err := b.wait(ctx, task, "sortable attributes"); err != nil {
		return err
	}

	task, err = b.index.UpdatePaginationWithContext(ctx, &meilisearch.Pagination{MaxTotalHits: b.cfg.MaxTotalHits})
	if err != nil {
		return fmt.Errorf("setting pagination: %w", err)
	}
	if err := b.wait(ctx, task, "pagination"); err != nil {
		return err
	}

	b.logger.Debugf("index %s: filterable=%v sortable=%v max_total_hits=%d", b.cfg.Index, filterable, sortable, b.cfg.MaxTotalHits)
	return nil
}

func (b *Backend) Search(ctx context.Context, req *query.SearchRequest) (*search.Result, error) {
	q, sr, err := b.translate(req)
	if err != nil {
		return nil, err
	}
	skip := window(sr, req.From, req.Size)
	b.logger.Debugf("search q=%q filter=%v sort=%v page=%d hits_per_page=%d", q, sr.Filter, sr.Sort, sr.Page, sr.HitsPerPage)

	resp, err := b.index.SearchWithContext(ctx, q, sr)
	if err != nil {
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	hits := resp.Hits
	if skip >= len(hits) {
		hits = nil
	} else {
		hits = hits[skip:]
	}
	if len(hits) > req.Size {
		hits = hits[:max(req.Size, 0)]
	}

	// Page based searches report an exhaustive totalHits.
	result := &search.Result{
		Total:     int(resp.TotalHits),
		Documents: make([]search.Document, 0, len(hits)),
	}
	for _, hit := range hits {
		doc, err := decodeHit(hit)
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, doc)
	}
	return result, nil
}

func (b *Backend) IndexDocuments(ctx context.Context, docs []search.Document) error {
	if len(docs) == 0 {
		return nil
	}

	primaryKey := "id"
	payload := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		m, err := b.encode(doc)
		if err != nil {
			return err
		}
		payload = append(payload, m)
	}

	task, err := b.index.AddDocumentsWithContext(ctx, payload, &meilisearch.DocumentOptions{PrimaryKey: &primaryKey})
	if err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	if err := b.wait(ctx, task, "indexing task"); err != nil {
		return err
	}
	b.logger.Debugf("indexed %d documents", len(docs))
	return nil
}

func (b *Backend) Close() error {
	return nil
}

func (b *Backend) wait(ctx context.Context, task *meilisearch.TaskInfo, what string) error {
	t, err := b.index.WaitForTaskWithContext(ctx, task.TaskUID, taskPollInterval)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", what, err)
	}
	if t.Status == meilisearch.TaskStatusFailed {
		return fmt.Errorf("%s failed: %s", what, t.Error.Message)
	}
	return nil
}

// window maps an offset and limit onto Meilisearch's page based pagination,
// the only mode that reports exhaustive totals. It returns how many leading
// hits of the fetched page precede from.
func window(sr *meilisearch.SearchRequest, from, size int) int {
	switch {
	case size <= 0:
		sr.Page, sr.HitsPerPage = 1, 1
		return 0
	case from%size == 0:
		sr.Page, sr.HitsPerPage = int64(from/size)+1, int64(size)
		return 0
	case from > math.MaxInt-size:
		sr.Page, sr.HitsPerPage = int64(from/size)+1, int64(size)
		return from % size
	default:
		sr.Page, sr.HitsPerPage = 1, int64(from+size)
		return from
	}
}

func (b *Backend) isDate(field string) bool {
	return slices.Contains(b.dateFields, field)
}

// translate maps req onto a query string and a Meilisearch search request.
// "_all" text clauses feed the query string, everything else is a filter.
func (b *Backend) translate(req *query.SearchRequest) (string, *meilisearch.SearchRequest, error) {
	var terms, filters []string

	for _, c := range req.Clauses() {
		switch v := c.(type) {
		case query.TextClause:
			tokens := tokenize(v.Query)
			if v.Field == query.AllFields {
				terms = append(terms, tokens...)
				continue
			}
			for _, tok := range tokens {
				filters = append(filters, fmt.Sprintf("%s CONTAINS %s", v.Field, quote(tok)))
			}
		case query.RangeClause:
			field := v.Field
			if b.isDate(field) {
				field += timestampSuffix
			}
			if v.Gte != "" {
				t, err := parseBound(v.Gte)
				if err != nil {
					return "", nil, err
				}
				filters = append(filters, fmt.Sprintf("%s >= %d", field, t.Unix()))
			}
			if v.Lte != "" {
				t, err := parseBound(v.Lte)
				if err != nil {
					return "", nil, err
				}
				filters = append(filters, fmt.Sprintf("%s <= %d", field, t.Add(24*time.Hour-time.Second).Unix()))
			}
		default:
			return "", nil, fmt.Errorf("unsupported clause %T", c)
		}
	}

	sr := &meilisearch.SearchRequest{}
	if len(filters) > 0 {
		sr.Filter = strings.Join(filters, " AND ")
	}
	for _, s := range req.Sort {
		field := s.Field
		if b.isDate(field) {
			field += timestampSuffix
		}
		sr.Sort = append(sr.Sort, field+":"+string(s.Order))
	}
	return strings.Join(terms, " "), sr, nil
}

func tokenize(q string) []string {
	var out []string
	for _, tok := range strings.Fields(q) {
		tok = strings.Trim(tok, "*")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func parseBound(lit string) (time.Time, error) {
	t, err := time.Parse("2006-1-2", lit)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date bound %q: %w", lit, err)
	}
	return t, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-1-2"}

func parseDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (b *Backend) encode(doc search.Document) (map[string]any, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("document without id")
	}
	m := make(map[string]any, len(doc.Fields)+len(b.dateFields)+1)
	for k, v := range doc.Fields {
		m[k] = v
	}
	m["id"] = doc.ID
	for _, f := range b.dateFields {
		if t, ok := parseDate(m[f]); ok {
			m[f+timestampSuffix] = t.Unix()
		}
	}
	return m, nil
}

func decodeHit(hit meilisearch.Hit) (search.Document, error) {
	doc := search.Document{Fields: make(map[string]any, len(hit))}
	for k, raw := range hit {
		if strings.HasSuffix(k, timestampSuffix) {
			if _, ok := hit[strings.TrimSuffix(k, timestampSuffix)]; ok {
				continue
			}
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return search.Document{}, fmt.Errorf("decoding hit field %s: %w", k, err)
		}
		doc.Fields[k] = v
	}
	switch id := doc.Fields["id"].(type) {
	case string:
		doc.ID = id
	case nil:
		return search.Document{}, fmt.Errorf("hit without id")
	default:
		doc.ID = fmt.Sprint(id)
	}
	return doc, nil
}
