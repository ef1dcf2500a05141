package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
)

// sqlQuery is a translated search request.
type sqlQuery struct {
	match string
	conds []string
	args  []any
	order []string
}

func (q *sqlQuery) from() string {
	if q.match == "" {
		return "documents d"
	}
	return "documents d JOIN documents_fts ON documents_fts.rowid = d.rowid"
}

func (q *sqlQuery) where() (string, []any) {
	conds := q.conds
	args := q.args
	if q.match != "" {
		conds = append([]string{"documents_fts MATCH ?"}, conds...)
		args = append([]any{q.match}, args...)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Search runs req and counts every match with the same predicate.
func (s *Storage) Search(ctx context.Context, req *query.SearchRequest) (*search.Result, error) {
	q, err := s.translate(req)
	if err != nil {
		return nil, err
	}

	where, args := q.where()
	countSQL := "SELECT COUNT(*) FROM " + q.from() + where

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting matches: %w", err)
	}

	result := &search.Result{Total: total, Documents: []search.Document{}}
	if req.Size <= 0 || req.From >= total {
		return result, nil
	}

	selectSQL := "SELECT d.id, d.data FROM " + q.from() + where +
		" ORDER BY " + strings.Join(q.order, ", ") + " LIMIT ? OFFSET ?"
	s.logger.Debugf("query: %s args=%v", selectSQL, args)

	rows, err := s.db.QueryContext(ctx, selectSQL, append(args, req.Size, req.From)...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

func (s *Storage) translate(req *query.SearchRequest) (*sqlQuery, error) {
	q := &sqlQuery{}
	var matches []string

	for _, c := range req.Clauses() {
		switch v := c.(type) {
		case query.TextClause:
			expr, err := s.matchExpr(v)
			if err != nil {
				return nil, err
			}
			if expr != "" {
				matches = append(matches, expr)
			}
		case query.RangeClause:
			if !pathPattern.MatchString(v.Field) {
				return nil, fmt.Errorf("invalid range field %q", v.Field)
			}
			for _, bound := range []struct {
				lit string
				op  string
			}{{v.Gte, ">="}, {v.Lte, "<="}} {
				if bound.lit == "" {
					continue
				}
				iso, err := isoDate(bound.lit)
				if err != nil {
					return nil, err
				}
				q.conds = append(q.conds, fmt.Sprintf("date(json_extract(d.data, ?)) %s ?", bound.op))
				q.args = append(q.args, "$."+v.Field, iso)
			}
		default:
			return nil, fmt.Errorf("unsupported clause %T", c)
		}
	}
	q.match = strings.Join(matches, " AND ")

	for _, srt := range req.Sort {
		if !pathPattern.MatchString(srt.Field) {
			return nil, fmt.Errorf("invalid sort field %q", srt.Field)
		}
		dir := "ASC"
		if srt.Order == query.Desc {
			dir = "DESC"
		}
		q.order = append(q.order, fmt.Sprintf("json_extract(d.data, '$.%s') %s", srt.Field, dir))
	}
	q.order = append(q.order, "d.id ASC")

	return q, nil
}

// matchExpr turns a text clause into an FTS5 MATCH expression. Every token
// is a prefix match and all tokens are required. An empty result means the
// clause does not restrict anything.
func (s *Storage) matchExpr(c query.TextClause) (string, error) {
	column := allTextColumn
	if c.Field != query.AllFields {
		if !slices.Contains(s.textFields, c.Field) {
			return "", fmt.Errorf("field %q is not full-text indexed", c.Field)
		}
		column = c.Field
	}

	var terms []string
	for _, tok := range strings.Fields(c.Query) {
		tok = strings.ReplaceAll(tok, `"`, "")
		tok = strings.Trim(tok, "*")
		if tok == "" {
			continue
		}
		terms = append(terms, fmt.Sprintf(`{%s} : "%s"*`, column, tok))
	}
	return strings.Join(terms, " AND "), nil
}

// isoDate converts a YYYY-M-D literal to YYYY-MM-DD.
func isoDate(lit string) (string, error) {
	t, err := time.Parse("2006-1-2", lit)
	if err != nil {
		return "", fmt.Errorf("invalid date bound %q: %w", lit, err)
	}
	return t.Format("2006-01-02"), nil
}
