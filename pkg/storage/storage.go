// Package storage is a search backend on top of a single SQLite database
// with an FTS5 index.
//
// Documents are stored as JSON in the documents table. Each configured text
// field gets its own FTS5 column, plus an all_text column holding every
// string value of the document, which serves the "_all" pseudo-field.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/gridsearch/pkg/log"
	"github.com/rubiojr/gridsearch/pkg/search"
)

const allTextColumn = "all_text"

var (
	columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	pathPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

type Storage struct {
	db         *sql.DB
	textFields []string
	logger     *log.Logger
}

var _ search.Store = (*Storage)(nil)

// Open opens (or creates) the database at dbPath. textFields are the
// document fields that text filters can target.
func Open(dbPath string, textFields []string) (*Storage, error) {
	fields, err := normalizeTextFields(textFields)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	s := &Storage{
		db:         db,
		textFields: fields,
		logger:     log.ForService("storage"),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func normalizeTextFields(textFields []string) ([]string, error) {
	var fields []string
	for _, f := range textFields {
		if f == allTextColumn || slices.Contains(fields, f) {
			continue
		}
		if !columnPattern.MatchString(f) {
			return nil, fmt.Errorf("invalid text field name %q", f)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection.
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) ftsColumns() []string {
	return append(append([]string{}, s.textFields...), allTextColumn)
}

func (s *Storage) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	existing, err := s.existingFTSColumns()
	if err != nil {
		return err
	}
	if len(existing) > 0 && slices.Equal(existing, s.ftsColumns()) {
		return nil
	}
	if len(existing) > 0 {
		s.logger.Infof("text fields changed (%v -> %v), rebuilding full-text index", existing, s.ftsColumns())
		if _, err := s.db.Exec("DROP TABLE documents_fts"); err != nil {
			return fmt.Errorf("dropping FTS table: %w", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf(
		"CREATE VIRTUAL TABLE documents_fts USING fts5(%s)",
		strings.Join(s.ftsColumns(), ", "),
	)); err != nil {
		return fmt.Errorf("creating FTS table: %w", err)
	}

	if len(existing) > 0 {
		return s.rebuildFTS(context.Background())
	}
	return nil
}

func (s *Storage) existingFTSColumns() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info('documents_fts')")
	if err != nil {
		return nil, fmt.Errorf("reading FTS columns: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning FTS column: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// Rebuild drops every full-text row and reindexes the stored documents.
func (s *Storage) Rebuild(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents_fts"); err != nil {
		return fmt.Errorf("clearing FTS table: %w", err)
	}
	return s.rebuildFTS(ctx)
}

// Check runs the SQLite and FTS5 integrity checks.
func (s *Storage) Check(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("running integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO documents_fts(documents_fts) VALUES('integrity-check')"); err != nil {
		return fmt.Errorf("FTS integrity check failed: %w", err)
	}
	return nil
}

// rebuildFTS reindexes every stored document.
func (s *Storage) rebuildFTS(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, data FROM documents")
	if err != nil {
		return fmt.Errorf("reading documents: %w", err)
	}
	var docs []search.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	return s.IndexDocuments(ctx, docs)
}

// IndexDocuments inserts or replaces documents in one transaction. The
// document ID is also stored in its fields under "id".
func (s *Storage) IndexDocuments(ctx context.Context, docs []search.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
		RETURNING rowid`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer upsert.Close()

	cols := s.ftsColumns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+1), ", ")
	ftsDelete, err := tx.PrepareContext(ctx, "DELETE FROM documents_fts WHERE rowid = ?")
	if err != nil {
		return fmt.Errorf("preparing FTS delete: %w", err)
	}
	defer ftsDelete.Close()

	ftsInsert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO documents_fts (rowid, %s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders,
	))
	if err != nil {
		return fmt.Errorf("preparing FTS insert: %w", err)
	}
	defer ftsInsert.Close()

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document without id")
		}
		fields := make(map[string]any, len(doc.Fields)+1)
		for k, v := range doc.Fields {
			fields[k] = v
		}
		if _, ok := fields["id"]; !ok {
			fields["id"] = doc.ID
		}

		data, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("marshaling document %s: %w", doc.ID, err)
		}

		var rowid int64
		if err := upsert.QueryRowContext(ctx, doc.ID, string(data)).Scan(&rowid); err != nil {
			return fmt.Errorf("storing document %s: %w", doc.ID, err)
		}
		if _, err := ftsDelete.ExecContext(ctx, rowid); err != nil {
			return fmt.Errorf("clearing FTS row for %s: %w", doc.ID, err)
		}

		args := []any{rowid}
		for _, f := range s.textFields {
			args = append(args, textValue(fields[f]))
		}
		args = append(args, allText(fields))
		if _, err := ftsInsert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("indexing document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.logger.Debugf("indexed %d documents", len(docs))
	return nil
}

// Optimize merges FTS index segments.
func (s *Storage) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "INSERT INTO documents_fts(documents_fts) VALUES('optimize')"); err != nil {
		return fmt.Errorf("optimizing FTS index: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimizing database: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func textValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := textValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(val, " ")
	default:
		return fmt.Sprint(val)
	}
}

func allText(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch fields[k].(type) {
		case string, []any, []string:
			if s := textValue(fields[k]); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (search.Document, error) {
	var id, data string
	if err := row.Scan(&id, &data); err != nil {
		return search.Document{}, fmt.Errorf("scanning row: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return search.Document{}, fmt.Errorf("unmarshaling document %s: %w", id, err)
	}
	return search.Document{ID: id, Fields: fields}, nil
}
