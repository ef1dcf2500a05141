package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
	"github.com/rubiojr/gridsearch/pkg/storage"
)

const sampleJSONL = `{"id": "a", "title": "first"}
{"id": 7, "title": "second"}
{"title": "third"}
`

func TestReadDocuments(t *testing.T) {
	var batches [][]search.Document
	n, err := readDocuments(strings.NewReader(sampleJSONL), "id", 2, func(docs []search.Document) error {
		batches = append(batches, append([]search.Document(nil), docs...))
		return nil
	})
	if err != nil {
		t.Fatalf("readDocuments: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if len(batches) != 2 || len(batches[0]) != 2 || len(batches[1]) != 1 {
		t.Fatalf("unexpected batches %v", batches)
	}
	if batches[0][0].ID != "a" || batches[0][1].ID != "7" {
		t.Errorf("ids = %q, %q", batches[0][0].ID, batches[0][1].ID)
	}
	generated := batches[1][0]
	if len(generated.ID) != 36 || generated.Fields["id"] != generated.ID {
		t.Errorf("expected a generated uuid, got %+v", generated)
	}
}

func TestReadDocumentsErrors(t *testing.T) {
	_, err := readDocuments(strings.NewReader(`{"id": "a"}{broken`), "id", 10, func([]search.Document) error { return nil })
	if err == nil {
		t.Error("expected decode error")
	}

	boom := errors.New("boom")
	_, err = readDocuments(strings.NewReader(sampleJSONL), "id", 10, func([]search.Document) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want flush error", err)
	}
}

func TestIndexCompressedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.jsonl.zst")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(sampleJSONL)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := storage.Open(filepath.Join(dir, "test.db"), []string{"title"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	n, err := indexFile(context.Background(), path, "id", "sqlite", 100, s)
	if err != nil {
		t.Fatalf("indexFile: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}

	res, err := s.Search(context.Background(), &query.SearchRequest{
		Query: &query.BoolQuery{Must: []query.Clause{query.TextClause{Field: "title", Query: "second"}}},
		Size:  10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Documents) != 1 || res.Documents[0].ID != "7" {
		t.Errorf("documents = %+v", res.Documents)
	}
}
