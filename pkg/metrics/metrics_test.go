package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rubiojr/gridsearch/pkg/query"
	"github.com/rubiojr/gridsearch/pkg/search"
)

type stubBackend struct {
	err error
}

func (s stubBackend) Search(ctx context.Context, req *query.SearchRequest) (*search.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &search.Result{Total: 3}, nil
}

func TestInstrumentBackend(t *testing.T) {
	ok := InstrumentBackend("stub-ok", stubBackend{})
	if _, err := ok.Search(context.Background(), &query.SearchRequest{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := testutil.ToFloat64(SearchTotal.WithLabelValues("stub-ok", "ok")); got != 1 {
		t.Errorf("ok searches = %v, want 1", got)
	}

	boom := errors.New("boom")
	failing := InstrumentBackend("stub-err", stubBackend{err: boom})
	if _, err := failing.Search(context.Background(), &query.SearchRequest{}); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want backend error unchanged", err)
	}
	if got := testutil.ToFloat64(SearchTotal.WithLabelValues("stub-err", "error")); got != 1 {
		t.Errorf("failed searches = %v, want 1", got)
	}
}

func TestRecordReload(t *testing.T) {
	before := testutil.ToFloat64(ConfigReloads.WithLabelValues("error"))
	RecordReload(errors.New("bad toml"))
	if got := testutil.ToFloat64(ConfigReloads.WithLabelValues("error")); got != before+1 {
		t.Errorf("error reloads = %v, want %v", got, before+1)
	}
}
