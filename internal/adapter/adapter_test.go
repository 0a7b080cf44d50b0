package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query/pipeline"
)

// --- Mocks ---

type mockStore struct {
	scanFunc     func(ctx context.Context, pattern string) ([]string, error)
	getMultiFunc func(ctx context.Context, keys []string) ([][]byte, error)
	scanCalls    int
	getCalls     int
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	m.scanCalls++
	return m.scanFunc(ctx, pattern)
}

func (m *mockStore) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	m.getCalls++
	return m.getMultiFunc(ctx, keys)
}

func storeWithDocs(docs map[string]string) *mockStore {
	return &mockStore{
		scanFunc: func(_ context.Context, _ string) ([]string, error) {
			keys := make([]string, 0, len(docs))
			for k := range docs {
				keys = append(keys, k)
			}
			return keys, nil
		},
		getMultiFunc: func(_ context.Context, keys []string) ([][]byte, error) {
			out := make([][]byte, len(keys))
			for i, k := range keys {
				if v, ok := docs[k]; ok {
					out[i] = []byte(v)
				}
			}
			return out, nil
		},
	}
}

// --- Tests ---

func TestRunAggregation_CollectionNotAllowed(t *testing.T) {
	a := New(storeWithDocs(nil), "cinedex:", []string{"movies"}, zap.NewNop())

	_, err := a.RunAggregation(context.Background(), "sessions", pipeline.New().Build())
	if !errors.Is(err, domain.ErrCollectionNotAllowed) {
		t.Fatalf("expected ErrCollectionNotAllowed, got %v", err)
	}
}

func TestRunAggregation_LookupTargetNotAllowed(t *testing.T) {
	a := New(storeWithDocs(nil), "cinedex:", []string{"comments"}, zap.NewNop())

	p := pipeline.New().
		Lookup("movies", "movie_id", "_id", "movie").
		Build()

	_, err := a.RunAggregation(context.Background(), "comments", p)
	if !errors.Is(err, domain.ErrCollectionNotAllowed) {
		t.Fatalf("expected ErrCollectionNotAllowed for lookup target, got %v", err)
	}
}

func TestRunAggregation_ScanFailureIsStoreUnavailable(t *testing.T) {
	s := &mockStore{
		scanFunc: func(_ context.Context, _ string) ([]string, error) {
			return nil, errors.New("connection refused")
		},
	}
	a := New(s, "cinedex:", []string{"movies"}, zap.NewNop())

	_, err := a.RunAggregation(context.Background(), "movies", pipeline.New().Build())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRunAggregation_SkipsMalformedDocuments(t *testing.T) {
	s := storeWithDocs(map[string]string{
		"cinedex:doc:movies:1": `{"title":"A","year":1999}`,
		"cinedex:doc:movies:2": `{broken`,
		"cinedex:doc:movies:3": `{"title":"B","year":2004}`,
	})
	a := New(s, "cinedex:", []string{"movies"}, zap.NewNop())

	out, err := a.RunAggregation(context.Background(), "movies",
		pipeline.New().Match(pipeline.Exists("title")).Build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 decodable documents, got %d", len(out))
	}
}

func TestRunAggregation_StableDocumentOrder(t *testing.T) {
	s := storeWithDocs(map[string]string{
		"cinedex:doc:movies:b": `{"title":"B"}`,
		"cinedex:doc:movies:a": `{"title":"A"}`,
		"cinedex:doc:movies:c": `{"title":"C"}`,
	})
	a := New(s, "cinedex:", []string{"movies"}, zap.NewNop())

	out, err := a.RunAggregation(context.Background(), "movies", pipeline.New().Build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Keys are sorted before fetch, so order follows key order.
	want := []string{"A", "B", "C"}
	for i, w := range want {
		if out[i]["title"] != w {
			t.Fatalf("position %d = %v, want %s", i, out[i]["title"], w)
		}
	}
}

func TestFetch_BatchesLargeCollections(t *testing.T) {
	keys := make([]string, 0, 1200)
	docs := make(map[string]string, 1200)
	for i := 0; i < 1200; i++ {
		k := fmt.Sprintf("cinedex:doc:movies:%04d", i)
		keys = append(keys, k)
		docs[k] = `{"title":"x"}`
	}
	s := storeWithDocs(docs)
	a := New(s, "cinedex:", []string{"movies"}, zap.NewNop())

	out, err := a.RunAggregation(context.Background(), "movies", pipeline.New().Build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(keys) {
		t.Errorf("expected %d documents, got %d", len(keys), len(out))
	}
	if s.getCalls != 3 {
		t.Errorf("expected 3 MGET round-trips for 1200 keys, got %d", s.getCalls)
	}
}

func TestCount(t *testing.T) {
	s := storeWithDocs(map[string]string{
		"cinedex:doc:movies:1": `{"year":1999}`,
		"cinedex:doc:movies:2": `{"year":2010}`,
		"cinedex:doc:movies:3": `{}`,
	})
	a := New(s, "cinedex:", []string{"movies"}, zap.NewNop())

	n, err := a.Count(context.Background(), "movies", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("unfiltered count = %d, want 3", n)
	}

	n, err = a.Count(context.Background(), "movies",
		[]pipeline.Condition{pipeline.Gte("year", pipeline.Lit(2000))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("filtered count = %d, want 1", n)
	}
}

func TestCount_CollectionNotAllowed(t *testing.T) {
	a := New(storeWithDocs(nil), "cinedex:", []string{"movies"}, zap.NewNop())

	_, err := a.Count(context.Background(), "users", nil)
	if !errors.Is(err, domain.ErrCollectionNotAllowed) {
		t.Fatalf("expected ErrCollectionNotAllowed, got %v", err)
	}
}
