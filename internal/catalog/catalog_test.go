package catalog

import (
	"errors"
	"sort"
	"testing"

	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query"
)

func testDefinition(t *testing.T, name string) query.Definition {
	t.Helper()
	return query.MustNew(query.Config{
		Name:       name,
		Collection: CollMovies,
		Kind:       query.Count,
	})
}

func TestRegister_NameCollision(t *testing.T) {
	c := New()
	if err := c.Register(testDefinition(t, "q")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := c.Register(testDefinition(t, "q")); err == nil {
		t.Fatal("expected error on duplicate name")
	}
}

func TestGet_UnknownQuery(t *testing.T) {
	c := New()
	_, err := c.Get("nope")
	if !errors.Is(err, domain.ErrUnknownQuery) {
		t.Fatalf("expected ErrUnknownQuery, got %v", err)
	}
}

func TestNewBuiltin_ContainsAllQueries(t *testing.T) {
	c := NewBuiltin()

	want := []string{
		QueryMoviesTotal, QueryUsersTotal, QueryCommentsTotal, QueryTheatersTotal,
		QueryAverageRating, QueryGenreDistribution, QueryRatingDistribution,
		QueryMoviesByDecade, QueryTopRatedMovies, QueryGenrePerformance,
		QueryRatingTrendByDecade, QueryCommentVolume, QueryMostDiscussed,
		QueryTheaterGeoPoints, QueryTheatersByState, QueryGenreList,
		QueryMovieSearch,
	}
	for _, name := range want {
		if _, err := c.Get(name); err != nil {
			t.Errorf("built-in query %s missing: %v", name, err)
		}
	}
	if got := len(c.Names()); got != len(want) {
		t.Errorf("built-in catalog has %d queries, want %d", got, len(want))
	}
}

func TestNames_Sorted(t *testing.T) {
	c := NewBuiltin()
	names := c.Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
}

func TestBuiltin_CollectionsAllowed(t *testing.T) {
	c := NewBuiltin()
	allowed := make(map[string]bool)
	for _, coll := range Collections() {
		allowed[coll] = true
	}

	// Every built-in query, including lookup targets, must stay inside the
	// known collection set.
	for _, name := range c.Names() {
		def, err := c.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		for _, coll := range def.Collections() {
			if !allowed[coll] {
				t.Errorf("query %s reads unknown collection %q", name, coll)
			}
		}
	}
}
