package composer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cinedex-io/cinedex/internal/catalog"
	"github.com/cinedex-io/cinedex/internal/domain"
)

// --- Mocks ---

type mockExecutor struct {
	mu     sync.Mutex
	fn     func(ctx context.Context, name string, params map[string]any) (domain.ResultSet, error)
	calls  map[string]int
	params map[string]map[string]any
	tokens map[string]bool
}

func (m *mockExecutor) Execute(
	ctx context.Context, name string, params map[string]any, token string,
) (domain.ResultSet, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
		m.params = make(map[string]map[string]any)
		m.tokens = make(map[string]bool)
	}
	m.calls[name]++
	m.params[name] = params
	m.tokens[token] = true
	m.mu.Unlock()
	return m.fn(ctx, name, params)
}

type staticTokens struct{}

func (staticTokens) Token() string { return "t" }

func newTestService(fn func(ctx context.Context, name string, params map[string]any) (domain.ResultSet, error)) (*Service, *mockExecutor) {
	exec := &mockExecutor{fn: fn}
	return New(exec, staticTokens{}, zap.NewNop()), exec
}

func countRS(n int64) domain.ResultSet {
	return domain.ResultSet{Records: []domain.Record{
		{catalog.FieldCount: domain.Number(float64(n))},
	}}
}

// --- Tests ---

func TestOverview_AllAvailable(t *testing.T) {
	s, exec := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		switch name {
		case catalog.QueryMoviesTotal:
			return countRS(23539), nil
		case catalog.QueryUsersTotal:
			return countRS(185), nil
		case catalog.QueryCommentsTotal:
			return countRS(50304), nil
		case catalog.QueryTheatersTotal:
			return countRS(1564), nil
		case catalog.QueryAverageRating:
			return domain.ResultSet{Records: []domain.Record{
				{"average_rating": domain.Number(6.9)},
			}}, nil
		}
		t.Fatalf("unexpected query %s", name)
		return domain.ResultSet{}, nil
	})

	out, err := s.Overview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TotalMovies != 23539 || out.TotalUsers != 185 || out.TotalComments != 50304 {
		t.Errorf("totals = %d/%d/%d", out.TotalMovies, out.TotalUsers, out.TotalComments)
	}
	if out.TheaterCount == nil || *out.TheaterCount != 1564 {
		t.Errorf("theater count = %v, want 1564", out.TheaterCount)
	}
	if out.AverageRating != 6.9 {
		t.Errorf("average rating = %v, want 6.9", out.AverageRating)
	}
	if len(out.Unavailable) != 0 {
		t.Errorf("unexpected unavailable markers: %v", out.Unavailable)
	}
	// All legs run under the same freshness token.
	if len(exec.tokens) != 1 {
		t.Errorf("expected one token across the fan-out, saw %d", len(exec.tokens))
	}
}

func TestOverview_OptionalTheaterFailureIsIsolated(t *testing.T) {
	s, _ := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		if name == catalog.QueryTheatersTotal {
			return domain.ResultSet{}, domain.ErrStoreUnavailable
		}
		if name == catalog.QueryAverageRating {
			return domain.ResultSet{Records: []domain.Record{
				{"average_rating": domain.Number(7.0)},
			}}, nil
		}
		return countRS(10), nil
	})

	out, err := s.Overview(context.Background())
	if err != nil {
		t.Fatalf("optional failure must not abort the section: %v", err)
	}
	if out.TheaterCount != nil {
		t.Errorf("theater count = %v, want nil", out.TheaterCount)
	}
	if len(out.Unavailable) != 1 || out.Unavailable[0] != catalog.QueryTheatersTotal {
		t.Errorf("unavailable = %v, want [%s]", out.Unavailable, catalog.QueryTheatersTotal)
	}
	if out.TotalMovies != 10 {
		t.Errorf("remaining fields must still populate, movies = %d", out.TotalMovies)
	}
}

func TestOverview_RequiredFailureIsPartialData(t *testing.T) {
	s, _ := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		if name == catalog.QueryMoviesTotal {
			return domain.ResultSet{}, domain.ErrStoreUnavailable
		}
		if name == catalog.QueryAverageRating {
			return domain.ResultSet{Records: []domain.Record{
				{"average_rating": domain.Number(7.0)},
			}}, nil
		}
		return countRS(10), nil
	})

	_, err := s.Overview(context.Background())
	if !errors.Is(err, domain.ErrPartialData) {
		t.Fatalf("expected ErrPartialData, got %v", err)
	}

	var pde *domain.PartialDataError
	if !errors.As(err, &pde) {
		t.Fatalf("expected *PartialDataError, got %T", err)
	}
	if len(pde.Failed) != 1 || pde.Failed[0] != catalog.QueryMoviesTotal {
		t.Errorf("failed = %v, want [%s]", pde.Failed, catalog.QueryMoviesTotal)
	}
}

func TestRunSection_CallerMistakesSurfaceAsIs(t *testing.T) {
	s, _ := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		if name == catalog.QueryTheatersTotal {
			// Even on an optional leg, a caller mistake is not degraded data.
			return domain.ResultSet{}, domain.NewInvalidParameters("limit", "expected integer")
		}
		return countRS(1), nil
	})

	_, err := s.Overview(context.Background())
	if !errors.Is(err, domain.ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
	if errors.Is(err, domain.ErrPartialData) {
		t.Error("caller mistake must not be reported as partial data")
	}
}

func TestRunSection_DeadlineExpiryIsDataUnavailable(t *testing.T) {
	s, _ := newTestService(func(ctx context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		if name == catalog.QueryTheatersTotal {
			// Optional leg that only fails once the operation deadline hits.
			<-ctx.Done()
			return domain.ResultSet{}, domain.ErrStoreUnavailable
		}
		if name == catalog.QueryAverageRating {
			return domain.ResultSet{Records: []domain.Record{
				{"average_rating": domain.Number(7.0)},
			}}, nil
		}
		return countRS(1), nil
	})
	s.WithDeadline(20 * time.Millisecond)

	_, err := s.Overview(context.Background())
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable on deadline expiry, got %v", err)
	}
	if errors.Is(err, domain.ErrPartialData) {
		t.Error("deadline expiry must never yield a partial view-model")
	}
}

func TestTemporalTrends_MergesByDecade(t *testing.T) {
	s, exec := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		switch name {
		case catalog.QueryMoviesByDecade:
			return domain.ResultSet{Records: []domain.Record{
				{"decade": domain.Number(1980), catalog.FieldCount: domain.Number(120)},
				{"decade": domain.Number(1990), catalog.FieldCount: domain.Number(340)},
				{"decade": domain.Number(2000), catalog.FieldCount: domain.Number(510)},
			}}, nil
		case catalog.QueryRatingTrendByDecade:
			return domain.ResultSet{Records: []domain.Record{
				{"decade": domain.Number(1980), "average_rating": domain.Number(7.1), "rated_count": domain.Number(100)},
				{"decade": domain.Number(1990), "average_rating": domain.Null(), "rated_count": domain.Number(0)},
			}}, nil
		}
		t.Fatalf("unexpected query %s", name)
		return domain.ResultSet{}, nil
	})

	out, err := s.TemporalTrends(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A zero fromYear falls back to the default lower bound on both legs.
	for _, name := range []string{catalog.QueryMoviesByDecade, catalog.QueryRatingTrendByDecade} {
		if got := exec.params[name]["from_year"]; got != 1900 {
			t.Errorf("%s from_year = %v, want 1900", name, got)
		}
	}

	if len(out.Decades) != 3 {
		t.Fatalf("expected 3 decades, got %d", len(out.Decades))
	}
	d80 := out.Decades[0]
	if d80.Decade != 1980 || d80.MovieCount != 120 || d80.RatedCount != 100 {
		t.Errorf("1980s = %+v", d80)
	}
	if d80.AverageRating == nil || *d80.AverageRating != 7.1 {
		t.Errorf("1980s average = %v, want 7.1", d80.AverageRating)
	}
	if out.Decades[1].AverageRating != nil {
		t.Errorf("null average must stay nil, got %v", *out.Decades[1].AverageRating)
	}
	if out.Decades[2].AverageRating != nil || out.Decades[2].RatedCount != 0 {
		t.Errorf("decade without rating data = %+v", out.Decades[2])
	}
}

func TestTemporalTrends_OptionalRatingLegFailure(t *testing.T) {
	s, _ := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		switch name {
		case catalog.QueryMoviesByDecade:
			return domain.ResultSet{Records: []domain.Record{
				{"decade": domain.Number(1990), catalog.FieldCount: domain.Number(340)},
			}}, nil
		case catalog.QueryRatingTrendByDecade:
			return domain.ResultSet{}, domain.ErrStoreUnavailable
		}
		return domain.ResultSet{}, nil
	})

	out, err := s.TemporalTrends(context.Background(), 1950)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Decades) != 1 || out.Decades[0].MovieCount != 340 {
		t.Fatalf("counts must survive without the rating leg: %+v", out.Decades)
	}
	if out.Decades[0].AverageRating != nil {
		t.Error("average must be nil without rating data")
	}
	if len(out.Unavailable) != 1 || out.Unavailable[0] != catalog.QueryRatingTrendByDecade {
		t.Errorf("unavailable = %v", out.Unavailable)
	}
}

func TestSearchMovies_ParamsAndNullFields(t *testing.T) {
	s, exec := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		return domain.ResultSet{Records: []domain.Record{
			{
				"title":  domain.String("Alpha"),
				"year":   domain.Number(1999),
				"rating": domain.Number(8.2),
				"genres": domain.StringList([]string{"Drama"}),
				"plot":   domain.String("A movie."),
			},
			{
				"title":  domain.String("Beta"),
				"year":   domain.Null(),
				"rating": domain.Null(),
				"genres": domain.StringList(nil),
				"plot":   domain.String(""),
			},
		}}, nil
	})

	out, err := s.SearchMovies(context.Background(), "alp", "Drama", 1990, 0, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := exec.params[catalog.QueryMovieSearch]
	if sent["title"] != "alp" || sent["genre"] != "Drama" {
		t.Errorf("text filters = %v", sent)
	}
	if sent["year_from"] != 1990 || sent["limit"] != 25 {
		t.Errorf("numeric filters = %v", sent)
	}
	if _, present := sent["year_to"]; present {
		t.Error("zero year_to must be omitted so the catalog default applies")
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(out))
	}
	if out[0].Year == nil || *out[0].Year != 1999 || out[0].Rating == nil || *out[0].Rating != 8.2 {
		t.Errorf("first summary = %+v", out[0])
	}
	if out[1].Year != nil || out[1].Rating != nil {
		t.Errorf("null year/rating must map to nil pointers: %+v", out[1])
	}
}

func TestSearchMovies_NegativeFiltersRejected(t *testing.T) {
	s, exec := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		return domain.ResultSet{}, nil
	})

	for _, tt := range []struct {
		name                    string
		yearFrom, yearTo, limit int
	}{
		{"year_from", -1, 0, 0},
		{"year_to", 0, -5, 0},
		{"limit", 0, 0, -10},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SearchMovies(context.Background(), "", "", tt.yearFrom, tt.yearTo, tt.limit)
			if !errors.Is(err, domain.ErrInvalidParameters) {
				t.Fatalf("err = %v, want ErrInvalidParameters", err)
			}
			var ipe *domain.InvalidParametersError
			if !errors.As(err, &ipe) || ipe.Param != tt.name {
				t.Errorf("err = %v, want parameter %s named", err, tt.name)
			}
		})
	}
	if len(exec.calls) != 0 {
		t.Errorf("engine must not be reached for negative filters, calls = %v", exec.calls)
	}
}

func TestMovieAnalytics_AssemblesAllLegs(t *testing.T) {
	s, exec := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		switch name {
		case catalog.QueryTopRatedMovies:
			return domain.ResultSet{Records: []domain.Record{
				{
					"title":  domain.String("Alpha"),
					"year":   domain.Number(1994),
					"genres": domain.StringList([]string{"Drama"}),
					"rating": domain.Number(9.3),
					"votes":  domain.Number(2000000),
				},
			}}, nil
		case catalog.QueryGenreDistribution:
			return domain.ResultSet{Records: []domain.Record{
				{"genre": domain.String("Drama"), catalog.FieldCount: domain.Number(12)},
				{"genre": domain.String("Comedy"), catalog.FieldCount: domain.Number(7)},
			}}, nil
		case catalog.QueryRatingDistribution:
			return domain.ResultSet{Records: []domain.Record{
				{"rating": domain.Number(6.5)},
				{"rating": domain.Number(9.3)},
			}}, nil
		}
		t.Fatalf("unexpected query %s", name)
		return domain.ResultSet{}, nil
	})

	out, err := s.MovieAnalytics(context.Background(), 5, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := exec.params[catalog.QueryTopRatedMovies]
	if sent["limit"] != 5 || sent["min_votes"] != 500 {
		t.Errorf("top-rated params = %v", sent)
	}

	if len(out.TopRated) != 1 {
		t.Fatalf("expected 1 top-rated row, got %d", len(out.TopRated))
	}
	row := out.TopRated[0]
	if row.Title != "Alpha" || row.Year != 1994 || row.Rating != 9.3 || row.Votes != 2000000 {
		t.Errorf("top-rated row = %+v", row)
	}
	if len(row.Genres) != 1 || row.Genres[0] != "Drama" {
		t.Errorf("genres = %v", row.Genres)
	}
	if len(out.GenreDistribution) != 2 || out.GenreDistribution[0].Genre != "Drama" || out.GenreDistribution[0].Count != 12 {
		t.Errorf("genre distribution = %v", out.GenreDistribution)
	}
	if len(out.Ratings) != 2 || out.Ratings[1] != 9.3 {
		t.Errorf("ratings = %v", out.Ratings)
	}
	if len(out.Unavailable) != 0 {
		t.Errorf("unexpected unavailable markers: %v", out.Unavailable)
	}
}

func TestMovieAnalytics_OptionalDistributionFailure(t *testing.T) {
	s, exec := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		switch name {
		case catalog.QueryTopRatedMovies:
			return domain.ResultSet{Records: []domain.Record{
				{
					"title":  domain.String("Alpha"),
					"year":   domain.Number(1994),
					"genres": domain.StringList(nil),
					"rating": domain.Number(9.3),
					"votes":  domain.Number(2000000),
				},
			}}, nil
		case catalog.QueryGenreDistribution, catalog.QueryRatingDistribution:
			return domain.ResultSet{}, domain.ErrStoreUnavailable
		}
		return domain.ResultSet{}, nil
	})

	out, err := s.MovieAnalytics(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("optional failures must not abort the section: %v", err)
	}
	if len(out.TopRated) != 1 {
		t.Errorf("top-rated table must still populate, got %d rows", len(out.TopRated))
	}
	if out.GenreDistribution != nil || out.Ratings != nil {
		t.Error("failed optional legs must leave nil slices")
	}
	if len(out.Unavailable) != 2 {
		t.Errorf("unavailable = %v, want both distributions", out.Unavailable)
	}

	// Zero limit and min_votes defer to the catalog defaults.
	sent := exec.params[catalog.QueryTopRatedMovies]
	if _, present := sent["limit"]; present {
		t.Error("zero limit must be omitted so the catalog default applies")
	}
	if _, present := sent["min_votes"]; present {
		t.Error("zero min_votes must be omitted so the catalog default applies")
	}
}

func TestMovieAnalytics_NegativeParamsRejected(t *testing.T) {
	s, exec := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		return domain.ResultSet{}, nil
	})

	if _, err := s.MovieAnalytics(context.Background(), -1, 0); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("negative limit: err = %v, want ErrInvalidParameters", err)
	}
	if _, err := s.MovieAnalytics(context.Background(), 0, -1); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("negative min_votes: err = %v, want ErrInvalidParameters", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("engine must not be reached for negative parameters, calls = %v", exec.calls)
	}
}

func TestEngagementMetrics_CommentsPerUser(t *testing.T) {
	s, _ := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		switch name {
		case catalog.QueryCommentsTotal:
			return countRS(300), nil
		case catalog.QueryUsersTotal:
			return countRS(120), nil
		case catalog.QueryCommentVolume, catalog.QueryMostDiscussed:
			return domain.ResultSet{}, domain.ErrStoreUnavailable
		}
		return domain.ResultSet{}, nil
	})

	out, err := s.EngagementMetrics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CommentsPerUser != 2.5 {
		t.Errorf("comments per user = %v, want 2.5", out.CommentsPerUser)
	}
	if len(out.Unavailable) != 2 {
		t.Errorf("unavailable = %v, want both optional legs", out.Unavailable)
	}
	if out.Volume != nil || out.MostDiscussed != nil {
		t.Error("failed optional legs must leave nil slices")
	}
}

func TestGenres(t *testing.T) {
	s, _ := newTestService(func(_ context.Context, name string, _ map[string]any) (domain.ResultSet, error) {
		if name != catalog.QueryGenreList {
			t.Fatalf("unexpected query %s", name)
		}
		return domain.ResultSet{Records: []domain.Record{
			{"genre": domain.String("Comedy")},
			{"genre": domain.String("Drama")},
		}}, nil
	})

	genres, err := s.Genres(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(genres) != 2 || genres[0] != "Comedy" || genres[1] != "Drama" {
		t.Errorf("genres = %v", genres)
	}
}
