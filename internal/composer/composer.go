// Package composer assembles per-section view-models from catalog
// queries. Each operation fans its sub-queries out concurrently, merges
// the results deterministically and applies the section's failure
// policy: a required sub-query failure aborts the operation with a
// PartialDataError naming the failed queries, an optional one leaves a
// nil field and an Unavailable marker. A per-operation deadline bounds
// the whole composition; on expiry the operation reports
// ErrDataUnavailable rather than a partial view-model.
package composer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cinedex-io/cinedex/internal/catalog"
	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/view"
)

// Executor runs named catalog queries (the composer's view of the
// execution engine).
type Executor interface {
	Execute(ctx context.Context, name string, params map[string]any, token string) (domain.ResultSet, error)
}

const defaultDeadline = 10 * time.Second

// Service is the summary composer.
type Service struct {
	engine   Executor
	tokens   TokenSource
	deadline time.Duration
	logger   *zap.Logger
}

// New creates a composer with the default per-operation deadline.
func New(engine Executor, tokens TokenSource, logger *zap.Logger) *Service {
	return &Service{
		engine:   engine,
		tokens:   tokens,
		deadline: defaultDeadline,
		logger:   logger,
	}
}

// WithDeadline overrides the per-operation deadline.
func (s *Service) WithDeadline(d time.Duration) *Service {
	if d > 0 {
		s.deadline = d
	}
	return s
}

// subQuery is one fan-out leg of a composed operation.
type subQuery struct {
	name     string
	params   map[string]any
	optional bool
}

type subResult struct {
	rs  domain.ResultSet
	err error
}

// fanOut runs all sub-queries concurrently under one freshness token and
// waits for every leg. Results are keyed by query name; names are unique
// within a section.
func (s *Service) fanOut(ctx context.Context, subs []subQuery) map[string]subResult {
	token := s.tokens.Token()
	results := make([]subResult, len(subs))

	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rs, err := s.engine.Execute(ctx, subs[i].name, subs[i].params, token)
			results[i] = subResult{rs: rs, err: err}
		}(i)
	}
	wg.Wait()

	byName := make(map[string]subResult, len(subs))
	for i, sub := range subs {
		byName[sub.name] = results[i]
	}
	return byName
}

// runSection executes a section's sub-queries under the operation
// deadline and applies the failure policy. On success it returns the
// result sets keyed by query name plus the names of optional sub-queries
// that failed.
func (s *Service) runSection(
	ctx context.Context, section string, subs []subQuery,
) (map[string]domain.ResultSet, []string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	results := s.fanOut(opCtx, subs)

	byName := make(map[string]domain.ResultSet, len(subs))
	var unavailable, failed []string
	var cause error
	anyErr := false

	for _, sub := range subs {
		res := results[sub.name]
		if res.err == nil {
			byName[sub.name] = res.rs
			continue
		}
		anyErr = true
		// Caller mistakes surface as-is, not as degraded data.
		if errors.Is(res.err, domain.ErrInvalidParameters) || errors.Is(res.err, domain.ErrUnknownQuery) {
			return nil, nil, res.err
		}
		if sub.optional {
			unavailable = append(unavailable, sub.name)
			s.logger.Warn("optional sub-query unavailable",
				zap.String("section", section),
				zap.String("query", sub.name),
				zap.Error(res.err),
			)
			continue
		}
		failed = append(failed, sub.name)
		if cause == nil {
			cause = res.err
		}
	}

	if anyErr && opCtx.Err() != nil {
		return nil, nil, fmt.Errorf("%w: section %s: %v",
			domain.ErrDataUnavailable, section, opCtx.Err())
	}
	if len(failed) > 0 {
		return nil, nil, domain.NewPartialData(section, failed, cause)
	}
	return byName, unavailable, nil
}

// Overview assembles the platform KPI panel. The theater count is
// optional; the remaining totals and the average rating are required.
func (s *Service) Overview(ctx context.Context) (view.OverviewSummary, error) {
	subs := []subQuery{
		{name: catalog.QueryMoviesTotal},
		{name: catalog.QueryUsersTotal},
		{name: catalog.QueryCommentsTotal},
		{name: catalog.QueryTheatersTotal, optional: true},
		{name: catalog.QueryAverageRating},
	}
	byName, unavailable, err := s.runSection(ctx, "overview", subs)
	if err != nil {
		return view.OverviewSummary{}, err
	}

	out := view.OverviewSummary{
		TotalMovies:   countOf(byName[catalog.QueryMoviesTotal]),
		TotalUsers:    countOf(byName[catalog.QueryUsersTotal]),
		TotalComments: countOf(byName[catalog.QueryCommentsTotal]),
		Unavailable:   unavailable,
	}
	if rs, ok := byName[catalog.QueryTheatersTotal]; ok {
		n := countOf(rs)
		out.TheaterCount = &n
	}
	if recs := byName[catalog.QueryAverageRating].Records; len(recs) > 0 {
		out.AverageRating = recs[0]["average_rating"].Num()
	}
	return out, nil
}

// GenrePerformance assembles the per-genre rating profile.
func (s *Service) GenrePerformance(ctx context.Context) ([]view.GenrePerformance, error) {
	byName, _, err := s.runSection(ctx, "genre_performance", []subQuery{
		{name: catalog.QueryGenrePerformance},
	})
	if err != nil {
		return nil, err
	}

	recs := byName[catalog.QueryGenrePerformance].Records
	out := make([]view.GenrePerformance, 0, len(recs))
	for _, rec := range recs {
		out = append(out, view.GenrePerformance{
			Genre:         rec["genre"].Str(),
			AverageRating: rec["average_rating"].Num(),
			MovieCount:    int64(rec["movie_count"].Num()),
		})
	}
	return out, nil
}

// TemporalTrends assembles production volume and rating trend per decade,
// merged on the decade key. fromYear <= 0 uses the default lower bound.
// The rating trend is optional; without it decades carry counts only.
func (s *Service) TemporalTrends(ctx context.Context, fromYear int) (view.TemporalTrends, error) {
	if fromYear <= 0 {
		fromYear = 1900
	}
	// The same bound goes to both legs so rating decades are a subset of
	// production decades.
	params := map[string]any{"from_year": fromYear}

	subs := []subQuery{
		{name: catalog.QueryMoviesByDecade, params: params},
		{name: catalog.QueryRatingTrendByDecade, params: params, optional: true},
	}
	byName, unavailable, err := s.runSection(ctx, "temporal_trends", subs)
	if err != nil {
		return view.TemporalTrends{}, err
	}

	production := byName[catalog.QueryMoviesByDecade].Records
	decades := make([]view.DecadeTrend, 0, len(production))
	index := make(map[int]int, len(production))
	for _, rec := range production {
		decade := int(rec["decade"].Num())
		index[decade] = len(decades)
		decades = append(decades, view.DecadeTrend{
			Decade:     decade,
			MovieCount: int64(rec[catalog.FieldCount].Num()),
		})
	}

	if rated, ok := byName[catalog.QueryRatingTrendByDecade]; ok {
		for _, rec := range rated.Records {
			i, known := index[int(rec["decade"].Num())]
			if !known {
				continue
			}
			if avg := rec["average_rating"]; !avg.IsNull() {
				n := avg.Num()
				decades[i].AverageRating = &n
			}
			decades[i].RatedCount = int64(rec["rated_count"].Num())
		}
	}

	return view.TemporalTrends{Decades: decades, Unavailable: unavailable}, nil
}

// TheaterLocations assembles the geographic panel. Map points are
// required; the by-state breakdown is optional.
func (s *Service) TheaterLocations(ctx context.Context) (view.TheaterMap, error) {
	subs := []subQuery{
		{name: catalog.QueryTheaterGeoPoints},
		{name: catalog.QueryTheatersByState, optional: true},
	}
	byName, unavailable, err := s.runSection(ctx, "theater_locations", subs)
	if err != nil {
		return view.TheaterMap{}, err
	}

	geo := byName[catalog.QueryTheaterGeoPoints].Records
	points := make([]view.TheaterPoint, 0, len(geo))
	for _, rec := range geo {
		pt := rec["point"].Point()
		points = append(points, view.TheaterPoint{
			City:  rec["city"].Str(),
			State: rec["state"].Str(),
			Lon:   pt.Lon,
			Lat:   pt.Lat,
		})
	}

	out := view.TheaterMap{Points: points, Unavailable: unavailable}
	if rs, ok := byName[catalog.QueryTheatersByState]; ok {
		out.ByState = make([]view.StateCount, 0, len(rs.Records))
		for _, rec := range rs.Records {
			out.ByState = append(out.ByState, view.StateCount{
				State: rec["state"].Str(),
				Count: int64(rec[catalog.FieldCount].Num()),
			})
		}
	}
	return out, nil
}

// EngagementMetrics assembles the user engagement panel. Totals are
// required; the monthly volume and most-discussed table are optional.
func (s *Service) EngagementMetrics(ctx context.Context) (view.EngagementSummary, error) {
	subs := []subQuery{
		{name: catalog.QueryCommentsTotal},
		{name: catalog.QueryUsersTotal},
		{name: catalog.QueryCommentVolume, optional: true},
		{name: catalog.QueryMostDiscussed, optional: true},
	}
	byName, unavailable, err := s.runSection(ctx, "engagement", subs)
	if err != nil {
		return view.EngagementSummary{}, err
	}

	out := view.EngagementSummary{
		TotalComments: countOf(byName[catalog.QueryCommentsTotal]),
		TotalUsers:    countOf(byName[catalog.QueryUsersTotal]),
		Unavailable:   unavailable,
	}
	if out.TotalUsers > 0 {
		out.CommentsPerUser = float64(out.TotalComments) / float64(out.TotalUsers)
	}

	if rs, ok := byName[catalog.QueryCommentVolume]; ok {
		out.Volume = make([]view.MonthVolume, 0, len(rs.Records))
		for _, rec := range rs.Records {
			out.Volume = append(out.Volume, view.MonthVolume{
				Month: rec["month"].Time(),
				Count: int64(rec[catalog.FieldCount].Num()),
			})
		}
	}
	if rs, ok := byName[catalog.QueryMostDiscussed]; ok {
		out.MostDiscussed = make([]view.DiscussedMovie, 0, len(rs.Records))
		for _, rec := range rs.Records {
			out.MostDiscussed = append(out.MostDiscussed, view.DiscussedMovie{
				Title:        rec["title"].Str(),
				Year:         int(rec["year"].Num()),
				CommentCount: int64(rec["comment_count"].Num()),
			})
		}
	}
	return out, nil
}

// MovieAnalytics assembles the movie analytics panel: the top-rated
// table plus the genre and rating distributions behind its charts. The
// table is required, the distributions are optional. limit and minVotes
// bound the table only and fall back to the catalog defaults when zero;
// negative values are rejected.
func (s *Service) MovieAnalytics(ctx context.Context, limit, minVotes int) (view.MovieAnalytics, error) {
	if limit < 0 {
		return view.MovieAnalytics{}, domain.NewInvalidParameters("limit", "must not be negative")
	}
	if minVotes < 0 {
		return view.MovieAnalytics{}, domain.NewInvalidParameters("min_votes", "must not be negative")
	}
	topParams := map[string]any{}
	if limit > 0 {
		topParams["limit"] = limit
	}
	if minVotes > 0 {
		topParams["min_votes"] = minVotes
	}

	subs := []subQuery{
		{name: catalog.QueryTopRatedMovies, params: topParams},
		{name: catalog.QueryGenreDistribution, optional: true},
		{name: catalog.QueryRatingDistribution, optional: true},
	}
	byName, unavailable, err := s.runSection(ctx, "movie_analytics", subs)
	if err != nil {
		return view.MovieAnalytics{}, err
	}

	top := byName[catalog.QueryTopRatedMovies].Records
	out := view.MovieAnalytics{
		TopRated:    make([]view.TopRatedMovie, 0, len(top)),
		Unavailable: unavailable,
	}
	for _, rec := range top {
		out.TopRated = append(out.TopRated, view.TopRatedMovie{
			Title:  rec["title"].Str(),
			Year:   int(rec["year"].Num()),
			Genres: rec["genres"].List(),
			Rating: rec["rating"].Num(),
			Votes:  int64(rec["votes"].Num()),
		})
	}
	if rs, ok := byName[catalog.QueryGenreDistribution]; ok {
		out.GenreDistribution = make([]view.GenreCount, 0, len(rs.Records))
		for _, rec := range rs.Records {
			out.GenreDistribution = append(out.GenreDistribution, view.GenreCount{
				Genre: rec["genre"].Str(),
				Count: int64(rec[catalog.FieldCount].Num()),
			})
		}
	}
	if rs, ok := byName[catalog.QueryRatingDistribution]; ok {
		out.Ratings = make([]float64, 0, len(rs.Records))
		for _, rec := range rs.Records {
			out.Ratings = append(out.Ratings, rec["rating"].Num())
		}
	}
	return out, nil
}

// SearchMovies runs the catalog search. Empty title and genre match
// everything; yearFrom, yearTo and limit fall back to the catalog
// defaults when zero. Negative values are rejected, not defaulted.
func (s *Service) SearchMovies(
	ctx context.Context, title, genre string, yearFrom, yearTo, limit int,
) ([]view.MovieSummary, error) {
	if yearFrom < 0 {
		return nil, domain.NewInvalidParameters("year_from", "must not be negative")
	}
	if yearTo < 0 {
		return nil, domain.NewInvalidParameters("year_to", "must not be negative")
	}
	if limit < 0 {
		return nil, domain.NewInvalidParameters("limit", "must not be negative")
	}
	params := map[string]any{"title": title, "genre": genre}
	if yearFrom > 0 {
		params["year_from"] = yearFrom
	}
	if yearTo > 0 {
		params["year_to"] = yearTo
	}
	if limit > 0 {
		params["limit"] = limit
	}

	byName, _, err := s.runSection(ctx, "movie_search", []subQuery{
		{name: catalog.QueryMovieSearch, params: params},
	})
	if err != nil {
		return nil, err
	}

	recs := byName[catalog.QueryMovieSearch].Records
	out := make([]view.MovieSummary, 0, len(recs))
	for _, rec := range recs {
		m := view.MovieSummary{
			Title:  rec["title"].Str(),
			Genres: rec["genres"].List(),
			Plot:   rec["plot"].Str(),
		}
		if y := rec["year"]; !y.IsNull() {
			year := int(y.Num())
			m.Year = &year
		}
		if r := rec["rating"]; !r.IsNull() {
			rating := r.Num()
			m.Rating = &rating
		}
		out = append(out, m)
	}
	return out, nil
}

// Genres lists every distinct genre, sorted, for the search filter.
func (s *Service) Genres(ctx context.Context) ([]string, error) {
	byName, _, err := s.runSection(ctx, "genre_list", []subQuery{
		{name: catalog.QueryGenreList},
	})
	if err != nil {
		return nil, err
	}

	recs := byName[catalog.QueryGenreList].Records
	genres := make([]string, 0, len(recs))
	for _, rec := range recs {
		genres = append(genres, rec["genre"].Str())
	}
	return genres, nil
}

// countOf extracts the single-record count a Count query returns.
func countOf(rs domain.ResultSet) int64 {
	if len(rs.Records) == 0 {
		return 0
	}
	return int64(rs.Records[0][catalog.FieldCount].Num())
}
