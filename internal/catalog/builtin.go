package catalog

import (
	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/query"
	"github.com/cinedex-io/cinedex/internal/domain/query/pipeline"
)

// Collection names of the MFlix catalog.
const (
	CollMovies   = "movies"
	CollComments = "comments"
	CollUsers    = "users"
	CollTheaters = "theaters"
	CollSessions = "sessions"
)

// Collections lists every collection the built-in queries may touch; the
// adapter allow-list is seeded from it.
func Collections() []string {
	return []string{CollMovies, CollComments, CollUsers, CollTheaters, CollSessions}
}

// Built-in query names.
const (
	QueryMoviesTotal         = "movies_total"
	QueryUsersTotal          = "users_total"
	QueryCommentsTotal       = "comments_total"
	QueryTheatersTotal       = "theaters_total"
	QueryAverageRating       = "average_rating"
	QueryGenreDistribution   = "genre_distribution"
	QueryRatingDistribution  = "rating_distribution"
	QueryMoviesByDecade      = "movies_by_decade"
	QueryTopRatedMovies      = "top_rated_movies"
	QueryGenrePerformance    = "genre_performance"
	QueryRatingTrendByDecade = "rating_trend_by_decade"
	QueryCommentVolume       = "comment_volume"
	QueryMostDiscussed       = "most_discussed_movies"
	QueryTheaterGeoPoints    = "theater_geo_points"
	QueryTheatersByState     = "theaters_by_state"
	QueryGenreList           = "genre_list"
	QueryMovieSearch         = "movie_search"
)

// Shared field names.
const (
	FieldCount = "count"
)

func countDefinition(name, collection string) query.Definition {
	return query.MustNew(query.Config{
		Name:       name,
		Collection: collection,
		Kind:       query.Count,
		Fields: []query.FieldSpec{
			{Name: FieldCount, Type: domain.KindNumber, OnMissing: query.DropRecord},
		},
	})
}

//nolint:funlen // enumerates the fixed query set in one place
func builtinDefinitions() []query.Definition {
	ratingBounds := query.FieldSpec{
		Name: "rating", Type: domain.KindNumber, OnMissing: query.DropRecord,
		Min: query.Float64Ptr(0), Max: query.Float64Ptr(10),
	}

	return []query.Definition{
		countDefinition(QueryMoviesTotal, CollMovies),
		countDefinition(QueryUsersTotal, CollUsers),
		countDefinition(QueryCommentsTotal, CollComments),
		countDefinition(QueryTheatersTotal, CollTheaters),

		// Average over movies with a numeric rating only; unrated movies
		// are excluded from numerator and denominator alike, and
		// rated_count reports that same sample.
		query.MustNew(query.Config{
			Name:       QueryAverageRating,
			Collection: CollMovies,
			Pipeline: pipeline.New().
				Match(pipeline.Exists("imdb.rating")).
				Group(nil,
					pipeline.Accumulator{Kind: pipeline.AccAvg, Path: "imdb.rating", As: "average_rating"},
					pipeline.Accumulator{Kind: pipeline.AccCountNumeric, Path: "imdb.rating", As: "rated_count"},
				).
				Build(),
			Fields: []query.FieldSpec{
				{Name: "average_rating", Type: domain.KindNumber, OnMissing: query.DropRecord,
					Min: query.Float64Ptr(0), Max: query.Float64Ptr(10)},
				{Name: "rated_count", Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
		}),

		query.MustNew(query.Config{
			Name:       QueryGenreDistribution,
			Collection: CollMovies,
			Params: []query.ParamSpec{
				{Name: "limit", Type: query.ParamInt, Default: 20,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(100)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.NotEmpty("genres")).
				Unwind("genres").
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByField, Path: "genres", As: "genre"},
					pipeline.Accumulator{Kind: pipeline.AccCount, As: FieldCount},
				).
				Sort(pipeline.SortKey{Field: FieldCount, Desc: true}, pipeline.SortKey{Field: "genre"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "genre", Type: domain.KindString, OnMissing: query.DropRecord},
				{Name: FieldCount, Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: FieldCount, Desc: true}, {Field: "genre"}},
		}),

		query.MustNew(query.Config{
			Name:       QueryRatingDistribution,
			Collection: CollMovies,
			Params: []query.ParamSpec{
				{Name: "limit", Type: query.ParamInt, Default: 10000,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(50000)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.Exists("imdb.rating")).
				Project(pipeline.Projection{Name: "rating", Path: "imdb.rating"}).
				Sort(pipeline.SortKey{Field: "rating"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{ratingBounds},
			Order:  []pipeline.SortKey{{Field: "rating"}},
		}),

		query.MustNew(query.Config{
			Name:       QueryMoviesByDecade,
			Collection: CollMovies,
			Params: []query.ParamSpec{
				{Name: "from_year", Type: query.ParamInt, Default: 1900,
					Min: query.Float64Ptr(1800), Max: query.Float64Ptr(2100)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.Exists("year"), pipeline.Gte("year", pipeline.P("from_year"))).
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByDecade, Path: "year", As: "decade"},
					pipeline.Accumulator{Kind: pipeline.AccCount, As: FieldCount},
				).
				Sort(pipeline.SortKey{Field: "decade"}).
				Build(),
			Fields: []query.FieldSpec{
				{Name: "decade", Type: domain.KindNumber, OnMissing: query.DropRecord},
				{Name: FieldCount, Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: "decade"}},
		}),

		// Ties on rating break by title ascending so repeated executions
		// over identical data return identical sequences.
		query.MustNew(query.Config{
			Name:       QueryTopRatedMovies,
			Collection: CollMovies,
			Params: []query.ParamSpec{
				{Name: "limit", Type: query.ParamInt, Default: 10,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(100)},
				{Name: "min_votes", Type: query.ParamInt, Default: 1000, Min: query.Float64Ptr(0)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.Exists("imdb.rating"), pipeline.Gte("imdb.votes", pipeline.P("min_votes"))).
				Project(
					pipeline.Projection{Name: "title", Path: "title"},
					pipeline.Projection{Name: "year", Path: "year"},
					pipeline.Projection{Name: "genres", Path: "genres"},
					pipeline.Projection{Name: "rating", Path: "imdb.rating"},
					pipeline.Projection{Name: "votes", Path: "imdb.votes"},
				).
				Sort(pipeline.SortKey{Field: "rating", Desc: true}, pipeline.SortKey{Field: "title"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "title", Type: domain.KindString, OnMissing: query.DropRecord},
				{Name: "year", Type: domain.KindNumber, OnMissing: query.NullValue,
					Min: query.Float64Ptr(1800), Max: query.Float64Ptr(2100)},
				{Name: "genres", Type: domain.KindStringList, OnMissing: query.Substitute,
					Default: domain.StringList(nil)},
				ratingBounds,
				{Name: "votes", Type: domain.KindNumber, OnMissing: query.DropRecord,
					Min: query.Float64Ptr(0)},
			},
			Order: []pipeline.SortKey{{Field: "rating", Desc: true}, {Field: "title"}},
		}),

		query.MustNew(query.Config{
			Name:       QueryGenrePerformance,
			Collection: CollMovies,
			Params: []query.ParamSpec{
				{Name: "min_count", Type: query.ParamInt, Default: 50, Min: query.Float64Ptr(1)},
				{Name: "limit", Type: query.ParamInt, Default: 15,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(100)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.NotEmpty("genres"), pipeline.Exists("imdb.rating")).
				Unwind("genres").
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByField, Path: "genres", As: "genre"},
					pipeline.Accumulator{Kind: pipeline.AccAvg, Path: "imdb.rating", As: "average_rating"},
					pipeline.Accumulator{Kind: pipeline.AccCount, As: "movie_count"},
				).
				Match(pipeline.Gte("movie_count", pipeline.P("min_count"))).
				Sort(pipeline.SortKey{Field: "average_rating", Desc: true}, pipeline.SortKey{Field: "genre"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "genre", Type: domain.KindString, OnMissing: query.DropRecord},
				{Name: "average_rating", Type: domain.KindNumber, OnMissing: query.DropRecord,
					Min: query.Float64Ptr(0), Max: query.Float64Ptr(10)},
				{Name: "movie_count", Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: "average_rating", Desc: true}, {Field: "genre"}},
		}),

		query.MustNew(query.Config{
			Name:       QueryRatingTrendByDecade,
			Collection: CollMovies,
			Params: []query.ParamSpec{
				{Name: "from_year", Type: query.ParamInt, Default: 1950,
					Min: query.Float64Ptr(1800), Max: query.Float64Ptr(2100)},
			},
			Pipeline: pipeline.New().
				Match(
					pipeline.Exists("year"),
					pipeline.Gte("year", pipeline.P("from_year")),
					pipeline.Exists("imdb.rating"),
				).
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByDecade, Path: "year", As: "decade"},
					pipeline.Accumulator{Kind: pipeline.AccAvg, Path: "imdb.rating", As: "average_rating"},
					pipeline.Accumulator{Kind: pipeline.AccCountNumeric, Path: "imdb.rating", As: "rated_count"},
				).
				Sort(pipeline.SortKey{Field: "decade"}).
				Build(),
			Fields: []query.FieldSpec{
				{Name: "decade", Type: domain.KindNumber, OnMissing: query.DropRecord},
				{Name: "average_rating", Type: domain.KindNumber, OnMissing: query.NullValue,
					Min: query.Float64Ptr(0), Max: query.Float64Ptr(10)},
				{Name: "rated_count", Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: "decade"}},
		}),

		query.MustNew(query.Config{
			Name:       QueryCommentVolume,
			Collection: CollComments,
			Params: []query.ParamSpec{
				{Name: "limit", Type: query.ParamInt, Default: 100,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(1000)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.Exists("date")).
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByYearMonth, Path: "date", As: "month"},
					pipeline.Accumulator{Kind: pipeline.AccCount, As: FieldCount},
				).
				Sort(pipeline.SortKey{Field: "month"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "month", Type: domain.KindDate, OnMissing: query.DropRecord},
				{Name: FieldCount, Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: "month"}},
		}),

		// Comments grouped per movie, joined back to movies for titles.
		// Comments on unknown movies are dropped by the join.
		query.MustNew(query.Config{
			Name:       QueryMostDiscussed,
			Collection: CollComments,
			Params: []query.ParamSpec{
				{Name: "limit", Type: query.ParamInt, Default: 10,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(100)},
			},
			Pipeline: pipeline.New().
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByField, Path: "movie_id", As: "movie_id"},
					pipeline.Accumulator{Kind: pipeline.AccCount, As: "comment_count"},
				).
				Lookup(CollMovies, "movie_id", "_id", "movie").
				Match(pipeline.Exists("movie")).
				Project(
					pipeline.Projection{Name: "title", Path: "movie.title"},
					pipeline.Projection{Name: "year", Path: "movie.year"},
					pipeline.Projection{Name: "comment_count", Path: "comment_count"},
				).
				Sort(pipeline.SortKey{Field: "comment_count", Desc: true}, pipeline.SortKey{Field: "title"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "title", Type: domain.KindString, OnMissing: query.DropRecord},
				{Name: "year", Type: domain.KindNumber, OnMissing: query.NullValue,
					Min: query.Float64Ptr(1800), Max: query.Float64Ptr(2100)},
				{Name: "comment_count", Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: "comment_count", Desc: true}, {Field: "title"}},
		}),

		// The store keeps coordinates as [lon, lat]; records with malformed
		// coordinate pairs are dropped rather than plotted at (0, 0).
		query.MustNew(query.Config{
			Name:       QueryTheaterGeoPoints,
			Collection: CollTheaters,
			Params: []query.ParamSpec{
				{Name: "limit", Type: query.ParamInt, Default: 500,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(5000)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.Exists("location.geo.coordinates")).
				Project(
					pipeline.Projection{Name: "city", Path: "location.address.city"},
					pipeline.Projection{Name: "state", Path: "location.address.state"},
					pipeline.Projection{Name: "point", Path: "location.geo.coordinates"},
				).
				Sort(pipeline.SortKey{Field: "state"}, pipeline.SortKey{Field: "city"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "city", Type: domain.KindString, OnMissing: query.Substitute,
					Default: domain.String("")},
				{Name: "state", Type: domain.KindString, OnMissing: query.Substitute,
					Default: domain.String("")},
				{Name: "point", Type: domain.KindGeo, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: "state"}, {Field: "city"}},
		}),

		query.MustNew(query.Config{
			Name:       QueryTheatersByState,
			Collection: CollTheaters,
			Params: []query.ParamSpec{
				{Name: "limit", Type: query.ParamInt, Default: 15,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(100)},
			},
			Pipeline: pipeline.New().
				Match(pipeline.Exists("location.address.state")).
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByField, Path: "location.address.state", As: "state"},
					pipeline.Accumulator{Kind: pipeline.AccCount, As: FieldCount},
				).
				Sort(pipeline.SortKey{Field: FieldCount, Desc: true}, pipeline.SortKey{Field: "state"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "state", Type: domain.KindString, OnMissing: query.DropRecord},
				{Name: FieldCount, Type: domain.KindNumber, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: FieldCount, Desc: true}, {Field: "state"}},
		}),

		query.MustNew(query.Config{
			Name:       QueryGenreList,
			Collection: CollMovies,
			Pipeline: pipeline.New().
				Match(pipeline.NotEmpty("genres")).
				Unwind("genres").
				Group(&pipeline.GroupKey{Kind: pipeline.GroupByField, Path: "genres", As: "genre"}).
				Project(pipeline.Projection{Name: "genre", Path: "genre"}).
				Sort(pipeline.SortKey{Field: "genre"}).
				Build(),
			Fields: []query.FieldSpec{
				{Name: "genre", Type: domain.KindString, OnMissing: query.DropRecord},
			},
			Order: []pipeline.SortKey{{Field: "genre"}},
		}),

		// Empty title and genre filters match everything, so the search
		// degrades to a year-bounded listing.
		query.MustNew(query.Config{
			Name:       QueryMovieSearch,
			Collection: CollMovies,
			Params: []query.ParamSpec{
				{Name: "title", Type: query.ParamString, Default: ""},
				{Name: "genre", Type: query.ParamString, Default: ""},
				{Name: "year_from", Type: query.ParamInt, Default: 1900,
					Min: query.Float64Ptr(1800), Max: query.Float64Ptr(2100)},
				{Name: "year_to", Type: query.ParamInt, Default: 2030,
					Min: query.Float64Ptr(1800), Max: query.Float64Ptr(2100)},
				{Name: "limit", Type: query.ParamInt, Default: 50,
					Min: query.Float64Ptr(1), Max: query.Float64Ptr(500)},
			},
			Pipeline: pipeline.New().
				Match(
					pipeline.Substr("title", pipeline.P("title")),
					pipeline.Has("genres", pipeline.P("genre")),
					pipeline.Gte("year", pipeline.P("year_from")),
					pipeline.Lte("year", pipeline.P("year_to")),
				).
				Project(
					pipeline.Projection{Name: "title", Path: "title"},
					pipeline.Projection{Name: "year", Path: "year"},
					pipeline.Projection{Name: "genres", Path: "genres"},
					pipeline.Projection{Name: "rating", Path: "imdb.rating"},
					pipeline.Projection{Name: "plot", Path: "plot"},
				).
				Sort(pipeline.SortKey{Field: "title"}, pipeline.SortKey{Field: "year"}).
				LimitP("limit").
				Build(),
			Fields: []query.FieldSpec{
				{Name: "title", Type: domain.KindString, OnMissing: query.DropRecord},
				{Name: "year", Type: domain.KindNumber, OnMissing: query.NullValue,
					Min: query.Float64Ptr(1800), Max: query.Float64Ptr(2100)},
				{Name: "genres", Type: domain.KindStringList, OnMissing: query.Substitute,
					Default: domain.StringList(nil)},
				{Name: "rating", Type: domain.KindNumber, OnMissing: query.NullValue,
					Min: query.Float64Ptr(0), Max: query.Float64Ptr(10)},
				{Name: "plot", Type: domain.KindString, OnMissing: query.Substitute,
					Default: domain.String("")},
			},
			Order: []pipeline.SortKey{{Field: "title"}, {Field: "year"}},
		}),
	}
}
