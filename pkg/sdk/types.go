package sdk

import "github.com/cinedex-io/cinedex/internal/domain/view"

// View-model types re-exported from the domain layer so callers never
// import internal packages.
type (
	// OverviewSummary is the platform KPI panel.
	OverviewSummary = view.OverviewSummary
	// GenrePerformance is one genre's aggregate rating profile.
	GenrePerformance = view.GenrePerformance
	// TemporalTrends is the production-and-rating-by-decade panel.
	TemporalTrends = view.TemporalTrends
	// DecadeTrend is one decade's production volume and average rating.
	DecadeTrend = view.DecadeTrend
	// TheaterMap is the geographic panel.
	TheaterMap = view.TheaterMap
	// TheaterPoint is one theater marker on the map.
	TheaterPoint = view.TheaterPoint
	// EngagementSummary is the user engagement panel.
	EngagementSummary = view.EngagementSummary
	// MovieAnalytics is the movie analytics panel.
	MovieAnalytics = view.MovieAnalytics
	// TopRatedMovie is one row of the top-rated table.
	TopRatedMovie = view.TopRatedMovie
	// GenreCount is one bar of the genre distribution chart.
	GenreCount = view.GenreCount
	// MovieSummary is one search result row.
	MovieSummary = view.MovieSummary
)

// SearchRequest carries the catalog search filters. Zero values fall back
// to the server-side defaults: empty Title and Genre match everything.
type SearchRequest struct {
	Title    string
	Genre    string
	YearFrom int
	YearTo   int
	Limit    int
}

// Health is the service health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
