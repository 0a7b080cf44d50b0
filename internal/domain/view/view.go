// Package view holds the typed view-models the composer assembles for each
// dashboard section. View-models are built fresh per request and never
// persisted. Optional sub-queries that fail leave a nil field and an entry
// in the view-model's Unavailable list; required failures abort the whole
// operation instead, so a populated view-model is always complete.
package view

import "time"

// OverviewSummary is the platform KPI panel.
// AverageRating is computed over movies with a non-null rating only.
type OverviewSummary struct {
	TotalMovies   int64   `json:"total_movies"`
	TotalUsers    int64   `json:"total_users"`
	TotalComments int64   `json:"total_comments"`
	// TheaterCount is optional; nil means the sub-query was unavailable.
	TheaterCount  *int64  `json:"theater_count"`
	AverageRating float64 `json:"average_rating"`
	// Unavailable names optional sub-queries that failed.
	Unavailable []string `json:"unavailable,omitempty"`
}

// GenreCount is one bar of the genre distribution chart.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int64  `json:"count"`
}

// GenrePerformance is one genre's aggregate rating profile, over movies
// that carry both a genre list and a non-null rating.
type GenrePerformance struct {
	Genre         string  `json:"genre"`
	AverageRating float64 `json:"average_rating"`
	MovieCount    int64   `json:"movie_count"`
}

// TopRatedMovie is one row of the top-rated table (votes >= min_votes).
type TopRatedMovie struct {
	Title  string   `json:"title"`
	Year   int      `json:"year"`
	Genres []string `json:"genres"`
	Rating float64  `json:"rating"`
	Votes  int64    `json:"votes"`
}

// MovieAnalytics is the movie analytics panel: the top-rated table plus
// the distributions behind the genre and rating charts. Ratings is the
// raw sample the rating histogram is drawn from; both distributions are
// optional.
type MovieAnalytics struct {
	TopRated          []TopRatedMovie `json:"top_rated"`
	GenreDistribution []GenreCount    `json:"genre_distribution,omitempty"`
	Ratings           []float64       `json:"ratings,omitempty"`
	Unavailable       []string        `json:"unavailable,omitempty"`
}

// DecadeTrend is one decade's production volume and average rating.
// AverageRating is nil for decades where no movie carries a rating.
type DecadeTrend struct {
	Decade        int      `json:"decade"`
	MovieCount    int64    `json:"movie_count"`
	AverageRating *float64 `json:"average_rating"`
	// RatedCount is the subset of MovieCount the average is computed over.
	RatedCount int64 `json:"rated_count"`
}

// TemporalTrends is the production-and-rating-by-decade panel, merged on
// the decade key.
type TemporalTrends struct {
	Decades     []DecadeTrend `json:"decades"`
	Unavailable []string      `json:"unavailable,omitempty"`
}

// TheaterPoint is one theater marker on the map.
type TheaterPoint struct {
	City  string  `json:"city"`
	State string  `json:"state"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
}

// StateCount is one bar of the theaters-by-state chart.
type StateCount struct {
	State string `json:"state"`
	Count int64  `json:"count"`
}

// TheaterMap is the geographic panel. ByState is optional.
type TheaterMap struct {
	Points      []TheaterPoint `json:"points"`
	ByState     []StateCount   `json:"by_state,omitempty"`
	Unavailable []string       `json:"unavailable,omitempty"`
}

// MonthVolume is one month's comment count.
type MonthVolume struct {
	Month time.Time `json:"month"`
	Count int64     `json:"count"`
}

// DiscussedMovie is one row of the most-discussed table.
type DiscussedMovie struct {
	Title        string `json:"title"`
	Year         int    `json:"year"`
	CommentCount int64  `json:"comment_count"`
}

// EngagementSummary is the user engagement panel.
// CommentsPerUser is total comments over total users; zero users yields 0.
type EngagementSummary struct {
	TotalComments   int64            `json:"total_comments"`
	TotalUsers      int64            `json:"total_users"`
	CommentsPerUser float64          `json:"comments_per_user"`
	Volume          []MonthVolume    `json:"volume,omitempty"`
	MostDiscussed   []DiscussedMovie `json:"most_discussed,omitempty"`
	Unavailable     []string         `json:"unavailable,omitempty"`
}

// MovieSummary is one search result row.
type MovieSummary struct {
	Title  string   `json:"title"`
	Year   *int     `json:"year"`
	Genres []string `json:"genres"`
	Rating *float64 `json:"rating"`
	Plot   string   `json:"plot,omitempty"`
}
