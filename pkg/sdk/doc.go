// Package sdk provides a Go client for the cinedex analytics API.
//
// The client mirrors the dashboard sections the service exposes: a KPI
// overview, genre performance, temporal trends, theater locations, user
// engagement and catalog search.
//
//	client, _ := sdk.New("http://localhost:8080")
//	overview, err := client.Overview(ctx)
//	if err != nil {
//	    var pde *sdk.PartialDataError
//	    if errors.As(err, &pde) {
//	        log.Printf("degraded: %v", pde.Failed)
//	    }
//	}
//
//	movies, _ := client.SearchMovies(ctx, sdk.SearchRequest{
//	    Title:    "matrix",
//	    YearFrom: 1990,
//	    Limit:    10,
//	})
//
// Results are cached server-side under a freshness token; Refresh forces
// the next reads to bypass cached data.
package sdk
