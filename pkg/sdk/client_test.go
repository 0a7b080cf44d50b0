package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty base URL")
	}
	c, err := New("http://localhost:8080/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("trailing slash not trimmed: %q", c.baseURL)
	}
}

func TestOverview_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/overview" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total_movies": 23539,
			"total_users": 185,
			"total_comments": 50304,
			"theater_count": 1564,
			"average_rating": 6.9
		}`))
	})

	out, err := c.Overview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TotalMovies != 23539 || out.AverageRating != 6.9 {
		t.Errorf("overview = %+v", out)
	}
	if out.TheaterCount == nil || *out.TheaterCount != 1564 {
		t.Errorf("theater count = %v", out.TheaterCount)
	}
}

func TestOverview_PartialData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"partial_data","message":"partial data","failed_queries":["movies_total"]}`))
	})

	_, err := c.Overview(context.Background())
	if !errors.Is(err, ErrPartialData) {
		t.Fatalf("expected ErrPartialData, got %v", err)
	}

	var pde *PartialDataError
	if !errors.As(err, &pde) {
		t.Fatalf("expected *PartialDataError, got %T", err)
	}
	if len(pde.Failed) != 1 || pde.Failed[0] != "movies_total" {
		t.Errorf("failed = %v", pde.Failed)
	}
}

func TestSearchMovies_QueryString(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("title") != "matrix" || q.Get("genre") != "Sci-Fi" {
			t.Errorf("text filters = %v", q)
		}
		if q.Get("year_from") != "1990" || q.Get("limit") != "10" {
			t.Errorf("numeric filters = %v", q)
		}
		if q.Has("year_to") {
			t.Error("zero year_to must be omitted")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"movies":[{"title":"The Matrix","year":1999,"rating":8.7}],"total":1}`))
	})

	movies, err := c.SearchMovies(context.Background(), SearchRequest{
		Title: "matrix", Genre: "Sci-Fi", YearFrom: 1990, Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(movies) != 1 || movies[0].Title != "The Matrix" {
		t.Errorf("movies = %+v", movies)
	}
	if movies[0].Year == nil || *movies[0].Year != 1999 {
		t.Errorf("year = %v", movies[0].Year)
	}
}

func TestSearchMovies_InvalidParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"invalid_parameters","message":"limit: value 500 above maximum 100"}`))
	})

	_, err := c.SearchMovies(context.Background(), SearchRequest{Limit: 500})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestTemporalTrends_DataUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"data_unavailable","message":"data unavailable"}`))
	})

	_, err := c.TemporalTrends(context.Background(), 1950)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodPost || path != "/api/v1/refresh" {
		t.Errorf("request = %s %s", method, path)
	}
}

func TestHealth_Degraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unhealthy","checks":{"store":"unavailable"}}`))
	})

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("a degraded health report is not a client error: %v", err)
	}
	if h.Status != "unhealthy" || h.Checks["store"] != "unavailable" {
		t.Errorf("health = %+v", h)
	}
}

func TestUnexpectedErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := c.Genres(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Errorf("api error = %+v", apiErr)
	}
}
