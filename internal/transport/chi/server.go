// Package chi exposes the dashboard sections over HTTP.
package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cinedex-io/cinedex/internal/domain"
	"github.com/cinedex-io/cinedex/internal/domain/view"
)

// Dashboard is the transport's view of the summary composer.
type Dashboard interface {
	Overview(ctx context.Context) (view.OverviewSummary, error)
	GenrePerformance(ctx context.Context) ([]view.GenrePerformance, error)
	TemporalTrends(ctx context.Context, fromYear int) (view.TemporalTrends, error)
	TheaterLocations(ctx context.Context) (view.TheaterMap, error)
	EngagementMetrics(ctx context.Context) (view.EngagementSummary, error)
	MovieAnalytics(ctx context.Context, limit, minVotes int) (view.MovieAnalytics, error)
	SearchMovies(ctx context.Context, title, genre string, yearFrom, yearTo, limit int) ([]view.MovieSummary, error)
	Genres(ctx context.Context) ([]string, error)
}

// Refresher forces a freshness token rotation.
type Refresher interface {
	Refresh()
}

// Pinger checks document store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Catalog lists the registered query names.
type Catalog interface {
	Names() []string
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Failed  []string `json:"failed_queries,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the dashboard API.
type Server struct {
	dashboard     Dashboard
	refresher     Refresher
	store         Pinger
	catalog       Catalog
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	dashboard Dashboard,
	refresher Refresher,
	store Pinger,
	catalog Catalog,
	logger *zap.Logger,
) *Server {
	s := &Server{
		dashboard: dashboard,
		refresher: refresher,
		store:     store,
		catalog:   catalog,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		invalidParametersHandler,
		partialDataHandler,
		sentinelHandler(domain.ErrUnknownQuery, http.StatusNotFound, "unknown_query"),
		sentinelHandler(domain.ErrDataUnavailable, http.StatusServiceUnavailable, "data_unavailable"),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/overview", s.GetOverview)
		r.Get("/genres", s.ListGenres)
		r.Get("/genres/performance", s.GetGenrePerformance)
		r.Get("/trends", s.GetTemporalTrends)
		r.Get("/theaters", s.GetTheaterLocations)
		r.Get("/engagement", s.GetEngagementMetrics)
		r.Get("/movies/analytics", s.GetMovieAnalytics)
		r.Get("/movies/search", s.SearchMovies)
		r.Get("/queries", s.ListQueries)
		r.Post("/refresh", s.Refresh)
	})
}

// GetOverview handles GET /api/v1/overview.
func (s *Server) GetOverview(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.Overview(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetGenrePerformance handles GET /api/v1/genres/performance.
func (s *Server) GetGenrePerformance(w http.ResponseWriter, r *http.Request) {
	genres, err := s.dashboard.GenrePerformance(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

// GetTemporalTrends handles GET /api/v1/trends.
func (s *Server) GetTemporalTrends(w http.ResponseWriter, r *http.Request) {
	fromYear, err := intQueryParam(r, "from_year")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}

	trends, err := s.dashboard.TemporalTrends(r.Context(), fromYear)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

// GetTheaterLocations handles GET /api/v1/theaters.
func (s *Server) GetTheaterLocations(w http.ResponseWriter, r *http.Request) {
	theaters, err := s.dashboard.TheaterLocations(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, theaters)
}

// GetEngagementMetrics handles GET /api/v1/engagement.
func (s *Server) GetEngagementMetrics(w http.ResponseWriter, r *http.Request) {
	engagement, err := s.dashboard.EngagementMetrics(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engagement)
}

// GetMovieAnalytics handles GET /api/v1/movies/analytics.
func (s *Server) GetMovieAnalytics(w http.ResponseWriter, r *http.Request) {
	limit, err := intQueryParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}
	minVotes, err := intQueryParam(r, "min_votes")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}

	analytics, err := s.dashboard.MovieAnalytics(r.Context(), limit, minVotes)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// SearchMovies handles GET /api/v1/movies/search.
func (s *Server) SearchMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	yearFrom, err := intQueryParam(r, "year_from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}
	yearTo, err := intQueryParam(r, "year_to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}
	limit, err := intQueryParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", err.Error())
		return
	}

	movies, err := s.dashboard.SearchMovies(
		r.Context(), q.Get("title"), q.Get("genre"), yearFrom, yearTo, limit,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"movies": movies,
		"total":  len(movies),
	})
}

// ListGenres handles GET /api/v1/genres.
func (s *Server) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.dashboard.Genres(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

// ListQueries handles GET /api/v1/queries.
func (s *Server) ListQueries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"queries": s.catalog.Names()})
}

// Refresh handles POST /api/v1/refresh. It rotates the freshness token so
// subsequent reads bypass cached results.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	s.refresher.Refresh()
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status := "healthy"
	httpStatus := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("store health check failed", zap.Error(err))
		checks["store"] = "unavailable"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func intQueryParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.InvalidParametersError{Param: name, Reason: "must be an integer"}
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// invalidParametersHandler surfaces the offending parameter to the caller.
func invalidParametersHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidParameters) {
		return false
	}
	var ipe *domain.InvalidParametersError
	if errors.As(err, &ipe) {
		writeError(w, http.StatusBadRequest, "invalid_parameters", ipe.Param+": "+ipe.Reason)
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid_parameters", domain.ErrInvalidParameters.Error())
	return true
}

// partialDataHandler names the failed sub-queries so the caller knows
// which panel sections are degraded.
func partialDataHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrPartialData) {
		return false
	}
	resp := errorResponse{Code: "partial_data", Message: domain.ErrPartialData.Error()}
	var pde *domain.PartialDataError
	if errors.As(err, &pde) {
		resp.Failed = pde.Failed
	}
	writeJSON(w, http.StatusServiceUnavailable, resp)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
