// Package httpapi exposes the search service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
	"github.com/reelrank/reelrank/internal/metrics"
	searchuc "github.com/reelrank/reelrank/internal/usecase/search"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeRetrievalUnavailable = "retrieval_unavailable"
	codeEmbeddingProvider    = "embedding_provider_error"
	codeInternalError        = "internal_error"
)

const maxQueryLength = 1000

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, query string, opts searchuc.Options) (*searchuc.Response, error)
}

// Pinger checks index store connectivity for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP handlers.
type Server struct {
	search Searcher
	pinger Pinger
	logger *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(search Searcher, pinger Pinger, logger *zap.Logger) *Server {
	return &Server{search: search, pinger: pinger, logger: logger}
}

// Routes registers all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearchPost)
	})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchResultItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path,omitempty"`
	MatchScore  float64 `json:"match_score"`
	UserRating  float64 `json:"user_rating,omitempty"`
	RatingCount int     `json:"rating_count,omitempty"`
	VoteAverage float64 `json:"vote_average"`
}

type searchResponse struct {
	Results        []searchResultItem `json:"results"`
	Total          int                `json:"total"`
	OptimizedQuery string             `json:"optimized_query,omitempty"`
	Narrative      string             `json:"narrative,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	req := searchRequest{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "top_k must be an integer")
			return
		}
		req.TopK = k
	}
	s.runSearch(w, r, req)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req searchRequest) {
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query too long")
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "top_k must not be negative")
		return
	}

	resp, err := s.search.Search(r.Context(), req.Query, searchuc.Options{TopK: req.TopK})
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()

	items := make([]searchResultItem, 0, len(resp.Results))
	for _, res := range resp.Results {
		items = append(items, searchResultItem{
			ID:          res.ID,
			Title:       res.Title,
			Overview:    res.Overview,
			PosterPath:  res.PosterPath,
			MatchScore:  res.MatchScore,
			UserRating:  res.UserRating,
			RatingCount: res.RatingCount,
			VoteAverage: res.VoteAverage,
		})
	}

	// Zero hits is a valid answer, not an error.
	writeJSON(w, http.StatusOK, searchResponse{
		Results:        items,
		Total:          len(items),
		OptimizedQuery: resp.OptimizedQuery,
		Narrative:      resp.Narrative,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status := http.StatusOK

	if err := s.pinger.Ping(r.Context()); err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("search error", zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, codeEmbeddingProvider, domain.ErrEmbeddingProviderError.Error())
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeRetrievalUnavailable, domain.ErrRetrievalUnavailable.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
