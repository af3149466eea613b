package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/joescharf/prstats/internal/models"
	"github.com/joescharf/prstats/internal/stats"
	"github.com/joescharf/prstats/internal/store"
)

// StatsRunner runs one stats pipeline invocation.
type StatsRunner interface {
	GetStats(ctx context.Context, from, to string) (*stats.Result, error)
}

// Server provides the REST API handlers.
type Server struct {
	stats  StatsRunner
	store  store.Store
	logger *slog.Logger

	// mu serializes stats runs.
	mu sync.Mutex
}

// NewServer creates a new API server.
func NewServer(runner StatsRunner, s store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{stats: runner, store: s, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/stats", s.getStats)
	mux.HandleFunc("GET /api/v1/prs/closed", s.listClosedPRs)
	mux.HandleFunc("GET /api/v1/prs/{number}", s.getCachedPR)
	mux.HandleFunc("DELETE /api/v1/prs/{number}/reviews", s.invalidateReviews)

	return corsMiddleware(mux)
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidDateRange), errors.Is(err, models.ErrMalformedTimestamp):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func prNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid pull request number: %q", r.PathValue("number"))
	}
	return n, nil
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	res, err := s.stats.GetStats(r.Context(), q.Get("from"), q.Get("to"))
	s.mu.Unlock()

	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("stats run failed", "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listClosedPRs(w http.ResponseWriter, r *http.Request) {
	prs, err := s.store.ListClosedPRs(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if prs == nil {
		prs = []*models.PullRequest{}
	}
	writeJSON(w, http.StatusOK, prs)
}

func (s *Server) getCachedPR(w http.ResponseWriter, r *http.Request) {
	number, err := prNumber(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.GetPR(r.Context(), number)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	reviews, err := s.store.GetReviews(r.Context(), number)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, models.CachedPR{CacheRecord: rec, Reviews: reviews})
}

func (s *Server) invalidateReviews(w http.ResponseWriter, r *http.Request) {
	number, err := prNumber(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.store.InvalidateReviews(r.Context(), number)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"number": number, "removed": n})
}
