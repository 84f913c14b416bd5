// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/analysis"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/scheduler"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// Analyzer answers analyze requests
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*models.AnalyzeResponse, error)
}

// Warmer runs the scheduled warming job on demand
type Warmer interface {
	RunOnce(ctx context.Context) (*scheduler.RunSummary, error)
}

// Server holds the handler dependencies
type Server struct {
	analyzer       Analyzer
	warmer         Warmer
	metrics        http.Handler
	refreshLimiter *rate.Limiter
	now            func() time.Time
}

// NewServer creates the HTTP layer. Forced refreshes are limited to
// refreshPerMinute across all clients; warmer and metrics may be nil.
func NewServer(analyzer Analyzer, warmer Warmer, metricsHandler http.Handler, refreshPerMinute int) *Server {
	limit := rate.Inf
	burst := 1
	if refreshPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(refreshPerMinute))
		burst = refreshPerMinute
	}
	return &Server{
		analyzer:       analyzer,
		warmer:         warmer,
		metrics:        metricsHandler,
		refreshLimiter: rate.NewLimiter(limit, burst),
		now:            time.Now,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, recoveryMiddleware)

	router.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	router.HandleFunc("/api/analyze", s.analyzeHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/categories", s.categoriesHandler).Methods(http.MethodGet)
	if s.warmer != nil {
		router.HandleFunc("/trigger", s.triggerHandler).Methods(http.MethodPost)
	}

	return router
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories.Available()})
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// unparsable limits fall back to the default, out-of-range ones are clamped
	limit, _ := strconv.Atoi(query.Get("limit"))
	refresh, _ := strconv.ParseBool(query.Get("refresh"))
	text := query.Get("query")
	if text == "" {
		text = query.Get("q")
	}

	if refresh && !s.refreshLimiter.Allow() {
		logFor(r).Warn("Refresh throttled, serving cached analysis")
		w.Header().Set("X-Refresh-Throttled", "true")
		refresh = false
	}

	resp, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		Limit:    limit,
		Category: query.Get("category"),
		Query:    text,
		Refresh:  refresh,
	})
	if err != nil {
		logFor(r).Errorf("Analysis failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analysis unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	requestID := w.Header().Get(requestIDHeader)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := s.warmer.RunOnce(ctx); err != nil {
			logrus.WithField("request_id", requestID).Errorf("Manual warming trigger failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Warming run triggered"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}

type requestIDKey struct{}

// statusRecorder captures the response status for access logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))

		logrus.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Handled request")
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logFor(r).WithField("stack", string(debug.Stack())).Errorf("Panic recovered: %v", rec)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func logFor(r *http.Request) *logrus.Entry {
	requestID, _ := r.Context().Value(requestIDKey{}).(string)
	return logrus.WithField("request_id", requestID)
}
