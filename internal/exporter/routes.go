package exporter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maumercado/todo-client-go/internal/logger"
)

// Server exposes the exporter over HTTP
type Server struct {
	router   *chi.Mux
	exporter *Exporter
}

// NewServer creates the HTTP surface: /health, /ready, /status and the
// prometheus handler at metricsPath.
func NewServer(e *Exporter, metricsPath string) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		exporter: e,
	}

	s.setupMiddleware()
	s.setupRoutes(metricsPath)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	// Heartbeat endpoint for load balancers
	s.router.Use(middleware.Heartbeat("/health"))
}

func (s *Server) setupRoutes(metricsPath string) {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	s.router.Get("/ready", s.ready)
	s.router.Get("/status", s.status)
	s.router.Handle(metricsPath, promhttp.Handler())
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if !s.exporter.Ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.exporter.Status()); err != nil {
		logger.Error().Err(err).Msg("failed to encode status")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
