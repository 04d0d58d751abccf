package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// AdminServer exposes health, readiness and metrics for the running
// connector. The timeline query API lives elsewhere; this surface is
// purely operational.
type AdminServer struct {
	mux   *http.ServeMux
	ready func() error
	log   zerolog.Logger
}

// New builds the admin server. ready is consulted on /ready and may
// be nil when there is no dependency worth probing.
func New(ready func() error, log zerolog.Logger) *AdminServer {
	s := &AdminServer{
		mux:   http.NewServeMux(),
		ready: ready,
		log:   log,
	}
	s.registerRoutes()
	return s
}

func (s *AdminServer) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the route table, primarily for tests.
func (s *AdminServer) Handler() http.Handler {
	return s.mux
}

func (s *AdminServer) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("starting admin server")
	return http.ListenAndServe(addr, s.mux)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *AdminServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
