// Package service exposes the harness's operational HTTP surface: a
// health endpoint reporting the latest run status and a Prometheus
// metrics endpoint. Both servers are optional conveniences for running
// the acceptor as a long-lived process; a run-once invocation works
// without them.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/qa-infra/scenario-acceptor/metrics"
)

const (
	DefaultHealthzAddr = "0.0.0.0:8080"
	DefaultMetricsAddr = "0.0.0.0:7300"
)

// RunStatusFunc reports the status of the most recent run, or ok=false
// when no run has completed yet
type RunStatusFunc func() (status string, ok bool)

// Config holds the listen addresses and the health payload sources
type Config struct {
	HealthzAddr string
	MetricsAddr string
	Version     string
	RunStatus   RunStatusFunc
	Log         log.Logger
}

// Service runs the healthz and metrics HTTP servers
type Service struct {
	cfg     Config
	healthz *http.Server
	metrics *http.Server
	log     log.Logger
}

// New creates the service with defaults filled in
func New(cfg Config) *Service {
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = DefaultHealthzAddr
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = DefaultMetricsAddr
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Service{cfg: cfg, log: cfg.Log}
}

// Start launches both servers in the background. Listen errors are
// logged and recorded, not fatal: the harness can still run tests
// without its operational surface.
func (s *Service) Start() {
	healthzMux := http.NewServeMux()
	healthzMux.HandleFunc("/healthz", s.handleHealthz)
	s.healthz = &http.Server{
		Addr: s.cfg.HealthzAddr,
		Handler: cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
		}).Handler(healthzMux),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	s.metrics = &http.Server{
		Addr:    s.cfg.MetricsAddr,
		Handler: metricsMux,
	}

	go s.serve("healthz", s.healthz)
	go s.serve("metrics", s.metrics)
}

func (s *Service) serve(name string, server *http.Server) {
	s.log.Info("Starting server", "name", name, "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("Server failed", "name", name, "addr", server.Addr, "error", err)
		metrics.RecordErrorDetails("server failed: "+name, err)
	}
}

// Shutdown stops both servers, waiting up to the context deadline
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	for name, server := range map[string]*http.Server{
		"healthz": s.healthz,
		"metrics": s.metrics,
	} {
		if server == nil {
			continue
		}
		if err := server.Shutdown(ctx); err != nil {
			s.log.Error("Server shutdown failed", "name", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type healthzResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	LastRun string `json:"last_run,omitempty"`
}

// handleHealthz reports process liveness. The response is 200 even when
// the last run had failing units; test outcomes are not a health signal.
func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{
		Status:  "ok",
		Version: s.cfg.Version,
	}
	if s.cfg.RunStatus != nil {
		if status, ok := s.cfg.RunStatus(); ok {
			resp.LastRun = status
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
