// Package server exposes the detection pipeline over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/factura-tools/qrdetect/internal/pdf"
	"github.com/factura-tools/qrdetect/internal/pipeline"
	"github.com/factura-tools/qrdetect/internal/stats"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthProber reports whether the remote fallback service is reachable.
type healthProber interface {
	Healthy(ctx context.Context) (bool, time.Duration)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	detector    *pipeline.Detector
	processor   *pdf.Processor
	prober      healthProber
	logger      *slog.Logger
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	maxBatch    int
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// MaxBatchItems caps one batch request (0 = default 32).
	MaxBatchItems int
}

// HealthResponse reports server and fallback liveness.
type HealthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version,omitempty"`
	Time     string          `json:"time"`
	Fallback *FallbackHealth `json:"fallback,omitempty"`
}

// FallbackHealth is the remote service's probe outcome.
type FallbackHealth struct {
	Reachable bool    `json:"reachable"`
	LatencyMs float64 `json:"latency_ms"`
}

// DetectResponse wraps one detection outcome.
type DetectResponse struct {
	Success bool                      `json:"success"`
	Result  *pipeline.DetectionResult `json:"result,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// StatsResponse exposes the registry snapshot.
type StatsResponse struct {
	Stats stats.Snapshot `json:"stats"`
}

// Option customizes an otherwise-default server.
type Option func(*Server)

// WithFallbackProber wires a remote health probe into /health.
func WithFallbackProber(p healthProber) Option {
	return func(s *Server) { s.prober = p }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer wires the HTTP surface to an existing detector. The detector's
// cache and stats registry are shared with every other entry point.
func NewServer(cfg Config, detector *pipeline.Detector, opts ...Option) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.MaxBatchItems <= 0 {
		cfg.MaxBatchItems = 32
	}

	s := &Server{
		detector:    detector,
		logger:      slog.Default(),
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeoutSec:  cfg.TimeoutSec,
		maxBatch:    cfg.MaxBatchItems,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.processor = pdf.NewProcessor(detector, s.logger)
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/stats", s.corsMiddleware(s.statsHandler))
	mux.HandleFunc("/detect", s.corsMiddleware(s.detectImageHandler))
	mux.HandleFunc("/detect/batch", s.corsMiddleware(s.detectBatchHandler))
	mux.HandleFunc("/detect/pdf", s.corsMiddleware(s.detectPDFHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
