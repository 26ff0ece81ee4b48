package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/factura-tools/qrdetect/internal/version"
)

// healthHandler returns server health status, including the remote fallback
// probe when one is configured.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	if s.prober != nil {
		ctx, cancel := s.requestContext(r)
		defer cancel()
		reachable, latency := s.prober.Healthy(ctx)
		response.Fallback = &FallbackHealth{
			Reachable: reachable,
			LatencyMs: float64(latency.Microseconds()) / 1000.0,
		}
		if found := s.detector.Stats(); found != nil {
			found.SetFallbackHealth(reachable, latency)
		}
	}

	s.writeJSON(w, response)
}

// statsHandler returns the registry snapshot.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, StatsResponse{Stats: s.detector.Stats().Snapshot()})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(DetectResponse{Success: false, Error: message}); err != nil {
		s.logger.Error("encode error response", "error", err)
	}
}
