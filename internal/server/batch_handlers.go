package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/factura-tools/qrdetect/internal/pipeline"
)

// BatchDetectRequest is the JSON body for batch detection. Image bytes are
// base64-encoded by Go's JSON marshaling of []byte.
type BatchDetectRequest struct {
	Images      []BatchImageRequest `json:"images"`
	PreferSpeed bool                `json:"prefer_speed,omitempty"`
	// MaxConcurrency overrides the server default when positive.
	MaxConcurrency int `json:"max_concurrency,omitempty"`
}

// BatchImageRequest is a single image in a batch request.
type BatchImageRequest struct {
	ID   string `json:"id,omitempty"`
	Data []byte `json:"data"`
}

// BatchDetectResponse is the batch result envelope.
type BatchDetectResponse struct {
	Success bool                   `json:"success"`
	Results []pipeline.BatchResult `json:"results,omitempty"`
	Summary pipeline.BatchSummary  `json:"summary"`
	Error   string                 `json:"error,omitempty"`
}

// detectBatchHandler processes batch detection requests.
func (s *Server) detectBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	var req BatchDetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), http.StatusBadRequest)
		return
	}

	if len(req.Images) == 0 {
		s.writeErrorResponse(w, "No images provided in batch request", http.StatusBadRequest)
		return
	}
	if len(req.Images) > s.maxBatch {
		s.writeErrorResponse(w,
			fmt.Sprintf("Batch size too large (maximum %d items)", s.maxBatch),
			http.StatusBadRequest)
		return
	}

	items := make([]pipeline.BatchItem, len(req.Images))
	for i, img := range req.Images {
		items[i] = pipeline.BatchItem{ID: img.ID, Image: img.Data}
	}

	opts := pipeline.DefaultBatchOptions()
	opts.ItemOptions.PreferSpeed = req.PreferSpeed
	if req.MaxConcurrency > 0 {
		opts.MaxConcurrency = req.MaxConcurrency
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	out, err := s.detector.DetectBatch(ctx, items, opts)
	detectDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	if err != nil {
		detectRequestsTotal.WithLabelValues("batch", "error").Inc()
		s.writeErrorResponse(w, "Batch detection failed", http.StatusInternalServerError)
		return
	}
	detectRequestsTotal.WithLabelValues("batch", "success").Inc()

	s.writeJSON(w, BatchDetectResponse{
		Success: out.Summary.Successes == out.Summary.Total,
		Results: out.Results,
		Summary: out.Summary,
	})
}
