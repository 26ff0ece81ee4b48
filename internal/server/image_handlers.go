package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/factura-tools/qrdetect/internal/pipeline"
)

// detectImageHandler processes single-image detection requests.
func (s *Server) detectImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	imageData, ok := s.readImageUpload(w, r)
	if !ok {
		return
	}
	uploadSizeBytes.Observe(float64(len(imageData)))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	result, err := s.detector.Detect(ctx, imageData, detectOptions(r))
	detectDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())

	if err != nil {
		detectRequestsTotal.WithLabelValues("image", "error").Inc()
		if errors.Is(err, pipeline.ErrInvalidImage) {
			s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
			return
		}
		s.writeErrorResponse(w, "Detection failed", http.StatusInternalServerError)
		return
	}

	status := "miss"
	if result.Success {
		status = "success"
		detectLevelUsed.WithLabelValues(levelLabel(result.LevelUsed)).Inc()
	}
	detectRequestsTotal.WithLabelValues("image", status).Inc()

	if formatValue(r) == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(result.Payload))
		return
	}

	s.writeJSON(w, DetectResponse{Success: result.Success, Result: result})
}

// readImageUpload extracts image bytes from a multipart "image" field or,
// for any other content type, the raw request body. On failure it writes the
// error response and reports false.
func (s *Server) readImageUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
			return nil, false
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
			return nil, false
		}
		defer func() { _ = file.Close() }()

		if header.Size > s.maxUploadMB*1024*1024 {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		data, err := io.ReadAll(file)
		if err != nil {
			s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
			return nil, false
		}
		return data, true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	if len(data) == 0 {
		s.writeErrorResponse(w, "No image data provided", http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

// detectOptions reads per-request hints from the form or query string.
func detectOptions(r *http.Request) pipeline.Options {
	var opts pipeline.Options
	if v := formOrQuery(r, "prefer_speed"); v == "1" || v == "true" {
		opts.PreferSpeed = true
	}
	if v := formOrQuery(r, "max_decoders"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxDecoders = n
		}
	}
	return opts
}

func formatValue(r *http.Request) string {
	return formOrQuery(r, "format")
}

func formOrQuery(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}
