package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/factura-tools/qrdetect/internal/pdf"
)

// PDFDetectResponse is the document result envelope.
type PDFDetectResponse struct {
	Success bool        `json:"success"`
	Report  *pdf.Report `json:"report,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// detectPDFHandler processes PDF detection requests. The upload is staged to
// a temp file because extraction operates on a path.
func (s *Server) detectPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	uploadSizeBytes.Observe(float64(header.Size))

	tmp, err := os.CreateTemp("", "qrdetect-upload-*.pdf")
	if err != nil {
		s.writeErrorResponse(w, "Failed to stage upload", http.StatusInternalServerError)
		return
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		s.writeErrorResponse(w, "Failed to stage upload", http.StatusInternalServerError)
		return
	}
	if err := tmp.Close(); err != nil {
		s.writeErrorResponse(w, "Failed to stage upload", http.StatusInternalServerError)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	report, err := s.processor.Process(ctx, tmpPath, pdf.Options{
		Pages:       formOrQuery(r, "pages"),
		StopOnFirst: formOrQuery(r, "first") == "1",
		Detect:      detectOptions(r),
	})
	detectDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())

	if err != nil {
		detectRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeErrorResponse(w, "PDF processing failed", http.StatusUnprocessableEntity)
		return
	}
	detectRequestsTotal.WithLabelValues("pdf", "success").Inc()

	if report != nil {
		report.Path = filepath.Base(header.Filename)
	}
	s.writeJSON(w, PDFDetectResponse{
		Success: len(report.Payloads) > 0,
		Report:  report,
	})
}
