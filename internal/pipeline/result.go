package pipeline

import (
	"errors"
	"time"

	"github.com/factura-tools/qrdetect/internal/preprocess"
)

// ErrInvalidImage reports input bytes that could not be decoded as an image.
// It is the only pipeline condition surfaced to callers as an error; every
// other outcome, including "no QR code in this image", is a normal
// DetectionResult so a miss is never confused with a system fault.
var ErrInvalidImage = errors.New("invalid image")

// Cause explains why an unsuccessful detection resolved the way it did.
type Cause string

const (
	// CauseNotFound means every level ran and found nothing.
	CauseNotFound Cause = "not_found"
	// CauseFallbackUnavailable means local levels missed and the remote
	// fallback could not be consulted.
	CauseFallbackUnavailable Cause = "fallback_unavailable"
	// CauseInvalidImage appears on batch items whose bytes failed to decode.
	CauseInvalidImage Cause = "invalid_image"
	// CauseCancelled appears on batch items abandoned because the batch
	// context ended before the item got a slot. No level ran.
	CauseCancelled Cause = "cancelled"
)

// Detection levels.
const (
	LevelNative   = 1 // decoders on the preprocessed image
	LevelRotation = 2 // decoders on rotated variants
	LevelFallback = 3 // remote fallback service
)

// DetectionResult is the unit returned to callers and stored in the cache.
// Success is true iff Payload is non-empty and DecoderID is set.
type DetectionResult struct {
	Success       bool               `json:"success"`
	Payload       string             `json:"payload,omitempty"`
	DecoderID     string             `json:"decoder_id,omitempty"`
	LevelUsed     int                `json:"level_used,omitempty"`
	RotationAngle int                `json:"rotation_angle,omitempty"`
	Preprocessing preprocess.Applied `json:"preprocessing"`
	NoiseLevel    float64            `json:"noise_level"`
	Confidence    float64            `json:"confidence,omitempty"`
	Cached        bool               `json:"cached"`
	Cause         Cause              `json:"cause,omitempty"`
	TotalDuration time.Duration      `json:"total_duration_ns"`
}

// BatchItem is one image in a batch request.
type BatchItem struct {
	ID    string `json:"id"`
	Image []byte `json:"image"`
}

// BatchResult pairs a correlation ID with its detection outcome.
type BatchResult struct {
	ID     string           `json:"id"`
	Result *DetectionResult `json:"result"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total     int           `json:"total"`
	Successes int           `json:"successes"`
	TotalTime time.Duration `json:"total_time_ns"`
	AvgTime   time.Duration `json:"avg_time_ns"`
}

// BatchOutput is the full response for one batch.
type BatchOutput struct {
	Results []BatchResult `json:"results"`
	Summary BatchSummary  `json:"summary"`
}
