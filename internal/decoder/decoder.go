// Package decoder provides the set of native QR decoders tried by the
// detection cascade.
//
// Each implementation is an independent library with its own degradation
// profile. The cascade walks the set in priority order and stops at the
// first payload, so ordering is part of the contract: the fastest decoder
// with the highest expected hit rate goes first, the others act as
// resilience nets.
package decoder

import (
	"image"
)

// Decoder decodes a QR payload from an image. A miss is (_, false), never an
// error: a decoder that cannot find a code has nothing exceptional to report.
type Decoder interface {
	// ID identifies this decoder in results and stats.
	ID() string

	// Decode returns the decoded payload, or ok=false when no QR code is
	// found. Implementations must not panic on malformed input.
	Decode(img image.Image) (payload string, ok bool)
}

// Default returns the decoder set in priority order.
func Default() []Decoder {
	return []Decoder{
		NewZXing(),
		NewGoQR(),
		NewTuotoo(),
	}
}

// Truncate limits a decoder list to at most n entries, preserving order.
// n <= 0 means no limit.
func Truncate(decoders []Decoder, n int) []Decoder {
	if n <= 0 || n >= len(decoders) {
		return decoders
	}
	return decoders[:n]
}
