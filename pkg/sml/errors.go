package sml

import "errors"

var (
	// ErrTimeout means no complete frame arrived within the read window.
	ErrTimeout = errors.New("sml: timeout waiting for frame")

	// ErrFrameTooLarge means the frame exceeded MaxFrameSize before the
	// end marker was seen.
	ErrFrameTooLarge = errors.New("sml: frame too large")

	// ErrChecksumMismatch means the transport CRC did not match. A frame
	// failing this check must never reach the extractor.
	ErrChecksumMismatch = errors.New("sml: checksum mismatch")

	// ErrMalformedMessage means the TLV structure inside a frame is
	// inconsistent (bad length, bad fill count, nesting too deep).
	ErrMalformedMessage = errors.New("sml: malformed message")
)
