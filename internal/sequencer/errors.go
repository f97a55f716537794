package sequencer

import (
	"errors"
)

var (
	// ErrUnsupportedFormat means the input is not a Standard MIDI File at all.
	// Callers may try a different loader.
	ErrUnsupportedFormat = errors.New("unsupported format")

	ErrMalformedHeader      = errors.New("malformed header")
	ErrMalformedEvent       = errors.New("malformed event")
	ErrTruncatedInput       = errors.New("truncated input")
	ErrUnsupportedFrameRate = errors.New("unsupported frame rate")
)
