package pngenc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOption is returned for configuration the encoder cannot
	// honor. Nothing has been produced when it is returned.
	ErrInvalidOption = errors.New("invalid option")

	// ErrMalformedImage is returned for an empty grid or rows whose
	// lengths disagree with each other or with the configured geometry.
	ErrMalformedImage = errors.New("malformed image")

	// ErrCompressionFailure wraps an error from the compressor.
	ErrCompressionFailure = errors.New("compression failure")
)

func invalidOption(format string, args ...any) error {
	return fmt.Errorf("pngenc: %w: %s", ErrInvalidOption, fmt.Sprintf(format, args...))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("pngenc: %w: %s", ErrMalformedImage, fmt.Sprintf(format, args...))
}
