package sigrn

import "errors"

// Callers match with errors.Is; context is added with fmt.Errorf("...: %w", ErrX).
var (
	// ErrShapeMismatch is returned when an input does not match the model's
	// gene count, has no samples, or carries statistics of the wrong length.
	ErrShapeMismatch = errors.New("sigrn: shape mismatch")

	// ErrSingularTransform is returned when I-A cannot be inverted reliably:
	// it is exactly singular, its condition number exceeds the configured
	// limit, or the inverse contains NaN/Inf. Training cannot continue.
	ErrSingularTransform = errors.New("sigrn: I-A is singular or ill-conditioned")

	// ErrInvalidConfig is returned by constructors and parsers for unknown
	// enumeration values, non-positive dimensions or out-of-range probabilities.
	ErrInvalidConfig = errors.New("sigrn: invalid configuration")
)
