package ivfile

import "errors"

// Errors are package-level values so callers can match them with errors.Is.
var (
	ErrInvalidParams    = errors.New("invalid index parameters")
	ErrInvalidScheme    = errors.New("invalid scheme")
	ErrCorruptIndex     = errors.New("index is structurally invalid")
	ErrStatsNotComputed = errors.New("statistics not computed")
)
