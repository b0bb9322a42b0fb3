package integrity

import "errors"

var (
	// ErrSourceUnavailable wraps I/O faults while reading a document or
	// signature blob. Hashing in-memory bytes never returns it.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedInput marks input that cannot be parsed at all, such as a
	// verification code that is not 16 hex characters.
	ErrMalformedInput = errors.New("malformed input")
)
