package sentinel

import "errors"

// Sentinel errors for the memory domain layer. They stand in for the
// errno-like status space the capability contracts are written against:
// engines and the registry return these (optionally wrapped), while provider
// errors pass through untouched so callers can match on either.
//
// Nothing here is fatal; every failure is locally recoverable by falling back
// to a different domain or copy strategy, or by propagating the status upward.
var (
	// ErrNotSupported: the source domain has no capability attached for the
	// requested operation.
	ErrNotSupported = errors.New("operation not supported")
	// ErrInvalidArgument: malformed input, e.g. an empty domain id or a
	// destination list with less aggregate capacity than the source length.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound: no domain matched a lookup.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable: provider resource temporarily exhausted or shut down.
	ErrUnavailable = errors.New("unavailable")
)
