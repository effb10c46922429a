package trace

import "errors"

// Trace-related errors.
var (
	// ErrInvalidMaxHops indicates max hops is out of valid range (1-127)
	ErrInvalidMaxHops = errors.New("max hops must be between 1 and 127")

	// ErrInvalidTimeout indicates timeout is too short
	ErrInvalidTimeout = errors.New("timeout must be at least 100ms")

	// ErrInvalidFirstHop indicates first hop is invalid
	ErrInvalidFirstHop = errors.New("first hop must be between 1 and max hops")

	// ErrTargetResolution indicates the target could not be resolved
	ErrTargetResolution = errors.New("could not resolve target hostname")

	// ErrTraceIncomplete indicates the trace did not reach the destination
	ErrTraceIncomplete = errors.New("trace did not reach destination")
)
