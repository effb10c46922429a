package ping

import "errors"

// Ping-related errors.
var (
	// ErrInvalidTimeout indicates Config.Timeout is not positive.
	ErrInvalidTimeout = errors.New("ping: timeout must be positive")

	// ErrInvalidInterval indicates Config.Interval is not positive.
	ErrInvalidInterval = errors.New("ping: interval must be positive")

	// ErrInvalidCount indicates Config.Count is negative.
	ErrInvalidCount = errors.New("ping: count must not be negative")

	// ErrIPv6Unsupported indicates the target resolved to an IPv6 address.
	ErrIPv6Unsupported = errors.New("ping: IPv6 targets are not supported")

	// ErrTargetResolution indicates hostname resolution returned no
	// addresses.
	ErrTargetResolution = errors.New("ping: could not resolve target hostname")
)
