package api

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrNetworkTimeout covers deadline-bounded calls that ran out of time.
	ErrNetworkTimeout = errors.New("network timeout")
	// ErrNetworkFailure covers non-timeout transport errors and 5xx responses.
	ErrNetworkFailure = errors.New("network failure")
	// ErrAuthExpired is returned once the refresh-retry budget is exhausted.
	// Surfaces treat it as "not logged in".
	ErrAuthExpired = errors.New("authentication expired")
)

// classifyTransport maps a transport-level error into the taxonomy.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrNetworkTimeout
	}
	return ErrNetworkFailure
}
