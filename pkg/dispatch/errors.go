package dispatch

import "errors"

var (
	// ErrNilTransport indicates New was called without a transport.
	ErrNilTransport = errors.New("transport is nil")
)
