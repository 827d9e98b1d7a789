package api

import "fmt"

// RemoteError is a failure reported by the backend itself: either a non-2xx
// status with a detail body, or a 2xx response carrying success:false. The
// Detail text is safe to show to the user verbatim.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request rejected (status %d)", e.Status)
}

// TransportError is a failure to complete the round trip: connection errors,
// timeouts, or a payload the client could not decode. Its text is for logs
// only; user-facing surfaces must render a generic retry message instead.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
