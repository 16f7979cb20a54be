package domain

import "errors"

// Error taxonomy for the run. None of these are retried anywhere: the first
// failure aborts the pipeline before the seen set is overwritten.
var (
	// ErrUpstreamUnavailable marks a transport failure or non-2xx status from a
	// source service or a notification sink.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse marks an upstream body that decoded but did not have
	// the expected shape (or failed to decode at all).
	ErrMalformedResponse = errors.New("malformed upstream response")
)
