// Package agent provides the agent framework: a frozen registry of
// tool-using agents, the tool-error envelope, retryable output
// validation, and the sequential pipeline executor.
package agent

import "errors"

// RetryRequest is the bounded signal an output validator raises to make
// the agent retry its generation with corrective guidance. It is never a
// terminal error by itself; the runner converts it into another attempt
// until the retry budget is exhausted.
type RetryRequest struct {
	Reason string
}

func (r *RetryRequest) Error() string { return "retry requested: " + r.Reason }

// NewRetryRequest creates a retry signal with guidance for the model.
func NewRetryRequest(reason string) error { return &RetryRequest{Reason: reason} }

// AsRetryRequest extracts a RetryRequest from an error chain.
func AsRetryRequest(err error) (*RetryRequest, bool) {
	var rr *RetryRequest
	ok := errors.As(err, &rr)
	return rr, ok
}

var (
	// ErrAgentNotFound is returned for lookups of unregistered agents.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrRegistryFrozen is returned when registering after Freeze.
	ErrRegistryFrozen = errors.New("agent registry is frozen")

	// ErrRetriesExhausted is returned when output validation keeps
	// rejecting past the retry budget.
	ErrRetriesExhausted = errors.New("output validation retries exhausted")
)
