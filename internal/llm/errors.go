package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ppiankov/xpnc/internal/model"
)

var (
	// ErrMissingCredentials is returned when a hosted provider has no API key
	ErrMissingCredentials = errors.New("missing API credentials")

	// ErrTimeout is returned when the provider did not answer before the deadline
	ErrTimeout = errors.New("request timed out")

	// ErrEmptyReply is returned when the provider answered with no content
	ErrEmptyReply = errors.New("empty reply")
)

// RequestError describes a failed provider call.
// StatusCode is 0 for network-level failures.
type RequestError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Classify maps a provider error to the failure kind used for fallback scoring.
// ctx is the context the call ran under; an expired deadline wins over
// whatever error the transport surfaced.
func Classify(ctx context.Context, err error) model.FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingCredentials) {
		return model.FailureMissingCredentials
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return model.FailureTimeout
	}
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return model.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.FailureTimeout
	}
	return model.FailureRequestFailed
}
