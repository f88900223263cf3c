package detector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrMissingCredential is returned when no API key is configured. It is
	// never retried.
	ErrMissingCredential = errors.New("detector: API credential is not configured")

	// ErrMalformedResponse marks a response body that is not valid JSON or
	// lacks the expected structure.
	ErrMalformedResponse = errors.New("detector: malformed response body")

	// ErrNoUploadURL is returned when a presign response carries no writable URL.
	ErrNoUploadURL = errors.New("detector: no signed upload URL in response")
)

// StatusError is a non-2xx answer from the detection service or the upload target.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

// Retryable reports whether the status is one the service documents as transient.
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Outcome classifies how a guarded call ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CallError wraps a failure caused by the per-call timeout or by the
// caller's context ending first.
type CallError struct {
	Op      string
	Outcome Outcome
	Err     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Outcome, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Retryable is true for per-call timeouts only. A cancelled caller never retries.
func (e *CallError) Retryable() bool { return e.Outcome == OutcomeTimeout }

// OutcomeOf maps an error returned by a Client method to its Outcome.
// Failures that are neither timeouts nor cancellations report OutcomeSuccess
// in the sense that the call completed, with err describing what came back.
func OutcomeOf(err error) Outcome {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Outcome
	}
	return OutcomeSuccess
}

// guard runs fn under its own timeout and races it against ctx. Whichever
// ends first is reported as a typed CallError.
func guard(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := fn(callCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return &CallError{Op: op, Outcome: OutcomeCancelled, Err: err}
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return &CallError{Op: op, Outcome: OutcomeTimeout, Err: err}
	default:
		return err
	}
}
