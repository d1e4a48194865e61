package enhance

import (
	"errors"
	"fmt"
)

// Enhancement errors.
//
// Design decision: each failure mode has its own sentinel so the pipeline
// can log why it fell back to the unenhanced document, and so retries are
// limited to the modes that can recover (quota and server errors).
var (
	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("no API key configured for enhancement")

	// ErrQuotaExceeded is returned when the API answers 429 Too Many Requests.
	ErrQuotaExceeded = errors.New("enhancement API quota exceeded")

	// ErrRequestFailed is returned for transport failures and non-200 answers.
	ErrRequestFailed = errors.New("enhancement request failed")

	// ErrMalformedResponse is returned when the answer has no text or the
	// text is not a usable llms.txt document.
	ErrMalformedResponse = errors.New("malformed enhancement response")

	// ErrEmptyDocument is returned when there is nothing to enhance.
	ErrEmptyDocument = errors.New("document to enhance is empty")
)

// Error describes a failed enhancement attempt.
type Error struct {
	// Reason is one of the sentinel errors of this package.
	Reason error

	// StatusCode is the HTTP status of the API answer, or 0 when no answer
	// was received.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Reason.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel reason and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	if errors.Is(e.Reason, ErrQuotaExceeded) {
		return true
	}
	return errors.Is(e.Reason, ErrRequestFailed) && (e.StatusCode == 0 || e.StatusCode >= 500)
}
