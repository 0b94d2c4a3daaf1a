package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation call for the retry loop.
type ErrorKind int

const (
	// KindTransient failures are retried on the same model after a backoff.
	KindTransient ErrorKind = iota
	// KindRateLimited means the model is saturated; the gateway moves on to the next model.
	KindRateLimited
	// KindFatal failures are not expected to succeed on retry.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// ErrExhausted is returned when every model and retry failed to produce a usable result.
var ErrExhausted = errors.New("all models and retries exhausted")

// Error is a generation failure tagged with its kind.
type Error struct {
	Kind  ErrorKind
	Model string
	Err   error
}

func (e *Error) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Model, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError tags err with kind.
func NewError(kind ErrorKind, model string, err error) *Error {
	return &Error{Kind: kind, Model: model, Err: err}
}

// KindOf returns the kind of a tagged error. Untagged errors count as transient.
func KindOf(err error) ErrorKind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindTransient
}
