// Package provider defines the client contract the executor drives, plus the
// registry of available provider implementations.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client is the external collaborator that actually mutates infrastructure.
// Attributes are fully resolved (no references) by the time a call is made.
type Client interface {
	// Create provisions a resource and returns its provider-assigned ID and
	// resolved attributes.
	Create(ctx context.Context, kind string, attrs map[string]any) (string, map[string]any, error)

	// Update mutates an existing resource in place and returns its resolved
	// attributes.
	Update(ctx context.Context, kind string, id string, attrs map[string]any) (map[string]any, error)

	// Destroy removes the resource with the given ID.
	Destroy(ctx context.Context, kind string, id string) error
}

// Error is a classified provider failure. Retryable failures (throttling,
// transient network) are retried with backoff; everything else halts the run.
type Error struct {
	Op        string
	Kind      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an explicit retryability classification.
func NewError(op, kind string, retryable bool, err error) *Error {
	return &Error{Op: op, Kind: kind, Retryable: retryable, Err: err}
}

// IsRetryable reports whether an operation error is worth retrying. A typed
// classification wins; raw errors fall back to pattern matching on common
// cloud API throttling and network failure messages, and a per-attempt
// deadline counts as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return isTransientMessage(err.Error())
}

var transientPatterns = []string{
	"throttl",
	"rate exceed",
	"too many requests",
	"request limit",
	"service unavailable",
	"internal server error",
	"connection reset",
	"connection refused",
	"timeout",
	"tls handshake",
	"i/o timeout",
	"temporary failure",
}

func isTransientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
