package aws

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	"github.com/stackform-io/stackform/internal/provider"
)

// retryableCodes are AWS API error codes worth retrying with backoff.
var retryableCodes = map[string]bool{
	"Throttling":                  true,
	"ThrottlingException":         true,
	"RequestThrottled":            true,
	"RequestThrottledException":   true,
	"RequestLimitExceeded":        true,
	"TooManyRequestsException":    true,
	"ServiceUnavailable":          true,
	"ServiceUnavailableException": true,
	"InternalError":               true,
	"InternalFailure":             true,
	"InternalServiceError":        true,
	// Eventual consistency: a just-created dependency may not be visible to
	// the next API call yet.
	"InvalidGroup.NotFound":        true,
	"InvalidVpcID.NotFound":        true,
	"InvalidSubnetID.NotFound":     true,
	"InvalidRouteTableID.NotFound": true,
	"DependencyViolation":          true,
}

// wrapErr classifies an SDK error and wraps it in the provider error type so
// the executor's retry logic can act on it.
func wrapErr(op, kind string, err error) error {
	if err == nil {
		return nil
	}
	return provider.NewError(op, kind, isRetryable(err), err)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if retryableCodes[apiErr.ErrorCode()] {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return false
}
