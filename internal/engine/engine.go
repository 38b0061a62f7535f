// Package engine implements reconciliation: building the reference graph,
// planning a change-set against applied state, and executing it through a
// provider with bounded parallelism and durable per-resource checkpoints.
package engine

import (
	"time"

	"github.com/stackform-io/stackform/internal/provider"
)

const (
	// DefaultParallelism bounds concurrent provider operations.
	DefaultParallelism = 10

	// DefaultOperationTimeout applies to each provider call attempt.
	DefaultOperationTimeout = 30 * time.Minute
)

// Engine orchestrates the lifecycle of resources.
type Engine struct {
	providers *provider.Registry

	// Parallelism is the worker bound for independent operations.
	Parallelism int

	// OperationTimeout is the per-attempt provider call timeout.
	OperationTimeout time.Duration

	// Retry governs backoff for retryable provider failures.
	Retry *RetryPolicy

	// Callback, if set, receives progress events during apply.
	Callback ApplyCallback
}

func New(providers *provider.Registry) *Engine {
	return &Engine{
		providers:        providers,
		Parallelism:      DefaultParallelism,
		OperationTimeout: DefaultOperationTimeout,
		Retry:            DefaultRetryPolicy(),
	}
}
