// Package state persists applied state between runs. Writes are per-resource
// upserts so a crash mid-apply leaves a valid partial record, and a
// single-writer advisory lock serializes concurrent runs.
package state

import (
	"context"
	"fmt"

	"github.com/stackform-io/stackform/internal/ir"
)

// Store is the applied-state persistence contract.
type Store interface {
	// Load reads the state, returning an empty state on first run, and
	// caches it for Snapshot and incremental writes.
	Load(ctx context.Context) (*ir.AppliedState, error)

	// Save upserts one resource's state and persists immediately. This is
	// the executor's durability checkpoint.
	Save(ctx context.Context, res *ir.ResourceState) error

	// Delete removes one resource's state and persists immediately.
	Delete(ctx context.Context, addr ir.Address) error

	// Snapshot returns a consistent deep copy of the current state.
	Snapshot() *ir.AppliedState

	// Lock takes the single-writer advisory lock. It is held for the whole
	// duration of an apply.
	Lock() error

	// Unlock releases the advisory lock.
	Unlock() error
}

// Config selects and configures a backend.
type Config struct {
	// Type is "local" (default) or "s3".
	Type string `json:"type"`

	// Path is the local state file path.
	Path string `json:"path"`

	// S3 settings.
	Bucket        string `json:"bucket"`
	Key           string `json:"key"`
	Region        string `json:"region"`
	DynamoDBTable string `json:"dynamodbTable"`
	Profile       string `json:"profile"`
}

// NewStore builds a store from configuration.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "local":
		if cfg.Path == "" {
			return nil, fmt.Errorf("local state backend requires a path")
		}
		return NewLocalStore(cfg.Path), nil
	case "s3":
		return newS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown state backend type %q", cfg.Type)
	}
}
