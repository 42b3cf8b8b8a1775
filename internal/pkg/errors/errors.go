package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch means a vector's length disagrees with the
	// deployment's embedding dimensionality. Recoverable when the vector is
	// a stored historical one (the row is skipped), fatal when it is the
	// freshly embedded input.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrMalformedVector means a stored embedding could not be parsed.
	// Always recovered by excluding the row; logged, never user-facing.
	ErrMalformedVector = errors.New("malformed embedding vector")
	// ErrReconciliationPartial means the atomic post re-attachment failed.
	// The whole reconciliation is reported failed; retrying is safe.
	ErrReconciliationPartial = errors.New("reconciliation failed before completion")
	// ErrUpstreamUnavailable wraps embedding / similarity-search collaborator
	// failures. Propagated uninterpreted; the engine does not retry.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)
