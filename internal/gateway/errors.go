package gateway

import "errors"

// Sentinel errors for gateway operations.
var (
	// ErrNilConfig indicates that a nil configuration was provided.
	ErrNilConfig = errors.New("configuration is required")

	// ErrBuildFailed indicates that a snapshot could not be built from
	// the configuration.
	ErrBuildFailed = errors.New("failed to build gateway snapshot")
)
