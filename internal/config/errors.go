package config

import "errors"

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates the configuration or target is
	// syntactically or semantically invalid.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingRequired indicates a required value was not provided.
	ErrMissingRequired = errors.New("config: missing required field")
)
