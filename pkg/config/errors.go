package config

import "errors"

var (
	// ErrMissingConfig is returned when a required key is absent.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrInvalidConfig is returned when a key has an unusable value.
	ErrInvalidConfig = errors.New("invalid configuration")
)
