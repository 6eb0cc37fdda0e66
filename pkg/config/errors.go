package config

import "errors"

var (
	// ErrNilPointer indicates Load was called with a nil destination.
	ErrNilPointer = errors.New("config: nil pointer passed to Load")

	// ErrParsingConfig indicates environment parsing failed.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")

	// ErrLoadingEnvFile indicates a .env file could not be loaded.
	ErrLoadingEnvFile = errors.New("config: failed to load env file")
)
