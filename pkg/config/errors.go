package config

import "errors"

var (
	// ErrNilPointer indicates Load was called with a nil destination.
	ErrNilPointer = errors.New("config: nil pointer provided")
	// ErrParsingConfig indicates environment variables could not be parsed into the struct.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
	// ErrConfigNotLoaded indicates the configuration was not found in cache after loading.
	ErrConfigNotLoaded = errors.New("config: configuration not loaded")
)
