package search

import (
	"errors"
	"fmt"

	"enhancer/internal/core"
)

var (
	// ErrMissingAPIKey is returned when a required API key is not provided
	ErrMissingAPIKey = fmt.Errorf("%w: search API key is required", core.ErrConfiguration)

	// ErrUnsupportedProvider is returned when an unsupported provider type is specified
	ErrUnsupportedProvider = fmt.Errorf("%w: unsupported search provider", core.ErrConfiguration)

	// ErrRateLimited is returned when rate limits are exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrProviderUnavailable is returned when a provider service is unavailable
	ErrProviderUnavailable = errors.New("search provider is currently unavailable")
)
