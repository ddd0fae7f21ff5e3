package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound signals a missing chat session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidInput signals a malformed request or content set.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrModelQuotaExceeded signals an exhausted model token budget.
	ErrModelQuotaExceeded = errors.New("model quota exceeded")
	// ErrModelProviderError signals a model provider failure.
	ErrModelProviderError = errors.New("model provider error")
	// ErrWebSearchFailed signals a web search provider failure.
	ErrWebSearchFailed = errors.New("web search failed")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)
