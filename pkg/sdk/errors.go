package researchrag

import "github.com/kailas-cloud/researchrag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrInvalidInput       = domain.ErrInvalidInput
	ErrRateLimited        = domain.ErrRateLimited
	ErrModelQuotaExceeded = domain.ErrModelQuotaExceeded
	ErrModelProviderError = domain.ErrModelProviderError
)
