package anchor

import (
	"context"
	"fmt"

	"seald/internal/domain"
)

// Provider is one concrete ledger backend. Implementations return
// *ProviderError for wire-level failures so the service can classify them
// as retryable or permanent.
type Provider interface {
	ProviderName() string
	Submit(ctx context.Context, fingerprint string) (domain.AnchorRecord, error)
	Fetch(ctx context.Context, ref string) (domain.AnchorRecord, error)
	Health(ctx context.Context) (domain.AnchorHealth, error)
}

// ProviderError carries the error taxonomy of a failed provider call.
// Timeouts, network errors, 429 and 5xx are retryable; other provider
// rejections are permanent.
type ProviderError struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("anchor provider: %s: %v", e.Code, e.Err)
	}
	return "anchor provider: " + e.Code
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
