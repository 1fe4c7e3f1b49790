package domain

import (
	"context"
	"time"
)

type AnchorHealth string

const (
	AnchorHealthy  AnchorHealth = "healthy"
	AnchorDegraded AnchorHealth = "degraded"
	AnchorDown     AnchorHealth = "down"
)

// AnchorRecord is what the external ledger holds for one anchored
// fingerprint. The ledger is trusted for integrity but not for
// availability: it never returns a wrong answer, but it may be slow,
// rate-limited, or unreachable.
type AnchorRecord struct {
	Ref         string
	Fingerprint string
	Timestamp   time.Time
	Status      string
}

// AnchorClient abstracts the external ledger. Submit must not be retried
// by callers; retry and circuit-breaker policy live inside the
// implementation. An open breaker or exhausted retries surface as
// ErrAnchorUnavailable; a permanent rejection surfaces as
// ErrAnchorRejected.
type AnchorClient interface {
	Submit(ctx context.Context, fingerprint string) (AnchorRecord, error)
	Fetch(ctx context.Context, ref string) (AnchorRecord, error)
	Health(ctx context.Context) AnchorHealth
}

// Submission states for a single anchor submission attempt sequence.
const (
	SubmissionNotSubmitted    = "NOT_SUBMITTED"
	SubmissionSubmitting      = "SUBMITTING"
	SubmissionSubmitted       = "SUBMITTED"
	SubmissionFailedRetryable = "FAILED_RETRYABLE"
	SubmissionFailedPermanent = "FAILED_PERMANENT"
)

const (
	AnchorErrorNetwork       = "NETWORK"
	AnchorErrorTimeout       = "TIMEOUT"
	AnchorErrorRateLimit     = "RATE_LIMIT"
	AnchorErrorProvider5xx   = "PROVIDER_5XX"
	AnchorErrorProviderError = "PROVIDER_ERROR"
	AnchorErrorBreakerOpen   = "BREAKER_OPEN"
)

// AnchorAttempt records one wire-level submission attempt, kept for
// operator visibility into outages and FAILED_PERMANENT submissions.
type AnchorAttempt struct {
	ID          string
	Fingerprint string
	SubjectID   string
	Attempt     int
	Status      string
	ErrorCode   string
	AnchorRef   string
	CreatedAt   time.Time
}

type AnchorAttemptRepository interface {
	Append(ctx context.Context, attempt AnchorAttempt) error
	ListByFingerprint(ctx context.Context, fingerprint string) ([]AnchorAttempt, error)
}
