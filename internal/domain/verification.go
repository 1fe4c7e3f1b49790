package domain

import (
	"context"
	"time"
)

type VerificationOutcome string

const (
	VerificationMatch    VerificationOutcome = "MATCH"
	VerificationMismatch VerificationOutcome = "MISMATCH"
	VerificationNotSealed VerificationOutcome = "NOT_SEALED"

	// VerificationUnavailable means the anchor ledger could not be
	// consulted. It is never coerced to MATCH or MISMATCH.
	VerificationUnavailable VerificationOutcome = "UNAVAILABLE"
)

type VerificationResult struct {
	Outcome VerificationOutcome `json:"outcome"`

	ArtifactID  string `json:"artifact_id,omitempty"`
	ContainerID string `json:"container_id,omitempty"`

	CurrentFingerprint  string `json:"current_fingerprint,omitempty"`
	AnchoredFingerprint string `json:"anchored_fingerprint,omitempty"`
	AnchorRef           string `json:"anchor_ref,omitempty"`

	// ChangedMembers lists container members whose current content no
	// longer matches their stored fingerprint. Best-effort diagnostic;
	// the verdict itself comes from the aggregate comparison.
	ChangedMembers []string `json:"changed_members,omitempty"`

	CheckedAt time.Time `json:"checked_at"`
}

// SealGuard is the fingerprint-keyed mutual exclusion registry that makes
// sealing idempotent under concurrency: at most one in-flight seal per
// fingerprint. A second caller gets ErrSealInProgress and should retry
// shortly. Passed by reference into the seal workflow, never ambient.
type SealGuard interface {
	Acquire(ctx context.Context, fingerprint string) (token string, err error)
	Release(ctx context.Context, fingerprint, token string) error
}
