package domain

import (
	"context"
	"time"
)

type ArtifactState string

const (
	ArtifactPending          ArtifactState = "PENDING"
	ArtifactSealed           ArtifactState = "SEALED"
	ArtifactVerifiedMatch    ArtifactState = "VERIFIED_MATCH"
	ArtifactVerifiedMismatch ArtifactState = "VERIFIED_MISMATCH"
	ArtifactDeleted          ArtifactState = "DELETED"
)

// Artifact is one sealed unit of content. The fingerprint is computed once
// at intake and never changes; only the full payload stays local, the
// fingerprint is the only thing that crosses to the anchor ledger.
type Artifact struct {
	ID          string
	Fingerprint string
	PayloadRef  string
	SizeBytes   int64
	ContentType string
	State       ArtifactState

	// AnchorRef is empty until the fingerprint has been anchored.
	AnchorRef string
	AnchoredAt *time.Time

	// ContainerID is a back-reference only; the container owns the
	// relationship.
	ContainerID string

	CreatedAt time.Time
}

// Container is an ordered aggregate of artifacts uploaded as one logical
// batch. Member order is part of the aggregate identity.
type Container struct {
	ID                   string
	MemberIDs            []string
	AggregateFingerprint string
	State                ArtifactState

	AnchorRef  string
	AnchoredAt *time.Time

	CreatedAt time.Time
}

// ProofBundle is assembled on demand from the artifact row and its
// provenance trail; it is never persisted as its own record.
type ProofBundle struct {
	ArtifactID          string            `json:"artifact_id"`
	Fingerprint         string            `json:"fingerprint"`
	AnchorRef           string            `json:"anchor_ref,omitempty"`
	SealedAt            *time.Time        `json:"sealed_at,omitempty"`
	State               ArtifactState     `json:"state"`
	VerificationHistory []ProvenanceEvent `json:"verification_history"`
}

type ArtifactRepository interface {
	Create(ctx context.Context, artifact Artifact) error
	GetByID(ctx context.Context, id string) (*Artifact, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Artifact, error)
	UpdateState(ctx context.Context, id string, state ArtifactState) error
	MarkSealed(ctx context.Context, id, anchorRef string, anchoredAt time.Time) error
	MarkDeleted(ctx context.Context, id string) error
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]Artifact, error)
}

type ContainerRepository interface {
	Create(ctx context.Context, container Container) error
	GetByID(ctx context.Context, id string) (*Container, error)
	MarkSealed(ctx context.Context, id, anchorRef string, anchoredAt time.Time) error
	UpdateState(ctx context.Context, id string, state ArtifactState) error
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]Container, error)
}

// PayloadStore is the content-addressed byte store behind payload refs.
// Storing identical bytes twice yields the same ref; Get on a purged or
// unknown ref returns ErrNotFound.
type PayloadStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) (bool, error)
	Delete(ctx context.Context, ref string) error
}
