package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"seald/internal/domain"
	"seald/internal/logging"
)

type SealRequest struct {
	Payload     []byte
	ContentType string
	Actor       string
}

// SealReceipt is the caller-facing outcome of a seal request.
// Deduplicated means the fingerprint was already known and no new
// artifact was created. Queued means the artifact exists but the anchor
// submission has not succeeded yet; the sweeper picks it up later.
type SealReceipt struct {
	Artifact     domain.Artifact
	Deduplicated bool
	Queued       bool
}

type SealService struct {
	Artifacts  domain.ArtifactRepository
	Containers domain.ContainerRepository
	Events     domain.ProvenanceRepository
	Payloads   domain.PayloadStore
	Anchor     domain.AnchorClient
	Guard      domain.SealGuard
	Policy     domain.AdmissionPolicy
	Prints     Fingerprinter
	Log        logging.Logger
	Now        func() time.Time
}

func (s *SealService) Seal(ctx context.Context, req SealRequest) (*SealReceipt, error) {
	fingerprint, err := s.Prints.Sum(req.Payload)
	if err != nil {
		return nil, err
	}
	if req.Actor == "" {
		req.Actor = domain.ActorSystem
	}
	if err := s.admit(ctx, domain.AdmissionInput{
		ContentType: req.ContentType,
		SizeBytes:   int64(len(req.Payload)),
		Actor:       req.Actor,
	}); err != nil {
		return nil, err
	}

	// Fast path: the fingerprint may already be sealed or in flight.
	if receipt, err := s.existing(ctx, fingerprint); receipt != nil || err != nil {
		return receipt, err
	}

	token, err := s.Guard.Acquire(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.Guard.Release(ctx, fingerprint, token); err != nil {
			s.log().Warn(ctx, "seal guard release failed", "fingerprint", fingerprint, "error", err)
		}
	}()

	// A concurrent caller may have finished between the fast path and
	// the guard acquisition.
	if receipt, err := s.existing(ctx, fingerprint); receipt != nil || err != nil {
		return receipt, err
	}

	payloadRef, err := s.Payloads.Put(ctx, req.Payload)
	if err != nil {
		return nil, err
	}
	artifact := domain.Artifact{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		PayloadRef:  payloadRef,
		SizeBytes:   int64(len(req.Payload)),
		ContentType: req.ContentType,
		State:       domain.ArtifactPending,
		CreatedAt:   s.clock(),
	}
	if err := s.Artifacts.Create(ctx, artifact); err != nil {
		return nil, err
	}
	if _, err := s.Events.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: artifact.ID,
		Type:       domain.EventCreated,
		Actor:      req.Actor,
		CreatedAt:  s.clock(),
	}); err != nil {
		return nil, err
	}

	queued, err := s.anchorArtifact(ctx, &artifact, req.Actor)
	if err != nil {
		return nil, err
	}
	return &SealReceipt{Artifact: artifact, Queued: queued}, nil
}

// anchorArtifact submits the fingerprint and records the outcome on the
// artifact. An unavailable or rejecting ledger is not a seal failure:
// the artifact stays PENDING and the receipt comes back queued.
func (s *SealService) anchorArtifact(ctx context.Context, artifact *domain.Artifact, actor string) (queued bool, err error) {
	record, err := s.Anchor.Submit(ctx, artifact.Fingerprint)
	switch {
	case err == nil:
		anchoredAt := record.Timestamp
		if anchoredAt.IsZero() {
			anchoredAt = s.clock()
		}
		if err := s.Artifacts.MarkSealed(ctx, artifact.ID, record.Ref, anchoredAt); err != nil {
			return false, err
		}
		if _, err := s.Events.Append(ctx, domain.ProvenanceEvent{
			ArtifactID: artifact.ID,
			Type:       domain.EventSealed,
			Actor:      actor,
			Detail:     "anchored as " + record.Ref,
			CreatedAt:  s.clock(),
		}); err != nil {
			return false, err
		}
		artifact.State = domain.ArtifactSealed
		artifact.AnchorRef = record.Ref
		artifact.AnchoredAt = &anchoredAt
		return false, nil
	case errors.Is(err, domain.ErrAnchorUnavailable):
		s.log().Warn(ctx, "anchor unavailable, seal queued", "artifact_id", artifact.ID)
		return true, nil
	case errors.Is(err, domain.ErrAnchorRejected):
		s.log().Error(ctx, "anchor rejected fingerprint", "artifact_id", artifact.ID, "fingerprint", artifact.Fingerprint)
		return true, nil
	default:
		return false, err
	}
}

// existing resolves the dedup fast path. A known fingerprint returns the
// original artifact regardless of payload name or caller; a deleted one
// refuses the reseal since its payload is gone for a reason.
func (s *SealService) existing(ctx context.Context, fingerprint string) (*SealReceipt, error) {
	artifact, err := s.Artifacts.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if artifact.State == domain.ArtifactDeleted {
		return nil, domain.ErrAlreadyDeleted
	}
	return &SealReceipt{
		Artifact:     *artifact,
		Deduplicated: true,
		Queued:       artifact.State == domain.ArtifactPending,
	}, nil
}

func (s *SealService) admit(ctx context.Context, input domain.AdmissionInput) error {
	if s.Policy == nil {
		return nil
	}
	result, err := s.Policy.Evaluate(ctx, input)
	if err != nil {
		return err
	}
	if result.Allow {
		return nil
	}
	codes := make([]string, 0, len(result.Deny))
	for _, denial := range result.Deny {
		codes = append(codes, denial.Code)
	}
	return fmt.Errorf("%w: %s", domain.ErrPolicyDenied, strings.Join(codes, ", "))
}

func (s *SealService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *SealService) log() logging.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.Nop{}
}
