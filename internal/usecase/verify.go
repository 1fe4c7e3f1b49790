package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seald/internal/domain"
	"seald/internal/logging"
)

// Verifier answers "is this content still what was sealed". The anchored
// fingerprint fetched from the ledger is authoritative; the local record
// is never used as the comparison baseline.
type Verifier struct {
	Artifacts  domain.ArtifactRepository
	Containers domain.ContainerRepository
	Events     domain.ProvenanceRepository
	Payloads   domain.PayloadStore
	Anchor     domain.AnchorClient
	Prints     Fingerprinter
	Log        logging.Logger
	Now        func() time.Time
}

// VerifyArtifact checks one artifact. With supplied bytes the check runs
// against those bytes; otherwise the stored payload is re-read and
// re-fingerprinted. A deleted artifact can still be verified by
// supplying the bytes out of band.
func (v *Verifier) VerifyArtifact(ctx context.Context, artifactID string, supplied []byte) (domain.VerificationResult, error) {
	artifact, err := v.Artifacts.GetByID(ctx, artifactID)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	result := domain.VerificationResult{
		ArtifactID: artifact.ID,
		AnchorRef:  artifact.AnchorRef,
		CheckedAt:  v.clock(),
	}
	if artifact.AnchorRef == "" {
		result.Outcome = domain.VerificationNotSealed
		return result, nil
	}

	current, err := v.currentFingerprint(ctx, artifact, supplied)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	result.CurrentFingerprint = current

	record, err := v.Anchor.Fetch(ctx, artifact.AnchorRef)
	if err != nil {
		if ctx.Err() != nil {
			return domain.VerificationResult{}, err
		}
		v.log().Warn(ctx, "anchor fetch failed during verification", "artifact_id", artifact.ID, "error", err)
		result.Outcome = domain.VerificationUnavailable
		return result, nil
	}
	result.AnchoredFingerprint = record.Fingerprint
	if current == record.Fingerprint {
		result.Outcome = domain.VerificationMatch
	} else {
		result.Outcome = domain.VerificationMismatch
	}
	if err := v.recordArtifactOutcome(ctx, artifact, result); err != nil {
		return domain.VerificationResult{}, err
	}
	return result, nil
}

// VerifyContainer recomputes the aggregate from current member content
// and compares it against the anchored aggregate. ChangedMembers names
// which members drifted; the verdict itself comes from the aggregate.
func (v *Verifier) VerifyContainer(ctx context.Context, containerID string) (domain.VerificationResult, error) {
	container, err := v.Containers.GetByID(ctx, containerID)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	result := domain.VerificationResult{
		ContainerID: container.ID,
		AnchorRef:   container.AnchorRef,
		CheckedAt:   v.clock(),
	}
	if container.AnchorRef == "" {
		result.Outcome = domain.VerificationNotSealed
		return result, nil
	}

	prints := make([]string, 0, len(container.MemberIDs))
	var changed []string
	for _, memberID := range container.MemberIDs {
		member, err := v.Artifacts.GetByID(ctx, memberID)
		if err != nil {
			return domain.VerificationResult{}, err
		}
		current, err := v.currentFingerprint(ctx, member, nil)
		if err != nil {
			// A deleted member has no payload to recompute from; its
			// stored fingerprint stands in so the rest of the batch can
			// still be checked against the aggregate.
			if member.State == domain.ArtifactDeleted && errors.Is(err, domain.ErrNotFound) {
				current = member.Fingerprint
			} else {
				return domain.VerificationResult{}, err
			}
		}
		if current != member.Fingerprint {
			changed = append(changed, member.ID)
		}
		prints = append(prints, current)
	}
	aggregate, err := v.Prints.SumAggregate(prints)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	result.CurrentFingerprint = aggregate
	result.ChangedMembers = changed

	record, err := v.Anchor.Fetch(ctx, container.AnchorRef)
	if err != nil {
		if ctx.Err() != nil {
			return domain.VerificationResult{}, err
		}
		v.log().Warn(ctx, "anchor fetch failed during verification", "container_id", container.ID, "error", err)
		result.Outcome = domain.VerificationUnavailable
		return result, nil
	}
	result.AnchoredFingerprint = record.Fingerprint
	if aggregate == record.Fingerprint {
		result.Outcome = domain.VerificationMatch
	} else {
		result.Outcome = domain.VerificationMismatch
	}
	if err := v.recordContainerOutcome(ctx, container, result); err != nil {
		return domain.VerificationResult{}, err
	}
	return result, nil
}

func (v *Verifier) currentFingerprint(ctx context.Context, artifact *domain.Artifact, supplied []byte) (string, error) {
	if len(supplied) > 0 {
		return v.Prints.Sum(supplied)
	}
	payload, err := v.Payloads.Get(ctx, artifact.PayloadRef)
	if err != nil {
		return "", err
	}
	return v.Prints.Sum(payload)
}

func (v *Verifier) recordArtifactOutcome(ctx context.Context, artifact *domain.Artifact, result domain.VerificationResult) error {
	eventType := domain.EventVerified
	state := domain.ArtifactVerifiedMatch
	detail := "fingerprint matches anchor " + result.AnchorRef
	if result.Outcome == domain.VerificationMismatch {
		eventType = domain.EventTamperDetected
		state = domain.ArtifactVerifiedMismatch
		detail = fmt.Sprintf("fingerprint %s does not match anchored %s", result.CurrentFingerprint, result.AnchoredFingerprint)
	}
	if _, err := v.Events.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: artifact.ID,
		Type:       eventType,
		Actor:      domain.ActorSystem,
		Detail:     detail,
		CreatedAt:  v.clock(),
	}); err != nil {
		return err
	}
	// DELETED is terminal; verification of a deleted record never
	// resurrects it.
	if artifact.State == domain.ArtifactDeleted {
		return nil
	}
	return v.Artifacts.UpdateState(ctx, artifact.ID, state)
}

func (v *Verifier) recordContainerOutcome(ctx context.Context, container *domain.Container, result domain.VerificationResult) error {
	eventType := domain.EventVerified
	state := domain.ArtifactVerifiedMatch
	detail := "aggregate matches anchor " + result.AnchorRef
	if result.Outcome == domain.VerificationMismatch {
		eventType = domain.EventTamperDetected
		state = domain.ArtifactVerifiedMismatch
		detail = fmt.Sprintf("aggregate %s does not match anchored %s (%d changed members)",
			result.CurrentFingerprint, result.AnchoredFingerprint, len(result.ChangedMembers))
	}
	if _, err := v.Events.Append(ctx, domain.ProvenanceEvent{
		ContainerID: container.ID,
		Type:        eventType,
		Actor:       domain.ActorSystem,
		Detail:      detail,
		CreatedAt:   v.clock(),
	}); err != nil {
		return err
	}
	return v.Containers.UpdateState(ctx, container.ID, state)
}

func (v *Verifier) clock() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now().UTC()
}

func (v *Verifier) log() logging.Logger {
	if v.Log != nil {
		return v.Log
	}
	return logging.Nop{}
}
