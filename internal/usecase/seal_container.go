package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"seald/internal/domain"
)

type SealItem struct {
	Payload     []byte
	ContentType string
}

type SealContainerRequest struct {
	Items []SealItem
	Actor string
}

type SealContainerReceipt struct {
	Container domain.Container
	Members   []domain.Artifact
	Queued    bool
}

// SealContainer seals an ordered batch as one unit. Each member gets its
// own artifact record, but only the aggregate fingerprint goes to the
// ledger. The aggregate is always recomputed here from member
// fingerprints; nothing the caller sends is trusted as an aggregate.
func (s *SealService) SealContainer(ctx context.Context, req SealContainerRequest) (*SealContainerReceipt, error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyInput
	}
	if req.Actor == "" {
		req.Actor = domain.ActorSystem
	}

	prints := make([]string, 0, len(req.Items))
	var totalBytes int64
	for _, item := range req.Items {
		fingerprint, err := s.Prints.Sum(item.Payload)
		if err != nil {
			return nil, err
		}
		prints = append(prints, fingerprint)
		totalBytes += int64(len(item.Payload))
	}
	aggregate, err := s.Prints.SumAggregate(prints)
	if err != nil {
		return nil, err
	}
	if err := s.admit(ctx, domain.AdmissionInput{
		SizeBytes:   totalBytes,
		Actor:       req.Actor,
		MemberCount: len(req.Items),
	}); err != nil {
		return nil, err
	}

	members := make([]domain.Artifact, 0, len(req.Items))
	memberIDs := make([]string, 0, len(req.Items))
	for i, item := range req.Items {
		member, err := s.intakeMember(ctx, item, prints[i], req.Actor)
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
		memberIDs = append(memberIDs, member.ID)
	}

	container := domain.Container{
		ID:                   uuid.NewString(),
		MemberIDs:            memberIDs,
		AggregateFingerprint: aggregate,
		State:                domain.ArtifactPending,
		CreatedAt:            s.clock(),
	}
	if err := s.Containers.Create(ctx, container); err != nil {
		return nil, err
	}
	if _, err := s.Events.Append(ctx, domain.ProvenanceEvent{
		ContainerID: container.ID,
		Type:        domain.EventCreated,
		Actor:       req.Actor,
		Detail:      fmt.Sprintf("%d members", len(members)),
		CreatedAt:   s.clock(),
	}); err != nil {
		return nil, err
	}

	queued, err := s.anchorContainer(ctx, &container, req.Actor)
	if err != nil {
		return nil, err
	}
	return &SealContainerReceipt{Container: container, Members: members, Queued: queued}, nil
}

func (s *SealService) anchorContainer(ctx context.Context, container *domain.Container, actor string) (queued bool, err error) {
	record, err := s.Anchor.Submit(ctx, container.AggregateFingerprint)
	switch {
	case err == nil:
		anchoredAt := record.Timestamp
		if anchoredAt.IsZero() {
			anchoredAt = s.clock()
		}
		if err := s.Containers.MarkSealed(ctx, container.ID, record.Ref, anchoredAt); err != nil {
			return false, err
		}
		if _, err := s.Events.Append(ctx, domain.ProvenanceEvent{
			ContainerID: container.ID,
			Type:        domain.EventSealed,
			Actor:       actor,
			Detail:      "aggregate anchored as " + record.Ref,
			CreatedAt:   s.clock(),
		}); err != nil {
			return false, err
		}
		container.State = domain.ArtifactSealed
		container.AnchorRef = record.Ref
		container.AnchoredAt = &anchoredAt
		return false, nil
	case errors.Is(err, domain.ErrAnchorUnavailable):
		s.log().Warn(ctx, "anchor unavailable, container seal queued", "container_id", container.ID)
		return true, nil
	case errors.Is(err, domain.ErrAnchorRejected):
		s.log().Error(ctx, "anchor rejected aggregate", "container_id", container.ID, "fingerprint", container.AggregateFingerprint)
		return true, nil
	default:
		return false, err
	}
}

// intakeMember stores one container member, reusing an existing artifact
// when the fingerprint is already known.
func (s *SealService) intakeMember(ctx context.Context, item SealItem, fingerprint, actor string) (*domain.Artifact, error) {
	artifact, err := s.Artifacts.GetByFingerprint(ctx, fingerprint)
	if err == nil {
		if artifact.State == domain.ArtifactDeleted {
			return nil, domain.ErrAlreadyDeleted
		}
		return artifact, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	payloadRef, err := s.Payloads.Put(ctx, item.Payload)
	if err != nil {
		return nil, err
	}
	member := domain.Artifact{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		PayloadRef:  payloadRef,
		SizeBytes:   int64(len(item.Payload)),
		ContentType: item.ContentType,
		State:       domain.ArtifactPending,
		CreatedAt:   s.clock(),
	}
	if err := s.Artifacts.Create(ctx, member); err != nil {
		return nil, err
	}
	if _, err := s.Events.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: member.ID,
		Type:       domain.EventCreated,
		Actor:      actor,
		CreatedAt:  s.clock(),
	}); err != nil {
		return nil, err
	}
	return &member, nil
}
