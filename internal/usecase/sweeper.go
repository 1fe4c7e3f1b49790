package usecase

import (
	"context"
	"errors"
	"time"

	"seald/internal/domain"
	"seald/internal/logging"
)

const (
	defaultSweepInterval = time.Minute
	defaultSweepBatch    = 50
)

// AnchorSweeper re-submits fingerprints whose anchor submission was left
// behind by an outage. It only runs while the ledger reports healthy, so
// a recovering provider is not hammered by the backlog and live requests
// at once.
type AnchorSweeper struct {
	Artifacts  domain.ArtifactRepository
	Containers domain.ContainerRepository
	Events     domain.ProvenanceRepository
	Anchor     domain.AnchorClient
	Log        logging.Logger
	Interval   time.Duration
	BatchSize  int
	Now        func() time.Time
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *AnchorSweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sealed, err := s.SweepOnce(ctx)
			if err != nil {
				s.log().Warn(ctx, "anchor sweep failed", "error", err)
				continue
			}
			if sealed > 0 {
				s.log().Info(ctx, "anchor sweep sealed backlog", "count", sealed)
			}
		}
	}
}

// SweepOnce processes one batch of pending artifacts and containers and
// returns how many were sealed. It stops early when the ledger becomes
// unavailable mid-sweep; the rest of the backlog waits for the next
// tick.
func (s *AnchorSweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.Anchor.Health(ctx) != domain.AnchorHealthy {
		return 0, nil
	}
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	cutoff := s.clock()
	sealed := 0

	artifacts, err := s.Artifacts.ListPending(ctx, cutoff, batch)
	if err != nil {
		return sealed, err
	}
	for i := range artifacts {
		artifact := artifacts[i]
		record, err := s.Anchor.Submit(ctx, artifact.Fingerprint)
		if err != nil {
			if errors.Is(err, domain.ErrAnchorUnavailable) {
				return sealed, nil
			}
			if errors.Is(err, domain.ErrAnchorRejected) {
				s.log().Error(ctx, "anchor rejected pending fingerprint", "artifact_id", artifact.ID, "fingerprint", artifact.Fingerprint)
				continue
			}
			return sealed, err
		}
		if err := s.markArtifactSealed(ctx, artifact, record); err != nil {
			return sealed, err
		}
		sealed++
	}

	containers, err := s.Containers.ListPending(ctx, cutoff, batch)
	if err != nil {
		return sealed, err
	}
	for i := range containers {
		container := containers[i]
		record, err := s.Anchor.Submit(ctx, container.AggregateFingerprint)
		if err != nil {
			if errors.Is(err, domain.ErrAnchorUnavailable) {
				return sealed, nil
			}
			if errors.Is(err, domain.ErrAnchorRejected) {
				s.log().Error(ctx, "anchor rejected pending aggregate", "container_id", container.ID, "fingerprint", container.AggregateFingerprint)
				continue
			}
			return sealed, err
		}
		if err := s.markContainerSealed(ctx, container, record); err != nil {
			return sealed, err
		}
		sealed++
	}
	return sealed, nil
}

func (s *AnchorSweeper) markArtifactSealed(ctx context.Context, artifact domain.Artifact, record domain.AnchorRecord) error {
	anchoredAt := record.Timestamp
	if anchoredAt.IsZero() {
		anchoredAt = s.clock()
	}
	if err := s.Artifacts.MarkSealed(ctx, artifact.ID, record.Ref, anchoredAt); err != nil {
		return err
	}
	_, err := s.Events.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: artifact.ID,
		Type:       domain.EventSealed,
		Actor:      domain.ActorSystem,
		Detail:     "anchored as " + record.Ref,
		CreatedAt:  s.clock(),
	})
	return err
}

func (s *AnchorSweeper) markContainerSealed(ctx context.Context, container domain.Container, record domain.AnchorRecord) error {
	anchoredAt := record.Timestamp
	if anchoredAt.IsZero() {
		anchoredAt = s.clock()
	}
	if err := s.Containers.MarkSealed(ctx, container.ID, record.Ref, anchoredAt); err != nil {
		return err
	}
	_, err := s.Events.Append(ctx, domain.ProvenanceEvent{
		ContainerID: container.ID,
		Type:        domain.EventSealed,
		Actor:       domain.ActorSystem,
		Detail:      "aggregate anchored as " + record.Ref,
		CreatedAt:   s.clock(),
	})
	return err
}

func (s *AnchorSweeper) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *AnchorSweeper) log() logging.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.Nop{}
}
