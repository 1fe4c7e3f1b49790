package usecase

import (
	"context"
	"errors"
	"time"

	"seald/internal/domain"
	"seald/internal/logging"
)

// Eraser handles soft deletion: the payload is purged, the artifact row
// with its fingerprint, anchor ref, and provenance trail stays forever.
type Eraser struct {
	Artifacts domain.ArtifactRepository
	Events    domain.ProvenanceRepository
	Payloads  domain.PayloadStore
	Log       logging.Logger
	Now       func() time.Time
}

func (e *Eraser) SoftDelete(ctx context.Context, artifactID, reason, actor string) error {
	artifact, err := e.Artifacts.GetByID(ctx, artifactID)
	if err != nil {
		return err
	}
	if artifact.State == domain.ArtifactDeleted {
		return nil
	}
	if actor == "" {
		actor = domain.ActorSystem
	}
	if err := e.Payloads.Delete(ctx, artifact.PayloadRef); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := e.Artifacts.MarkDeleted(ctx, artifact.ID); err != nil {
		return err
	}
	detail := "payload purged"
	if reason != "" {
		detail = "payload purged: " + reason
	}
	if _, err := e.Events.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: artifact.ID,
		Type:       domain.EventDeleted,
		Actor:      actor,
		Detail:     detail,
		CreatedAt:  e.clock(),
	}); err != nil {
		return err
	}
	e.log().Info(ctx, "artifact soft-deleted", "artifact_id", artifact.ID, "actor", actor)
	return nil
}

func (e *Eraser) clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Eraser) log() logging.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logging.Nop{}
}
