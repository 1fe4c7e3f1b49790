package usecase

import (
	"context"

	"seald/internal/domain"
)

// ProofReader assembles proof bundles and provenance trails on demand.
// Bundles are never persisted; they are a view over the artifact row and
// its event history.
type ProofReader struct {
	Artifacts domain.ArtifactRepository
	Events    domain.ProvenanceRepository
}

// ProofBundle returns everything an external party needs to check an
// artifact against the ledger. Deleted artifacts still produce a bundle;
// the fingerprint and anchor ref outlive the payload.
func (p *ProofReader) ProofBundle(ctx context.Context, artifactID string) (*domain.ProofBundle, error) {
	artifact, err := p.Artifacts.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	events, err := p.Events.ListBySubject(ctx, artifact.ID)
	if err != nil {
		return nil, err
	}
	history := make([]domain.ProvenanceEvent, 0, len(events))
	for _, event := range events {
		if event.Type == domain.EventVerified || event.Type == domain.EventTamperDetected {
			history = append(history, event)
		}
	}
	return &domain.ProofBundle{
		ArtifactID:          artifact.ID,
		Fingerprint:         artifact.Fingerprint,
		AnchorRef:           artifact.AnchorRef,
		SealedAt:            artifact.AnchoredAt,
		State:               artifact.State,
		VerificationHistory: history,
	}, nil
}

// Trail returns the full provenance history of an artifact in append
// order.
func (p *ProofReader) Trail(ctx context.Context, artifactID string) ([]domain.ProvenanceEvent, error) {
	if _, err := p.Artifacts.GetByID(ctx, artifactID); err != nil {
		return nil, err
	}
	return p.Events.ListBySubject(ctx, artifactID)
}
