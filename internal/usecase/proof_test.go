package usecase

import (
	"context"
	"errors"
	"testing"

	"seald/internal/domain"
)

func TestProofBundleCollectsVerificationHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	receipt, err := f.seal.Seal(ctx, SealRequest{Payload: []byte("audited")})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := f.verifier.VerifyArtifact(ctx, receipt.Artifact.ID, nil); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	f.payloads.corrupt(receipt.Artifact.PayloadRef, []byte("altered"))
	if _, err := f.verifier.VerifyArtifact(ctx, receipt.Artifact.ID, nil); err != nil {
		t.Fatalf("second verify: %v", err)
	}

	bundle, err := f.proofs.ProofBundle(ctx, receipt.Artifact.ID)
	if err != nil {
		t.Fatalf("proof bundle: %v", err)
	}
	if bundle.Fingerprint != receipt.Artifact.Fingerprint {
		t.Fatalf("fingerprint mismatch: %s", bundle.Fingerprint)
	}
	if bundle.AnchorRef != receipt.Artifact.AnchorRef {
		t.Fatalf("anchor ref mismatch: %s", bundle.AnchorRef)
	}
	if len(bundle.VerificationHistory) != 2 {
		t.Fatalf("expected 2 verification entries, got %d", len(bundle.VerificationHistory))
	}
	if bundle.VerificationHistory[0].Type != domain.EventVerified ||
		bundle.VerificationHistory[1].Type != domain.EventTamperDetected {
		t.Fatalf("unexpected history: %+v", bundle.VerificationHistory)
	}
}

func TestProofBundleSurvivesDeletion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	receipt, err := f.seal.Seal(ctx, SealRequest{Payload: []byte("short lived")})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := f.eraser.SoftDelete(ctx, receipt.Artifact.ID, "retention window", ""); err != nil {
		t.Fatalf("delete: %v", err)
	}

	bundle, err := f.proofs.ProofBundle(ctx, receipt.Artifact.ID)
	if err != nil {
		t.Fatalf("proof bundle after delete: %v", err)
	}
	if bundle.State != domain.ArtifactDeleted {
		t.Fatalf("expected DELETED state, got %s", bundle.State)
	}
	if bundle.Fingerprint == "" || bundle.AnchorRef == "" {
		t.Fatal("fingerprint and anchor ref must outlive the payload")
	}
}

func TestProofBundleUnknownArtifact(t *testing.T) {
	f := newFixture()
	if _, err := f.proofs.ProofBundle(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrailIsAppendOrdered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	receipt, err := f.seal.Seal(ctx, SealRequest{Payload: []byte("trailing")})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := f.verifier.VerifyArtifact(ctx, receipt.Artifact.ID, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	trail, err := f.proofs.Trail(ctx, receipt.Artifact.ID)
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 3 {
		t.Fatalf("expected CREATED, SEALED, VERIFIED, got %d events", len(trail))
	}
	for i, event := range trail {
		if event.Seq != int64(i+1) {
			t.Fatalf("event %d has seq %d", i, event.Seq)
		}
	}
}
