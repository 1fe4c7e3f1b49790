package storemem

import (
	"context"
	"errors"
	"testing"
	"time"

	"seald/internal/domain"
)

func TestProvenanceSeqMonotonicPerSubject(t *testing.T) {
	repo := NewProvenanceRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		event, err := repo.Append(ctx, domain.ProvenanceEvent{
			ArtifactID: "art-1",
			Type:       domain.EventVerified,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if event.Seq != int64(i)+1 {
			t.Fatalf("expected seq %d, got %d", i+1, event.Seq)
		}
	}

	// Another subject starts its own sequence.
	event, err := repo.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: "art-2",
		Type:       domain.EventCreated,
	})
	if err != nil {
		t.Fatalf("append other subject: %v", err)
	}
	if event.Seq != 1 {
		t.Fatalf("expected fresh sequence for new subject, got %d", event.Seq)
	}
}

func TestProvenanceListOrdersByTimestampThenSeq(t *testing.T) {
	repo := NewProvenanceRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := repo.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: "art-1", Type: domain.EventCreated, CreatedAt: base,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	// Same timestamp: insertion order must break the tie.
	if _, err := repo.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: "art-1", Type: domain.EventSealed, CreatedAt: base,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := repo.Append(ctx, domain.ProvenanceEvent{
		ArtifactID: "art-1", Type: domain.EventVerified, CreatedAt: base.Add(time.Second),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := repo.ListBySubject(ctx, "art-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []domain.EventType{domain.EventCreated, domain.EventSealed, domain.EventVerified}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, eventType := range want {
		if events[i].Type != eventType {
			t.Fatalf("position %d: expected %s, got %s", i, eventType, events[i].Type)
		}
	}
}

func TestArtifactFingerprintLookup(t *testing.T) {
	repo := NewArtifactRepository()
	ctx := context.Background()

	artifact := domain.Artifact{ID: "art-1", Fingerprint: "fp-1", State: domain.ArtifactPending}
	if err := repo.Create(ctx, artifact); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("get by fingerprint: %v", err)
	}
	if got.ID != "art-1" {
		t.Fatalf("unexpected artifact %+v", got)
	}
	if _, err := repo.GetByFingerprint(ctx, "fp-unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Creating the same fingerprint again keeps the original row.
	if err := repo.Create(ctx, domain.Artifact{ID: "art-dup", Fingerprint: "fp-1"}); err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	got, err = repo.GetByFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("get after duplicate create: %v", err)
	}
	if got.ID != "art-1" {
		t.Fatalf("duplicate create must not replace, got %+v", got)
	}
}

func TestContainerCreateLinksMembers(t *testing.T) {
	artifacts := NewArtifactRepository()
	containers := NewContainerRepository(artifacts)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2"} {
		if err := artifacts.Create(ctx, domain.Artifact{ID: id, Fingerprint: "fp-" + id, State: domain.ArtifactPending}); err != nil {
			t.Fatalf("create member %s: %v", id, err)
		}
	}
	err := containers.Create(ctx, domain.Container{
		ID:        "cont-1",
		MemberIDs: []string{"m1", "m2"},
		State:     domain.ArtifactPending,
	})
	if err != nil {
		t.Fatalf("create container: %v", err)
	}

	member, err := artifacts.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member.ContainerID != "cont-1" {
		t.Fatalf("expected back-reference to container, got %q", member.ContainerID)
	}

	container, err := containers.GetByID(ctx, "cont-1")
	if err != nil {
		t.Fatalf("get container: %v", err)
	}
	if len(container.MemberIDs) != 2 || container.MemberIDs[0] != "m1" {
		t.Fatalf("member order must be preserved, got %v", container.MemberIDs)
	}
}
