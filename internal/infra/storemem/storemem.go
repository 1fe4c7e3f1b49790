// Package storemem holds in-memory repositories used when no Postgres DSN
// is configured, and by tests. Semantics match the db package: the
// provenance repository is append-only with per-subject sequence numbers.
package storemem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"seald/internal/domain"
)

type ArtifactRepository struct {
	mu        sync.RWMutex
	byID      map[string]domain.Artifact
	idByPrint map[string]string
}

func NewArtifactRepository() *ArtifactRepository {
	return &ArtifactRepository{
		byID:      make(map[string]domain.Artifact),
		idByPrint: make(map[string]string),
	}
}

func (r *ArtifactRepository) Create(_ context.Context, artifact domain.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.idByPrint[artifact.Fingerprint]; exists {
		// Same semantics as the unique-index DoNothing insert.
		return nil
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	r.byID[artifact.ID] = artifact
	r.idByPrint[artifact.Fingerprint] = artifact.ID
	return nil
}

func (r *ArtifactRepository) GetByID(_ context.Context, id string) (*domain.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &artifact, nil
}

func (r *ArtifactRepository) GetByFingerprint(_ context.Context, fingerprint string) (*domain.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByPrint[fingerprint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	artifact := r.byID[id]
	return &artifact, nil
}

func (r *ArtifactRepository) UpdateState(_ context.Context, id string, state domain.ArtifactState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	artifact, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	artifact.State = state
	r.byID[id] = artifact
	return nil
}

func (r *ArtifactRepository) MarkSealed(_ context.Context, id, anchorRef string, anchoredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	artifact, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	at := anchoredAt.UTC()
	artifact.State = domain.ArtifactSealed
	artifact.AnchorRef = anchorRef
	artifact.AnchoredAt = &at
	r.byID[id] = artifact
	return nil
}

func (r *ArtifactRepository) MarkDeleted(ctx context.Context, id string) error {
	return r.UpdateState(ctx, id, domain.ArtifactDeleted)
}

func (r *ArtifactRepository) ListPending(_ context.Context, createdBefore time.Time, limit int) ([]domain.Artifact, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Artifact
	for _, artifact := range r.byID {
		if artifact.State == domain.ArtifactPending && artifact.ContainerID == "" && artifact.CreatedAt.Before(createdBefore) {
			out = append(out, artifact)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetContainerID links a member artifact back to its container.
func (r *ArtifactRepository) SetContainerID(_ context.Context, id, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	artifact, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	artifact.ContainerID = containerID
	r.byID[id] = artifact
	return nil
}

type ContainerRepository struct {
	mu        sync.RWMutex
	byID      map[string]domain.Container
	artifacts *ArtifactRepository
}

func NewContainerRepository(artifacts *ArtifactRepository) *ContainerRepository {
	return &ContainerRepository{
		byID:      make(map[string]domain.Container),
		artifacts: artifacts,
	}
}

func (r *ContainerRepository) Create(ctx context.Context, container domain.Container) error {
	r.mu.Lock()
	if container.CreatedAt.IsZero() {
		container.CreatedAt = time.Now().UTC()
	}
	members := make([]string, len(container.MemberIDs))
	copy(members, container.MemberIDs)
	container.MemberIDs = members
	r.byID[container.ID] = container
	r.mu.Unlock()

	if r.artifacts != nil {
		for _, memberID := range members {
			if err := r.artifacts.SetContainerID(ctx, memberID, container.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ContainerRepository) GetByID(_ context.Context, id string) (*domain.Container, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	container, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	members := make([]string, len(container.MemberIDs))
	copy(members, container.MemberIDs)
	container.MemberIDs = members
	return &container, nil
}

func (r *ContainerRepository) MarkSealed(_ context.Context, id, anchorRef string, anchoredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	container, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	at := anchoredAt.UTC()
	container.State = domain.ArtifactSealed
	container.AnchorRef = anchorRef
	container.AnchoredAt = &at
	r.byID[id] = container
	return nil
}

func (r *ContainerRepository) UpdateState(_ context.Context, id string, state domain.ArtifactState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	container, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	container.State = state
	r.byID[id] = container
	return nil
}

func (r *ContainerRepository) ListPending(_ context.Context, createdBefore time.Time, limit int) ([]domain.Container, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Container
	for _, container := range r.byID {
		if container.State == domain.ArtifactPending && container.CreatedAt.Before(createdBefore) {
			out = append(out, container)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type ProvenanceRepository struct {
	mu     sync.Mutex
	events map[string][]domain.ProvenanceEvent
}

func NewProvenanceRepository() *ProvenanceRepository {
	return &ProvenanceRepository{
		events: make(map[string][]domain.ProvenanceEvent),
	}
}

func (r *ProvenanceRepository) Append(_ context.Context, event domain.ProvenanceEvent) (domain.ProvenanceEvent, error) {
	subjectID := event.SubjectID()
	if subjectID == "" {
		return domain.ProvenanceEvent{}, domain.ErrInvalidRequest
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Actor == "" {
		event.Actor = domain.ActorSystem
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	event.Seq = int64(len(r.events[subjectID])) + 1
	r.events[subjectID] = append(r.events[subjectID], event)
	return event, nil
}

func (r *ProvenanceRepository) ListBySubject(_ context.Context, subjectID string) ([]domain.ProvenanceEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events[subjectID]
	out := make([]domain.ProvenanceEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type AnchorAttemptRepository struct {
	mu       sync.Mutex
	attempts map[string][]domain.AnchorAttempt
}

func NewAnchorAttemptRepository() *AnchorAttemptRepository {
	return &AnchorAttemptRepository{
		attempts: make(map[string][]domain.AnchorAttempt),
	}
}

func (r *AnchorAttemptRepository) Append(_ context.Context, attempt domain.AnchorAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[attempt.Fingerprint] = append(r.attempts[attempt.Fingerprint], attempt)
	return nil
}

func (r *AnchorAttemptRepository) ListByFingerprint(_ context.Context, fingerprint string) ([]domain.AnchorAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempts := r.attempts[fingerprint]
	out := make([]domain.AnchorAttempt, len(attempts))
	copy(out, attempts)
	return out, nil
}
