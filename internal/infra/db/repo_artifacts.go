package db

import (
	"context"
	"errors"
	"time"

	"seald/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArtifactRepository struct {
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

func (r *ArtifactRepository) Create(ctx context.Context, artifact domain.Artifact) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if artifact.ID == "" || artifact.Fingerprint == "" {
		return errors.New("artifact id and fingerprint are required")
	}
	model := artifactModelFromDomain(artifact)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	// The fingerprint column is unique; a concurrent identical intake
	// loses the race harmlessly and finds the existing row on re-read.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	return result.Error
}

func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (*domain.Artifact, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ArtifactModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	artifact := artifactFromModel(model)
	return &artifact, nil
}

func (r *ArtifactRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Artifact, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ArtifactModel
	err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	artifact := artifactFromModel(model)
	return &artifact, nil
}

func (r *ArtifactRepository) UpdateState(ctx context.Context, id string, state domain.ArtifactState) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&ArtifactModel{}).
		Where("id = ?", id).
		Update("state", string(state))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ArtifactRepository) MarkSealed(ctx context.Context, id, anchorRef string, anchoredAt time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&ArtifactModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":       string(domain.ArtifactSealed),
			"anchor_ref":  anchorRef,
			"anchored_at": anchoredAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ArtifactRepository) MarkDeleted(ctx context.Context, id string) error {
	return r.UpdateState(ctx, id, domain.ArtifactDeleted)
}

// ListPending returns standalone artifacts still waiting for an anchor,
// oldest first. Container members are re-anchored through their
// container, not individually.
func (r *ArtifactRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Artifact, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []ArtifactModel
	err := r.db.WithContext(ctx).
		Where("state = ?", string(domain.ArtifactPending)).
		Where("container_id IS NULL").
		Where("created_at < ?", createdBefore.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Artifact, 0, len(models))
	for _, model := range models {
		out = append(out, artifactFromModel(model))
	}
	return out, nil
}

func artifactModelFromDomain(artifact domain.Artifact) ArtifactModel {
	return ArtifactModel{
		ID:          artifact.ID,
		Fingerprint: artifact.Fingerprint,
		PayloadRef:  artifact.PayloadRef,
		SizeBytes:   artifact.SizeBytes,
		ContentType: artifact.ContentType,
		State:       string(artifact.State),
		AnchorRef:   stringPtrIfNotEmpty(artifact.AnchorRef),
		AnchoredAt:  artifact.AnchoredAt,
		ContainerID: stringPtrIfNotEmpty(artifact.ContainerID),
		CreatedAt:   artifact.CreatedAt,
	}
}

func artifactFromModel(model ArtifactModel) domain.Artifact {
	return domain.Artifact{
		ID:          model.ID,
		Fingerprint: model.Fingerprint,
		PayloadRef:  model.PayloadRef,
		SizeBytes:   model.SizeBytes,
		ContentType: model.ContentType,
		State:       domain.ArtifactState(model.State),
		AnchorRef:   stringOrEmpty(model.AnchorRef),
		AnchoredAt:  model.AnchoredAt,
		ContainerID: stringOrEmpty(model.ContainerID),
		CreatedAt:   model.CreatedAt,
	}
}
