package db

import (
	"context"
	"errors"
	"time"

	"seald/internal/domain"

	"gorm.io/gorm"
)

type ContainerRepository struct {
	db *gorm.DB
}

func NewContainerRepository(db *gorm.DB) *ContainerRepository {
	return &ContainerRepository{db: db}
}

func (r *ContainerRepository) Create(ctx context.Context, container domain.Container) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if container.ID == "" {
		return errors.New("container id is required")
	}
	if len(container.MemberIDs) == 0 {
		return errors.New("container needs at least one member")
	}
	model := ContainerModel{
		ID:                   container.ID,
		AggregateFingerprint: container.AggregateFingerprint,
		State:                string(container.State),
		AnchorRef:            stringPtrIfNotEmpty(container.AnchorRef),
		AnchoredAt:           container.AnchoredAt,
		CreatedAt:            container.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		for i, memberID := range container.MemberIDs {
			member := ContainerMemberModel{
				ContainerID: container.ID,
				ArtifactID:  memberID,
				Ordinal:     i,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			// Keep the back-reference on the artifact row in sync; the
			// container owns the relationship.
			if err := tx.Model(&ArtifactModel{}).
				Where("id = ?", memberID).
				Update("container_id", container.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ContainerRepository) GetByID(ctx context.Context, id string) (*domain.Container, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model ContainerModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var members []ContainerMemberModel
	err = r.db.WithContext(ctx).
		Where("container_id = ?", id).
		Order("ordinal ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	container := domain.Container{
		ID:                   model.ID,
		AggregateFingerprint: model.AggregateFingerprint,
		State:                domain.ArtifactState(model.State),
		AnchorRef:            stringOrEmpty(model.AnchorRef),
		AnchoredAt:           model.AnchoredAt,
		CreatedAt:            model.CreatedAt,
	}
	for _, member := range members {
		container.MemberIDs = append(container.MemberIDs, member.ArtifactID)
	}
	return &container, nil
}

func (r *ContainerRepository) MarkSealed(ctx context.Context, id, anchorRef string, anchoredAt time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&ContainerModel{}).
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

func (r *ContainerRepository) UpdateState(ctx context.Context, id string, state domain.ArtifactState) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&ContainerModel{}).
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

func (r *ContainerRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Container, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []ContainerModel
	err := r.db.WithContext(ctx).
		Where("state = ?", string(domain.ArtifactPending)).
		Where("created_at < ?", createdBefore.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Container, 0, len(models))
	for _, model := range models {
		container, err := r.GetByID(ctx, model.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *container)
	}
	return out, nil
}
