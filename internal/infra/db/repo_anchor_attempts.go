package db

import (
	"context"
	"errors"
	"time"

	"seald/internal/domain"

	"gorm.io/gorm"
)

type AnchorAttemptRepository struct {
	db *gorm.DB
}

func NewAnchorAttemptRepository(db *gorm.DB) *AnchorAttemptRepository {
	return &AnchorAttemptRepository{db: db}
}

func (r *AnchorAttemptRepository) Append(ctx context.Context, attempt domain.AnchorAttempt) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if attempt.Fingerprint == "" {
		return errors.New("fingerprint is required")
	}
	if attempt.ID == "" {
		attempt.ID = newUUID()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	model := AnchorAttemptModel{
		ID:          attempt.ID,
		Fingerprint: attempt.Fingerprint,
		SubjectID:   attempt.SubjectID,
		Attempt:     attempt.Attempt,
		Status:      attempt.Status,
		ErrorCode:   attempt.ErrorCode,
		AnchorRef:   attempt.AnchorRef,
		CreatedAt:   attempt.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AnchorAttemptRepository) ListByFingerprint(ctx context.Context, fingerprint string) ([]domain.AnchorAttempt, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AnchorAttemptModel
	err := r.db.WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnchorAttempt, 0, len(models))
	for _, model := range models {
		out = append(out, domain.AnchorAttempt{
			ID:          model.ID,
			Fingerprint: model.Fingerprint,
			SubjectID:   model.SubjectID,
			Attempt:     model.Attempt,
			Status:      model.Status,
			ErrorCode:   model.ErrorCode,
			AnchorRef:   model.AnchorRef,
			CreatedAt:   model.CreatedAt,
		})
	}
	return out, nil
}

var _ domain.AnchorAttemptRepository = (*AnchorAttemptRepository)(nil)
