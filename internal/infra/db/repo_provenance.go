package db

import (
	"context"
	"errors"
	"time"

	"seald/internal/domain"

	"gorm.io/gorm"
)

type ProvenanceRepository struct {
	db *gorm.DB
}

func NewProvenanceRepository(db *gorm.DB) *ProvenanceRepository {
	return &ProvenanceRepository{db: db}
}

// Append inserts one event with the next per-subject sequence number.
// Inserts only; the unique (subject, seq) index plus the transaction keep
// concurrent appends on the same subject ordered.
func (r *ProvenanceRepository) Append(ctx context.Context, event domain.ProvenanceEvent) (domain.ProvenanceEvent, error) {
	if r.db == nil {
		return domain.ProvenanceEvent{}, errDBUnavailable
	}
	if event.Type == "" {
		return domain.ProvenanceEvent{}, errors.New("event type is required")
	}
	subjectID := event.SubjectID()
	if subjectID == "" {
		return domain.ProvenanceEvent{}, errors.New("artifact_id or container_id is required")
	}
	if event.ID == "" {
		event.ID = newUUID()
	}
	if event.Actor == "" {
		event.Actor = domain.ActorSystem
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}

	var out domain.ProvenanceEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		err := tx.Model(&ProvenanceEventModel{}).
			Where("subject_id = ?", subjectID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error
		if err != nil {
			return err
		}
		event.Seq = maxSeq + 1

		model := ProvenanceEventModel{
			ID:          event.ID,
			ArtifactID:  stringPtrIfNotEmpty(event.ArtifactID),
			ContainerID: stringPtrIfNotEmpty(event.ContainerID),
			SubjectID:   subjectID,
			EventType:   string(event.Type),
			Actor:       event.Actor,
			Detail:      event.Detail,
			Seq:         event.Seq,
			CreatedAt:   event.CreatedAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		out = event
		return nil
	})
	if err != nil {
		return domain.ProvenanceEvent{}, err
	}
	return out, nil
}

// ListBySubject returns the subject's full trail, timestamp ascending
// with insertion sequence breaking ties.
func (r *ProvenanceRepository) ListBySubject(ctx context.Context, subjectID string) ([]domain.ProvenanceEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if subjectID == "" {
		return nil, errors.New("subject_id is required")
	}
	var models []ProvenanceEventModel
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at ASC, seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProvenanceEvent, 0, len(models))
	for _, model := range models {
		out = append(out, domain.ProvenanceEvent{
			ID:          model.ID,
			ArtifactID:  stringOrEmpty(model.ArtifactID),
			ContainerID: stringOrEmpty(model.ContainerID),
			Type:        domain.EventType(model.EventType),
			Actor:       model.Actor,
			Detail:      model.Detail,
			Seq:         model.Seq,
			CreatedAt:   model.CreatedAt,
		})
	}
	return out, nil
}
