package db

import "time"

type ArtifactModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Fingerprint string `gorm:"uniqueIndex;not null"`
	PayloadRef  string `gorm:"not null"`
	SizeBytes   int64  `gorm:"not null"`
	ContentType string `gorm:"not null"`
	State       string `gorm:"index;not null"`
	AnchorRef   *string
	AnchoredAt  *time.Time
	ContainerID *string   `gorm:"type:uuid;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

type ContainerModel struct {
	ID                   string `gorm:"type:uuid;primaryKey"`
	AggregateFingerprint string `gorm:"index;not null"`
	State                string `gorm:"index;not null"`
	AnchorRef            *string
	AnchoredAt           *time.Time
	CreatedAt            time.Time `gorm:"not null"`
}

// ContainerMemberModel keeps the ordered membership; ordinal preserves
// upload order, which is part of the aggregate identity.
type ContainerMemberModel struct {
	ID          int64  `gorm:"primaryKey"`
	ContainerID string `gorm:"type:uuid;index;not null"`
	ArtifactID  string `gorm:"type:uuid;index;not null"`
	Ordinal     int    `gorm:"not null"`
}

type ProvenanceEventModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	ArtifactID  *string `gorm:"type:uuid;index"`
	ContainerID *string `gorm:"type:uuid;index"`
	SubjectID   string  `gorm:"not null;uniqueIndex:idx_subject_seq,priority:1"`
	EventType   string  `gorm:"not null"`
	Actor       string  `gorm:"not null"`
	Detail      string
	Seq         int64     `gorm:"not null;uniqueIndex:idx_subject_seq,priority:2"`
	CreatedAt   time.Time `gorm:"index;not null"`
}

type AnchorAttemptModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Fingerprint string `gorm:"index;not null"`
	SubjectID   string `gorm:"index"`
	Attempt     int    `gorm:"not null"`
	Status      string `gorm:"not null"`
	ErrorCode   string
	AnchorRef   string
	CreatedAt   time.Time `gorm:"not null"`
}
