package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated        EventType = "CREATED"
	EventSealed         EventType = "SEALED"
	EventVerified       EventType = "VERIFIED"
	EventTamperDetected EventType = "TAMPER_DETECTED"
	EventDeleted        EventType = "DELETED"
)

const ActorSystem = "system"

// ProvenanceEvent is one row of the append-only provenance trail. Events
// are never updated or deleted; Seq is monotonic per subject, assigned by
// the repository at append time.
type ProvenanceEvent struct {
	ID          string    `json:"id"`
	ArtifactID  string    `json:"artifact_id,omitempty"`
	ContainerID string    `json:"container_id,omitempty"`
	Type        EventType `json:"type"`
	Actor       string    `json:"actor"`
	Detail      string    `json:"detail,omitempty"`
	Seq         int64     `json:"seq"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubjectID is the artifact or container the event belongs to.
func (e ProvenanceEvent) SubjectID() string {
	if e.ArtifactID != "" {
		return e.ArtifactID
	}
	return e.ContainerID
}

// ProvenanceRepository is append-only: there is no update or delete. A
// failed append must surface as an error to the operation that triggered
// it; losing an audit event breaks the trust contract.
type ProvenanceRepository interface {
	Append(ctx context.Context, event ProvenanceEvent) (ProvenanceEvent, error)
	ListBySubject(ctx context.Context, subjectID string) ([]ProvenanceEvent, error)
}
