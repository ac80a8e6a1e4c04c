package randomization

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditEventKind string

const (
	AuditSchemeCreated     AuditEventKind = "scheme_created"
	AuditSchemeUpdated     AuditEventKind = "scheme_updated"
	AuditListGenerated     AuditEventKind = "list_generated"
	AuditSchemeActivated   AuditEventKind = "scheme_activated"
	AuditSubjectRandomized AuditEventKind = "subject_randomized"
	AuditRandomizeFailed   AuditEventKind = "randomization_failed"
)

// AuditOutbox rows are written in the business transaction and relayed later.
// Rows are never deleted; PublishedAt is stamped once delivered.
type AuditOutbox struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind           AuditEventKind `gorm:"column:kind;not null;index" json:"kind"`
	ActorID        int            `gorm:"column:actor_id;not null" json:"actorId"`
	StudyID        *int           `gorm:"column:study_id;index" json:"studyId,omitempty"`
	ConfigID       *uint          `gorm:"column:config_id;index" json:"configId,omitempty"`
	StudySubjectID *int           `gorm:"column:study_subject_id" json:"studySubjectId,omitempty"`
	Payload        datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	Attempts       int            `gorm:"column:attempts;not null" json:"attempts"`
	LastError      string         `gorm:"column:last_error" json:"lastError,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null;index" json:"createdAt"`
	PublishedAt    *time.Time     `gorm:"column:published_at;index" json:"publishedAt,omitempty"`
}

func (AuditOutbox) TableName() string { return "randomization_audit_outbox" }
