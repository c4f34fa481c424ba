package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workflow actions recorded in the audit log
const (
	ActionSubmit   = "SUBMIT"
	ActionApprove  = "APPROVE"
	ActionForward  = "FORWARD"
	ActionReject   = "REJECT"
	ActionAssign   = "ASSIGN"
	ActionComplete = "COMPLETE"
)

// AuditLogEntry tracks Who, What, and When for every request
// transition. Append-only: rows are written in the same transaction as
// the state change and never updated afterwards.
type AuditLogEntry struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID        uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	RequestKind      string    `gorm:"type:varchar(30);not null;index" json:"request_kind"`
	ActorID          uuid.UUID `gorm:"type:uuid;not null;index" json:"actor_id"`
	Actor            *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorRole        string    `gorm:"type:varchar(50);not null" json:"actor_role"`
	Action           string    `gorm:"type:varchar(20);not null;index" json:"action"`
	PriorState       string    `gorm:"type:varchar(20);not null" json:"prior_state"`
	NewState         string    `gorm:"type:varchar(20);not null;index" json:"new_state"`
	RejectionMessage string    `gorm:"type:text" json:"rejection_message,omitempty"`
	Details          string    `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

func (e *AuditLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
