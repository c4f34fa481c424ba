package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPChallenge is a short-lived step-up code bound to one
// (request, actor) pair. At most one unconsumed challenge exists per
// pair: issuing a new one consumes the previous. A successful verify
// sets VerifiedAt, turning the row into a grant the workflow engine
// spends (GrantUsedAt) on the next sensitive action.
type OTPChallenge struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_otp_pair" json:"request_id"`
	ActorID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_otp_pair" json:"actor_id"`
	Code        string     `gorm:"type:varchar(10);not null" json:"-"` // Never serialized; delivered out of band
	IssuedAt    time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	Consumed    bool       `gorm:"not null;default:false" json:"consumed"`
	VerifiedAt  *time.Time `json:"verified_at"`
	GrantUsedAt *time.Time `json:"grant_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (c *OTPChallenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the challenge window has passed at t.
func (c *OTPChallenge) Expired(t time.Time) bool {
	return t.After(c.ExpiresAt)
}
