package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vehicle is the fleet asset the assign action reserves. Availability
// flips to false when a transport request is assigned to it and back to
// true when the trip is completed.
type Vehicle struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PlateNumber      string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"plate_number"`
	Model            string          `gorm:"type:varchar(100);not null" json:"model"`
	FuelEfficiency   decimal.Decimal `gorm:"type:numeric(8,3);not null" json:"fuel_efficiency_km_per_liter"` // km per liter
	IsAvailable      bool            `gorm:"not null;default:true;index" json:"is_available"`
	AssignedDriverID *uuid.UUID      `gorm:"type:uuid;index" json:"assigned_driver_id"`
	AssignedDriver   *User           `gorm:"foreignKey:AssignedDriverID" json:"assigned_driver,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
