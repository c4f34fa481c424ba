package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestKind enum constants
const (
	KindTransport         = "TRANSPORT"
	KindHighCostTransport = "HIGH_COST_TRANSPORT"
	KindMaintenance       = "MAINTENANCE"
	KindRefueling         = "REFUELING"
	KindService           = "SERVICE"
)

// RequestState enum constants
const (
	StatePending   = "PENDING"
	StateForwarded = "FORWARDED"
	StateApproved  = "APPROVED"
	StateRejected  = "REJECTED"
	StateCompleted = "COMPLETED"
)

// Approver role constants — the roles a request can be waiting on
const (
	RoleAdmin             = "admin"
	RoleDepartmentManager = "department_manager"
	RoleTransportManager  = "transport_manager"
	RoleFinanceManager    = "finance_manager"
	RoleCEO               = "ceo"
	RoleBusinessUnit      = "business_unit_approver"
	RoleDriver            = "driver"
)

// Request is the single record type behind every fleet request kind.
// Kind discriminates which optional columns apply: cost fields are only
// populated for cost-dependent kinds, AssignedVehicleID only for
// transport kinds after the final approver assigns a vehicle.
type Request struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Kind                string           `gorm:"type:varchar(30);not null;index" json:"kind"`
	State               string           `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"state"`
	CurrentApproverRole *string          `gorm:"type:varchar(50);index" json:"current_approver_role"`
	RequestedBy         uuid.UUID        `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester           *User            `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	Description         string           `gorm:"type:text;not null" json:"description"`
	Origin              string           `gorm:"type:varchar(255)" json:"origin,omitempty"`
	Destination         string           `gorm:"type:varchar(255)" json:"destination,omitempty"`
	VehicleID           *uuid.UUID       `gorm:"type:uuid;index" json:"vehicle_id"` // Subject vehicle (refueling/maintenance/service)
	Vehicle             *Vehicle         `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	AssignedVehicleID   *uuid.UUID       `gorm:"type:uuid;index" json:"assigned_vehicle_id"` // Vehicle assigned by the final approver
	AssignedVehicle     *Vehicle         `gorm:"foreignKey:AssignedVehicleID" json:"assigned_vehicle,omitempty"`
	EstimatedDistanceKm *decimal.Decimal `gorm:"type:numeric(12,3)" json:"estimated_distance_km"`
	FuelPricePerLiter   *decimal.Decimal `gorm:"type:numeric(12,4)" json:"fuel_price_per_liter"`
	FuelNeededLiters    *decimal.Decimal `gorm:"type:numeric(12,3)" json:"fuel_needed_liters"`
	TotalCost           *decimal.Decimal `gorm:"type:numeric(14,4)" json:"total_cost"`
	RejectionMessage    string           `gorm:"type:text" json:"rejection_message,omitempty"`
	Version             int64            `gorm:"not null;default:1" json:"version"` // Optimistic concurrency token
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the request has left the approval chain.
func (r *Request) Terminal() bool {
	return r.State == StateApproved || r.State == StateRejected || r.State == StateCompleted
}

// CostFieldsPopulated reports whether the estimation step has run.
func (r *Request) CostFieldsPopulated() bool {
	return r.EstimatedDistanceKm != nil && r.FuelPricePerLiter != nil &&
		r.FuelNeededLiters != nil && r.TotalCost != nil
}
