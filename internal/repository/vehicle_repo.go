package repository

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	List(ctx context.Context, onlyAvailable bool, page, limit int) ([]model.Vehicle, int64, error)
	Update(ctx context.Context, vehicle *model.Vehicle) error
	// Reserve flips availability off, failing with
	// workflow.ErrVehicleUnavailable if another request took the
	// vehicle first. The conditional update is the double-assignment
	// guard under concurrent approvers.
	Reserve(ctx context.Context, id uuid.UUID) error
	// Release flips availability back on after a trip completes.
	Release(ctx context.Context, id uuid.UUID) error
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return GetDB(ctx, r.db).Create(vehicle).Error
}

func (r *vehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := GetDB(ctx, r.db).Preload("AssignedDriver").First(&vehicle, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown id is a bad reference, not a reserved vehicle
			return nil, fmt.Errorf("%w: vehicle %s not found", workflow.ErrInvalidRequestData, id)
		}
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) List(ctx context.Context, onlyAvailable bool, page, limit int) ([]model.Vehicle, int64, error) {
	db := GetDB(ctx, r.db)
	query := db.Model(&model.Vehicle{})
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("AssignedDriver")
	if onlyAvailable {
		fetch = fetch.Where("is_available = ?", true)
	}

	var vehicles []model.Vehicle
	if err := fetch.Order("plate_number asc").Offset(offset).Limit(limit).Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

func (r *vehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	return GetDB(ctx, r.db).Save(vehicle).Error
}

func (r *vehicleRepository) Reserve(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).
		Model(&model.Vehicle{}).
		Where("id = ? AND is_available = ?", id, true).
		Update("is_available", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return workflow.ErrVehicleUnavailable
	}
	return nil
}

func (r *vehicleRepository) Release(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).
		Model(&model.Vehicle{}).
		Where("id = ?", id).
		Update("is_available", true).Error
}
