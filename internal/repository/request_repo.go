package repository

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter narrows List results.
type RequestFilter struct {
	Kind        string
	State       string
	RequestedBy *uuid.UUID
	Role        string // Requests currently awaiting this role
	Page        int
	Limit       int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error)
	// UpdateVersioned persists req only if the stored row still carries
	// fromVersion, bumping the version column. A concurrent writer that
	// got there first makes this fail with workflow.ErrStaleState.
	UpdateVersioned(ctx context.Context, req *model.Request, fromVersion int64) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Vehicle").
		Preload("AssignedVehicle").
		Preload("AssignedVehicle.AssignedDriver").
		First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error) {
	db := GetDB(ctx, r.db)

	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.Kind != "" {
			q = q.Where("kind = ?", filter.Kind)
		}
		if filter.State != "" {
			q = q.Where("state = ?", filter.State)
		}
		if filter.RequestedBy != nil {
			q = q.Where("requested_by = ?", *filter.RequestedBy)
		}
		if filter.Role != "" {
			q = q.Where("current_approver_role = ?", filter.Role)
		}
		return q
	}

	var total int64
	if err := applyFilter(db.Model(&model.Request{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	offset := (page - 1) * limit
	var requests []model.Request
	err := applyFilter(db.Preload("Requester").Preload("Vehicle").Preload("AssignedVehicle")).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) UpdateVersioned(ctx context.Context, req *model.Request, fromVersion int64) error {
	req.Version = fromVersion + 1
	result := GetDB(ctx, r.db).
		Model(&model.Request{}).
		Where("id = ? AND version = ?", req.ID, fromVersion).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(req)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return workflow.ErrStaleState
	}
	return nil
}
