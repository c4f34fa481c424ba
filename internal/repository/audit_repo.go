package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows the global audit listing. Zero values match all.
type AuditFilter struct {
	RequestKind string
	Action      string
	NewState    string
	Page        int
	Limit       int
}

type AuditRepository interface {
	Append(ctx context.Context, entry *model.AuditLogEntry) error
	ListForRequest(ctx context.Context, requestID uuid.UUID) ([]model.AuditLogEntry, error)
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *model.AuditLogEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) ListForRequest(ctx context.Context, requestID uuid.UUID) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("request_id = ?", requestID).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, int64, error) {
	db := GetDB(ctx, r.db)

	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.RequestKind != "" {
			q = q.Where("request_kind = ?", filter.RequestKind)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.NewState != "" {
			q = q.Where("new_state = ?", filter.NewState)
		}
		return q
	}

	var total int64
	if err := applyFilter(db.Model(&model.AuditLogEntry{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var entries []model.AuditLogEntry
	err := applyFilter(db.Preload("Actor")).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
