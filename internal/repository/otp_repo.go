package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OTPRepository interface {
	Create(ctx context.Context, challenge *model.OTPChallenge) error
	// FindLive returns the single unconsumed challenge for the pair, or
	// nil when none exists.
	FindLive(ctx context.Context, requestID, actorID uuid.UUID) (*model.OTPChallenge, error)
	// FindGrant returns the most recent verified, unspent challenge for
	// the pair, or nil when none exists.
	FindGrant(ctx context.Context, requestID, actorID uuid.UUID) (*model.OTPChallenge, error)
	// Consume retires the challenge only if it is still live, setting
	// verified_at when given. The conditional write makes a snapshot
	// read stale the moment a resend supersedes the row: the loser gets
	// workflow.ErrExpiredOrUsedOtp instead of silently re-verifying.
	Consume(ctx context.Context, id uuid.UUID, verifiedAt *time.Time) error
	// SpendGrant marks the verified challenge's grant used, only if it
	// has not been spent yet. workflow.ErrOtpRequired when it has.
	SpendGrant(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	// ConsumeLive marks every unconsumed challenge of the pair consumed,
	// so a resend leaves at most one live code.
	ConsumeLive(ctx context.Context, requestID, actorID uuid.UUID) error
	// DeleteExpired removes unconsumed challenges whose window passed
	// before cutoff. Advisory cleanup; expiry is enforced at verify time.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, challenge *model.OTPChallenge) error {
	return GetDB(ctx, r.db).Create(challenge).Error
}

func (r *otpRepository) FindLive(ctx context.Context, requestID, actorID uuid.UUID) (*model.OTPChallenge, error) {
	var challenge model.OTPChallenge
	err := GetDB(ctx, r.db).
		Where("request_id = ? AND actor_id = ? AND consumed = ?", requestID, actorID, false).
		Order("issued_at DESC").
		First(&challenge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &challenge, nil
}

func (r *otpRepository) FindGrant(ctx context.Context, requestID, actorID uuid.UUID) (*model.OTPChallenge, error) {
	var challenge model.OTPChallenge
	err := GetDB(ctx, r.db).
		Where("request_id = ? AND actor_id = ? AND verified_at IS NOT NULL AND grant_used_at IS NULL", requestID, actorID).
		Order("verified_at DESC").
		First(&challenge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &challenge, nil
}

func (r *otpRepository) Consume(ctx context.Context, id uuid.UUID, verifiedAt *time.Time) error {
	updates := map[string]interface{}{"consumed": true}
	if verifiedAt != nil {
		updates["verified_at"] = *verifiedAt
	}
	result := GetDB(ctx, r.db).
		Model(&model.OTPChallenge{}).
		Where("id = ? AND consumed = ?", id, false).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return workflow.ErrExpiredOrUsedOtp
	}
	return nil
}

func (r *otpRepository) SpendGrant(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	result := GetDB(ctx, r.db).
		Model(&model.OTPChallenge{}).
		Where("id = ? AND grant_used_at IS NULL", id).
		Update("grant_used_at", usedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return workflow.ErrOtpRequired
	}
	return nil
}

func (r *otpRepository) ConsumeLive(ctx context.Context, requestID, actorID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Model(&model.OTPChallenge{}).
		Where("request_id = ? AND actor_id = ? AND consumed = ?", requestID, actorID, false).
		Update("consumed", true).Error
}

func (r *otpRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := GetDB(ctx, r.db).
		Where("consumed = ? AND expires_at < ?", false, cutoff).
		Delete(&model.OTPChallenge{})
	return result.RowsAffected, result.Error
}
